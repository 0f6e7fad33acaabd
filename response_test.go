package mlapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/mlapi"
)

func TestCoerce(t *testing.T) {
	t.Parallel()

	custom := &mlapi.Response{
		Status:  http.StatusAccepted,
		Headers: http.Header{"X-Custom": {"yes"}},
		Body:    []byte("queued"),
	}

	tests := map[string]struct {
		in          any
		wantStatus  int
		wantType    string
		wantBody    string
		wantHeaders http.Header
	}{
		"response passes through": {
			in:         custom,
			wantStatus: http.StatusAccepted,
			wantBody:   "queued",
		},
		"response value passes through": {
			in:         *custom,
			wantStatus: http.StatusAccepted,
			wantBody:   "queued",
		},
		"typed object indented": {
			in:         &sampleItem{Name: "a", Value: 1},
			wantStatus: http.StatusOK,
			wantType:   "application/json",
			wantBody:   "{\n    \"name\": \"a\",\n    \"value\": 1\n}",
		},
		"struct value": {
			in:         sampleItem{Name: "b"},
			wantStatus: http.StatusOK,
			wantType:   "application/json",
			wantBody:   "{\n    \"name\": \"b\",\n    \"value\": 0\n}",
		},
		"generic mapping compact": {
			in:         map[string]any{"key": "value"},
			wantStatus: http.StatusOK,
			wantType:   "application/json",
			wantBody:   `{"key":"value"}`,
		},
		"plain string": {
			in:         "hello world",
			wantStatus: http.StatusOK,
			wantBody:   "hello world",
		},
		"number": {
			in:         42,
			wantStatus: http.StatusOK,
			wantBody:   "42",
		},
		"bytes verbatim": {
			in:         []byte{0x01, 0x02},
			wantStatus: http.StatusOK,
			wantBody:   "\x01\x02",
		},
		"nil": {
			in:         nil,
			wantStatus: http.StatusOK,
		},
		"nil pointer": {
			in:         (*sampleItem)(nil),
			wantStatus: http.StatusOK,
		},
		"unencodable falls back to string": {
			in:         map[string]any{"ch": make(chan int)},
			wantStatus: http.StatusOK,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resp := mlapi.Coerce(tc.in)
			require.NotNil(t, resp)
			assert.Equal(t, tc.wantStatus, resp.Status)
			assert.Equal(t, tc.wantType, resp.Headers.Get("Content-Type"))
			if tc.wantBody != "" {
				assert.Equal(t, tc.wantBody, string(resp.Body))
			}
		})
	}
}

func TestCoerce_mapping_round_trips(t *testing.T) {
	t.Parallel()

	in := map[string]any{"key": "value", "num": float64(42)}

	for range 3 {
		resp := mlapi.Coerce(in)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "application/json", resp.Headers.Get("Content-Type"))

		var out map[string]any
		require.NoError(t, json.Unmarshal(resp.Body, &out))
		assert.Equal(t, in, out)
	}
}

func TestCoerce_string_has_no_content_type_on_the_wire(t *testing.T) {
	t.Parallel()

	r := mlapi.New()
	mlapi.Get(r, "/text", func(_ context.Context, _ *mlapi.Void) (string, error) {
		return "<html>not sniffed</html>", nil
	})

	resp, body := send(t, r, http.MethodGet, "/text", nil, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Content-Type"))
	assert.Equal(t, "<html>not sniffed</html>", string(body))
}

func TestErrorResponse(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err        error
		wantStatus int
		wantDetail string
	}{
		"http error": {
			err:        mlapi.Error(http.StatusNotFound, "no such model"),
			wantStatus: http.StatusNotFound,
			wantDetail: "no such model",
		},
		"problem detail": {
			err:        &mlapi.ProblemDetail{Status: http.StatusConflict, Title: "Conflict", Detail: "exists"},
			wantStatus: http.StatusConflict,
			wantDetail: "exists",
		},
		"plain error": {
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "boom",
		},
		"deadline": {
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: context.DeadlineExceeded.Error(),
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resp := mlapi.ErrorResponse(tc.err)
			assert.Equal(t, tc.wantStatus, resp.Status)
			assert.Equal(t, "application/problem+json", resp.Headers.Get("Content-Type"))

			var pd mlapi.ProblemDetail
			require.NoError(t, json.Unmarshal(resp.Body, &pd))
			assert.Equal(t, tc.wantStatus, pd.Status)
			assert.Equal(t, tc.wantDetail, pd.Detail)
		})
	}
}

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := mlapi.Errorf(http.StatusBadRequest, "bad %s", "input")
	assert.Equal(t, "bad input", err.Error())
	assert.Equal(t, http.StatusBadRequest, mlapi.ErrorStatus(err))
}
