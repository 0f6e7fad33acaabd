package mlapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/bjaus/mlapi"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := mlapi.Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("model exploded")
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/predict", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, buf.String(), "model exploded")
	assert.Contains(t, buf.String(), `"path":"/predict"`)
}

func TestLogger(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status    int
		wantLevel string
	}{
		"success":      {status: http.StatusCreated, wantLevel: "INFO"},
		"client error": {status: http.StatusNotFound, wantLevel: "INFO"},
		"server error": {status: http.StatusBadGateway, wantLevel: "ERROR"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			h := mlapi.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte("abc"))
			}))

			serve(h, httptest.NewRequest(http.MethodPost, "/files/upload", nil))

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "request", entry["msg"])
			assert.Equal(t, tc.wantLevel, entry["level"])
			assert.Equal(t, "POST", entry["method"])
			assert.Equal(t, "/files/upload", entry["path"])
			assert.InDelta(t, tc.status, entry["status"], 0)
			assert.InDelta(t, 3, entry["size"], 0)
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := mlapi.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = mlapi.RequestIDFromContext(r.Context())
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 32)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "given")
	rec = serve(h, req)
	assert.Equal(t, "given", seen)
	assert.Equal(t, "given", rec.Header().Get("X-Request-ID"))

	custom := mlapi.RequestID(mlapi.RequestIDConfig{Header: "X-Trace", Generator: func() string { return "fixed" }})
	rec = serve(custom(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "fixed", rec.Header().Get("X-Trace"))

	assert.Empty(t, mlapi.RequestIDFromContext(context.Background()))
}

func TestRequestIDAttrs(t *testing.T) {
	t.Parallel()

	assert.Nil(t, mlapi.RequestIDAttrs(context.Background()))

	var attrs []slog.Attr
	h := mlapi.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		attrs = mlapi.RequestIDAttrs(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(mlapi.RequestIDHeader, "abc")
	serve(h, req)

	require.Len(t, attrs, 1)
	assert.Equal(t, "request_id", attrs[0].Key)
	assert.Equal(t, "abc", attrs[0].Value.String())
}

func TestCORS(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg         []mlapi.CORSConfig
		method      string
		origin      string
		preflight   bool
		wantOrigin  string
		wantStatus  int
		wantCredent string
	}{
		"default any origin": {
			method:     http.MethodGet,
			origin:     "https://app.example",
			wantOrigin: "*",
			wantStatus: http.StatusOK,
		},
		"preflight": {
			method:     http.MethodOptions,
			origin:     "https://app.example",
			preflight:  true,
			wantOrigin: "*",
			wantStatus: http.StatusNoContent,
		},
		"listed origin echoed": {
			cfg:        []mlapi.CORSConfig{{AllowOrigins: []string{"https://app.example"}}},
			method:     http.MethodGet,
			origin:     "https://app.example",
			wantOrigin: "https://app.example",
			wantStatus: http.StatusOK,
		},
		"unlisted origin": {
			cfg:        []mlapi.CORSConfig{{AllowOrigins: []string{"https://app.example"}}},
			method:     http.MethodGet,
			origin:     "https://evil.example",
			wantStatus: http.StatusOK,
		},
		"credentials echo origin": {
			cfg:         []mlapi.CORSConfig{{AllowOrigins: []string{"*"}, AllowCredentials: true}},
			method:      http.MethodGet,
			origin:      "https://app.example",
			wantOrigin:  "https://app.example",
			wantStatus:  http.StatusOK,
			wantCredent: "true",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tc.method, "/", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}

			rec := serve(mlapi.CORS(tc.cfg...)(okHandler()), req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tc.wantCredent, rec.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, "Origin", rec.Header().Get("Vary"))
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	h := mlapi.RateLimit(mlapi.RateLimitConfig{Rate: 0.001, Burst: 2})(okHandler())

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		return serve(h, req)
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001").Code)

	limited := call("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1000", limited.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", limited.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000").Code)
}

func TestRateLimit_disabled(t *testing.T) {
	t.Parallel()

	h := mlapi.RateLimit(mlapi.RateLimitConfig{})(okHandler())
	for range 50 {
		assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestKeyedLimiter(t *testing.T) {
	t.Parallel()

	l := mlapi.NewKeyedLimiter(rate.Limit(1), 1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, l.Allow("a", now))
	assert.False(t, l.Allow("a", now))
	assert.True(t, l.Allow("b", now))
	assert.True(t, l.Allow("a", now.Add(time.Second)))
	assert.True(t, l.Allow("", now))
	assert.True(t, l.Allow("", now))
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	r := quietRouter()
	r.Use(mlapi.BodyLimit(8))
	mlapi.Post(r, "/raw", func(_ context.Context, req *struct {
		Data mlapi.RawBody `body:"data"`
	}) (int, error) {
		return len(req.Data), nil
	})

	resp, body := send(t, r, http.MethodPost, "/raw", strings.NewReader("1234"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "4", string(body))

	resp, _ = send(t, r, http.MethodPost, "/raw", strings.NewReader("123456789"), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	rec := serve(mlapi.Timeout(10*time.Millisecond)(slow), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "request timed out")

	rec = serve(mlapi.Timeout(time.Second)(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = serve(mlapi.Timeout(0)(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTimeout_handler_error(t *testing.T) {
	t.Parallel()

	r := quietRouter()
	r.Use(mlapi.Timeout(10 * time.Millisecond))
	mlapi.Get(r, "/infer", func(ctx context.Context, _ *mlapi.Void) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	resp, _ := send(t, r, http.MethodGet, "/infer", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
