package mlapi_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// send serves req through h on a test server and returns the response
// with its body read.
func send(t *testing.T, h http.Handler, method, path string, body io.Reader, header http.Header) (*http.Response, []byte) {
	t.Helper()

	srv := httptest.NewServer(h)
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, body)
	require.NoError(t, err)
	for k, vs := range header {
		req.Header[k] = vs
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func jsonHeader() http.Header {
	return http.Header{"Content-Type": {"application/json"}}
}

// multipartBody encodes files and fields as multipart/form-data.
func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (io.Reader, http.Header) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile(name, name+".bin")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for name, val := range fields {
		require.NoError(t, mw.WriteField(name, val))
	}
	require.NoError(t, mw.Close())

	return &buf, http.Header{"Content-Type": {mw.FormDataContentType()}}
}
