// Package apitest provides typed helpers for exercising an mlapi router
// over a real HTTP connection.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/bjaus/mlapi"
)

// Client sends requests to a router served by an httptest.Server.
type Client struct {
	Server *httptest.Server
}

// NewClient starts a test server for r. The server is closed when the
// test ends.
func NewClient(t testing.TB, r *mlapi.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Response is a received response. Body is decoded when the response
// carries JSON; Bytes always holds the raw body.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Body    *T
	Bytes   []byte
}

// Problem decodes the body as a problem details document.
func (r *Response[T]) Problem(t testing.TB) *mlapi.ProblemDetail {
	t.Helper()
	var pd mlapi.ProblemDetail
	if err := json.Unmarshal(r.Bytes, &pd); err != nil {
		t.Fatalf("apitest: decode problem: %v", err)
	}
	return &pd
}

// Get sends a GET request.
func Get[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return Do[Resp](t, c, http.MethodGet, path, nil, nil)
}

// Post sends a POST request with a JSON body.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return Do[Resp](t, c, http.MethodPost, path, encode(t, body), jsonHeader())
}

// Put sends a PUT request with a JSON body.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return Do[Resp](t, c, http.MethodPut, path, encode(t, body), jsonHeader())
}

// Delete sends a DELETE request.
func Delete[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return Do[Resp](t, c, http.MethodDelete, path, nil, nil)
}

// File is one part of a multipart upload.
type File struct {
	Field    string
	Filename string
	Data     []byte
}

// Upload sends files and form values as a multipart/form-data POST.
func Upload[Resp any](t testing.TB, c *Client, path string, files []File, values map[string]string) *Response[Resp] {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			t.Fatalf("apitest: create form file: %v", err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			t.Fatalf("apitest: write form file: %v", err)
		}
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, values[k]); err != nil {
			t.Fatalf("apitest: write form field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("apitest: close multipart: %v", err)
	}

	return Do[Resp](t, c, http.MethodPost, path, &buf, http.Header{"Content-Type": {mw.FormDataContentType()}})
}

// Do sends a request with an arbitrary body and headers.
func Do[Resp any](t testing.TB, c *Client, method, path string, body io.Reader, header http.Header) *Response[Resp] {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, body)
	if err != nil {
		t.Fatalf("apitest: create request: %v", err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}

	resp, err := c.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("apitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("apitest: close body: %v", closeErr)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("apitest: read body: %v", err)
	}

	result := &Response[Resp]{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Bytes:   data,
	}
	if len(data) > 0 && isJSON(resp.Header.Get("Content-Type")) {
		var decoded Resp
		if err := json.Unmarshal(data, &decoded); err == nil {
			result.Body = &decoded
		}
	}
	return result
}

func encode(t testing.TB, body any) io.Reader {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("apitest: marshal request body: %v", err)
	}
	return bytes.NewReader(b)
}

func jsonHeader() http.Header {
	return http.Header{"Content-Type": {"application/json"}}
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}
