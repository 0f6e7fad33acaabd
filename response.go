package mlapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"time"
)

// Response is a fully formed wire response. Handlers may return one to
// control status, headers and body directly; Coerce passes it through.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// JSON builds a response with an indented JSON body.
func JSON(status int, v any) (*Response, error) {
	body, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, err
	}
	return &Response{
		Status:  status,
		Headers: http.Header{"Content-Type": {"application/json"}},
		Body:    body,
	}, nil
}

// Coerce maps any handler result to a Response. It never fails:
//
//   - *Response and Response pass through unchanged.
//   - Structs, non-nil pointers to structs and slices are encoded as
//     indented JSON.
//   - Maps with string keys are encoded as compact JSON.
//   - []byte is written verbatim and nil yields an empty body.
//   - Anything else is written in its fmt.Sprint form.
//
// Only the JSON forms carry a Content-Type.
func Coerce(result any) *Response {
	switch v := result.(type) {
	case *Response:
		if v != nil {
			return v
		}
		return &Response{Status: http.StatusOK}
	case Response:
		return &v
	case nil:
		return &Response{Status: http.StatusOK}
	case []byte:
		return &Response{Status: http.StatusOK, Body: v}
	case string:
		return &Response{Status: http.StatusOK, Body: []byte(v)}
	}

	rv := reflect.ValueOf(result)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return &Response{Status: http.StatusOK}
	}

	if isTypedObject(rv.Type()) {
		if body, err := json.MarshalIndent(result, "", "    "); err == nil {
			return jsonResponse(body)
		}
	} else if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		if body, err := json.Marshal(result); err == nil {
			return jsonResponse(body)
		}
	}

	return &Response{Status: http.StatusOK, Body: []byte(fmt.Sprint(result))}
}

func isTypedObject(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == reflect.TypeFor[time.Time]() {
		return false
	}
	//exhaustive:ignore
	switch t.Kind() {
	case reflect.Struct, reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}

func jsonResponse(body []byte) *Response {
	return &Response{
		Status:  http.StatusOK,
		Headers: http.Header{"Content-Type": {"application/json"}},
		Body:    body,
	}
}

// writeTo writes the response. A missing Content-Type is left unset rather
// than sniffed.
func (resp *Response) writeTo(w http.ResponseWriter) {
	h := w.Header()
	for k, vs := range resp.Headers {
		h[k] = append([]string(nil), vs...)
	}
	if _, ok := resp.Headers["Content-Type"]; !ok {
		if h.Get("Content-Type") == "" {
			h["Content-Type"] = nil
		}
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(resp.Body) > 0 {
		//nolint:errcheck,gosec // best-effort after WriteHeader
		w.Write(resp.Body)
	}
}
