package mlapi

import "net/http"

// RawRequest can be embedded in a request type to get access to
// the underlying *http.Request.
type RawRequest struct {
	Request *http.Request
}

// OperationInfo describes a raw handler in the OpenAPI document, since
// there are no request or response types to derive it from.
type OperationInfo struct {
	Summary     string
	Description string
	Tags        []string
	Status      int   // success status, default 200
	Errors      []int // documented problem responses
}
