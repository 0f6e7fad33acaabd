// Package middleware holds endpoint hooks registered with Router.UseHooks.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/bjaus/mlapi"
)

// SpecPath is the endpoint serving the JSON OpenAPI document.
const SpecPath = "/openapi.json"

// FileEndpointLister reports the paths of routes that accept file uploads.
// *mlapi.Router implements it.
type FileEndpointLister interface {
	FileUploadEndpoints() []string
}

// FileUploadOpenAPI rewrites the generated OpenAPI document so that every
// file-upload endpoint documents a multipart/form-data body with a single
// required binary "file" part.
type FileUploadOpenAPI struct {
	files FileEndpointLister
}

// NewFileUploadOpenAPI returns the hook for the endpoints listed by files.
func NewFileUploadOpenAPI(files FileEndpointLister) *FileUploadOpenAPI {
	return &FileUploadOpenAPI{files: files}
}

// Endpoints implements mlapi.Hook.
func (*FileUploadOpenAPI) Endpoints() []string { return []string{SpecPath} }

// After implements mlapi.AfterHook. Any failure leaves resp untouched.
func (h *FileUploadOpenAPI) After(_ *http.Request, resp *mlapi.Response) *mlapi.Response {
	endpoints := h.files.FileUploadEndpoints()
	if len(endpoints) == 0 || resp.Status != http.StatusOK {
		return resp
	}

	body, err := patchSpec(resp.Body, endpoints)
	if err != nil {
		return resp
	}

	headers := resp.Headers.Clone()
	headers.Del("Content-Length")
	return &mlapi.Response{Status: resp.Status, Headers: headers, Body: body}
}

func patchSpec(raw []byte, endpoints []string) ([]byte, error) {
	var spec map[string]any
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, err
	}
	paths, _ := spec["paths"].(map[string]any)

	for _, ep := range endpoints {
		item, ok := paths[mlapi.OpenAPIPath(ep)].(map[string]any)
		if !ok {
			continue
		}
		for method, op := range item {
			operation, ok := op.(map[string]any)
			if !ok {
				continue
			}
			operation["requestBody"] = fileRequestBody()
			item[method] = operation
		}
	}

	return json.Marshal(spec)
}

func fileRequestBody() map[string]any {
	return map[string]any{
		"required": true,
		"content": map[string]any{
			"multipart/form-data": map[string]any{
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"file": map[string]any{
							"type":        "string",
							"format":      "binary",
							"description": "File to upload",
						},
					},
					"required": []string{"file"},
				},
			},
		},
	}
}
