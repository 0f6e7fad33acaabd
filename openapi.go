package mlapi

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// OpenAPISpec is the top-level OpenAPI 3.1 document.
type OpenAPISpec struct {
	OpenAPI string              `json:"openapi" yaml:"openapi"`
	Info    OpenAPIInfo         `json:"info" yaml:"info"`
	Paths   map[string]PathItem `json:"paths" yaml:"paths"`
}

// OpenAPIInfo holds API metadata.
type OpenAPIInfo struct {
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
}

// PathItem maps HTTP methods to operations.
type PathItem map[string]Operation

// Operation describes a single API operation on a path.
type Operation struct {
	Summary     string        `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	OperationID string        `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []Parameter   `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody  `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   OperationResp `json:"responses" yaml:"responses"`
	Deprecated  bool          `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string     `json:"name" yaml:"name"`
	In          string     `json:"in" yaml:"in"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      JSONSchema `json:"schema" yaml:"schema"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Required bool                `json:"required" yaml:"required"`
	Content  map[string]MediaObj `json:"content" yaml:"content"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema *JSONSchema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// OperationResp maps HTTP status codes to response objects.
type OperationResp map[string]ResponseObj

// ResponseObj describes a single response.
type ResponseObj struct {
	Description string              `json:"description" yaml:"description"`
	Content     map[string]MediaObj `json:"content,omitempty" yaml:"content,omitempty"`
}

// Spec generates the full OpenAPI 3.1 specification from registered routes.
func (r *Router) Spec() OpenAPISpec {
	spec := OpenAPISpec{
		OpenAPI: "3.1.0",
		Info: OpenAPIInfo{
			Title:   r.title,
			Version: r.version,
		},
		Paths: make(map[string]PathItem),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.routes {
		ri := &r.routes[i]
		path := OpenAPIPath(ri.pattern)

		if spec.Paths[path] == nil {
			spec.Paths[path] = make(PathItem)
		}
		spec.Paths[path][strings.ToLower(ri.method)] = buildOperation(ri)
	}

	return spec
}

// buildOperation creates an Operation from a routeInfo.
func buildOperation(ri *routeInfo) Operation {
	op := Operation{
		Summary:     ri.summary,
		Description: ri.desc,
		Tags:        ri.tags,
		OperationID: ri.operationID,
		Deprecated:  ri.deprecated,
		Responses:   make(OperationResp),
	}
	if op.OperationID == "" {
		op.OperationID = generateOperationID(ri.method, ri.pattern)
	}

	if ri.reqType != nil && ri.reqType != reflect.TypeFor[Void]() {
		op.Parameters = extractParameters(ri.reqType)
		op.RequestBody = extractRequestBody(ri.binding)
	}

	status := ri.status
	if status == 0 {
		status = http.StatusOK
	}

	switch {
	case ri.respType == nil:
		op.Responses[strconv.Itoa(status)] = ResponseObj{Description: "Successful response"}
	case ri.respType == reflect.TypeFor[Void]():
		op.Responses[strconv.Itoa(status)] = ResponseObj{Description: "No content"}
	default:
		op.Responses[strconv.Itoa(status)] = responseFor(ri.respType)
	}

	errCodes := ri.errors
	if op.RequestBody != nil {
		errCodes = append([]int{http.StatusUnprocessableEntity}, errCodes...)
	}
	problem := typeToSchema(reflect.TypeFor[ProblemDetail]())
	for _, code := range errCodes {
		op.Responses[strconv.Itoa(code)] = ResponseObj{
			Description: http.StatusText(code),
			Content: map[string]MediaObj{
				"application/problem+json": {Schema: &problem},
			},
		}
	}

	return op
}

// responseFor describes a success response the way Coerce will encode it.
func responseFor(t reflect.Type) ResponseObj {
	resp := ResponseObj{Description: "Successful response"}
	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	switch {
	case base == reflect.TypeFor[Response]():
	case isTypedObject(t), base.Kind() == reflect.Map && base.Key().Kind() == reflect.String:
		schema := typeToSchema(t)
		resp.Content = map[string]MediaObj{"application/json": {Schema: &schema}}
	case base.Kind() == reflect.Slice && base.Elem().Kind() == reflect.Uint8:
		resp.Content = map[string]MediaObj{"application/octet-stream": {}}
	default:
		resp.Content = map[string]MediaObj{"text/plain": {Schema: &JSONSchema{Type: "string"}}}
	}
	return resp
}

// extractParameters builds OpenAPI parameters from param-tagged fields.
func extractParameters(t reflect.Type) []Parameter {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var params []Parameter
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		for _, in := range paramTags {
			name := f.Tag.Get(in)
			if name == "" {
				continue
			}

			p := Parameter{
				Name:        name,
				In:          in,
				Description: f.Tag.Get("doc"),
				Required:    in == "path" || f.Tag.Get("required") == "true",
				Schema:      typeToSchema(f.Type),
			}
			applyConstraintTags(&p.Schema, f.Tag)
			params = append(params, p)
		}
	}

	return params
}

// extractRequestBody describes the body the route's binding will accept.
// File routes are multipart; otherwise the first body parameter decides
// the media type.
func extractRequestBody(b binding) *RequestBody {
	if len(b.files) > 0 {
		schema := JSONSchema{Type: "object", Properties: make(map[string]JSONSchema)}
		for _, name := range b.files {
			schema.Properties[name] = JSONSchema{Type: "string", Format: "binary"}
		}
		for _, p := range b.body {
			schema.Properties[p.Name] = typeToSchema(p.typ)
		}
		schema.Required = b.files
		return &RequestBody{
			Required: true,
			Content:  map[string]MediaObj{"multipart/form-data": {Schema: &schema}},
		}
	}

	if len(b.body) == 0 {
		return nil
	}

	p := b.body[0]
	switch p.Kind {
	case BodyRaw:
		return &RequestBody{
			Required: true,
			Content:  map[string]MediaObj{"application/octet-stream": {Schema: &JSONSchema{Type: "string", Format: "binary"}}},
		}
	case BodyJSON:
		return &RequestBody{
			Required: true,
			Content:  map[string]MediaObj{"application/json": {Schema: &JSONSchema{Type: "object"}}},
		}
	default:
		schema := typeToSchema(p.typ)
		return &RequestBody{
			Required: true,
			Content:  map[string]MediaObj{"application/json": {Schema: &schema}},
		}
	}
}

// generateOperationID derives an operationId such as "post_files_upload"
// from the method and pattern.
func generateOperationID(method, pattern string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, seg := range strings.Split(strings.Trim(pattern, "/"), "/") {
		seg = strings.Trim(seg, "{}.")
		seg = strings.TrimSuffix(seg, "...")
		if seg == "" {
			continue
		}
		b.WriteByte('_')
		b.WriteString(strings.NewReplacer("-", "_", ".", "_").Replace(seg))
	}
	return b.String()
}

// OpenAPIPath converts a ServeMux pattern like "/files/{path...}" to an
// OpenAPI path.
func OpenAPIPath(pattern string) string {
	return strings.ReplaceAll(pattern, "...", "")
}
