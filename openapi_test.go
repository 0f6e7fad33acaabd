package mlapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bjaus/mlapi"
)

type node struct {
	Name     string  `json:"name" doc:"node name"`
	Children []*node `json:"children,omitempty"`
}

func specRouter() *mlapi.Router {
	r := quietRouter(mlapi.WithTitle("ML API"), mlapi.WithVersion("1.2.3"))
	mlapi.Get(r, "/health", func(context.Context, *mlapi.Void) (map[string]string, error) {
		return nil, nil
	}, mlapi.WithSummary("Health"), mlapi.WithTags("ops"))
	mlapi.Post(r, "/models/{model}/predict", func(context.Context, *predictRequest) (predictResponse, error) {
		return predictResponse{}, nil
	}, mlapi.WithErrors(http.StatusNotFound))
	mlapi.Post(r, "/files/upload", func(context.Context, *uploadRequest) (string, error) {
		return "", nil
	})
	mlapi.Delete(r, "/models/{model}", func(context.Context, *struct {
		Model string `path:"model"`
	}) (mlapi.Void, error) {
		return mlapi.Void{}, nil
	}, mlapi.WithDeprecated(), mlapi.WithOperationID("remove_model"))
	return r
}

func TestSpec_document(t *testing.T) {
	t.Parallel()

	spec := specRouter().Spec()

	assert.Equal(t, "3.1.0", spec.OpenAPI)
	assert.Equal(t, "ML API", spec.Info.Title)
	assert.Equal(t, "1.2.3", spec.Info.Version)
	assert.Len(t, spec.Paths, 4)
}

func TestSpec_operations(t *testing.T) {
	t.Parallel()

	spec := specRouter().Spec()

	health := spec.Paths["/health"]["get"]
	assert.Equal(t, "get_health", health.OperationID)
	assert.Equal(t, "Health", health.Summary)
	assert.Equal(t, []string{"ops"}, health.Tags)
	assert.Nil(t, health.RequestBody)
	assert.Contains(t, health.Responses["200"].Content, "application/json")

	predict := spec.Paths["/models/{model}/predict"]["post"]
	assert.Equal(t, "post_models_model_predict", predict.OperationID)
	require.NotNil(t, predict.RequestBody)
	body := predict.RequestBody.Content["application/json"].Schema
	require.NotNil(t, body)
	assert.Equal(t, []string{"name", "value"}, body.Required)
	assert.Contains(t, predict.Responses, "422")
	assert.Contains(t, predict.Responses, "404")

	var names []string
	for _, p := range predict.Parameters {
		names = append(names, p.In+":"+p.Name)
	}
	assert.Equal(t, []string{"path:model", "query:limit", "query:verbose", "header:X-Timeout", "cookie:session"}, names)
	assert.True(t, predict.Parameters[0].Required)

	remove := spec.Paths["/models/{model}"]["delete"]
	assert.Equal(t, "remove_model", remove.OperationID)
	assert.True(t, remove.Deprecated)
	assert.Contains(t, remove.Responses, "204")
}

func TestSpec_multipart_upload(t *testing.T) {
	t.Parallel()

	op := specRouter().Spec().Paths["/files/upload"]["post"]
	require.NotNil(t, op.RequestBody)
	assert.True(t, op.RequestBody.Required)

	media, ok := op.RequestBody.Content["multipart/form-data"]
	require.True(t, ok)
	require.NotNil(t, media.Schema)
	assert.Equal(t, "object", media.Schema.Type)
	assert.Equal(t, mlapi.JSONSchema{Type: "string", Format: "binary"}, media.Schema.Properties["file"])
	assert.Equal(t, []string{"file"}, media.Schema.Required)
}

func TestServeSpec(t *testing.T) {
	t.Parallel()

	r := specRouter()
	r.ServeSpec("/openapi.json")
	r.ServeSpecYAML("/openapi.yaml")

	resp, body := send(t, r, http.MethodGet, "/openapi.json", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var fromJSON mlapi.OpenAPISpec
	require.NoError(t, json.Unmarshal(body, &fromJSON))
	assert.Contains(t, fromJSON.Paths, "/files/upload")

	resp, body = send(t, r, http.MethodGet, "/openapi.yaml", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))

	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(body, &fromYAML))
	assert.Equal(t, "3.1.0", fromYAML["openapi"])

	assert.Contains(t, r.Endpoints(), "/openapi.json")
}

func TestWriteSpec(t *testing.T) {
	t.Parallel()

	r := specRouter()

	var js bytes.Buffer
	require.NoError(t, r.WriteSpec(&js))
	assert.Contains(t, js.String(), `"openapi": "3.1.0"`)

	var ym bytes.Buffer
	require.NoError(t, r.WriteSpecYAML(&ym))
	assert.Contains(t, ym.String(), "openapi: 3.1.0")
}

func TestServeDocs(t *testing.T) {
	t.Parallel()

	r := specRouter()
	r.ServeDocs("/docs", mlapi.WithDocsSpecURL("/spec.json"))

	resp, body := send(t, r, http.MethodGet, "/docs", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "<title>ML API</title>")
	assert.Contains(t, string(body), "/spec.json")
}

func TestTypeToSchema(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		typ  reflect.Type
		want mlapi.JSONSchema
	}{
		"string":  {typ: reflect.TypeFor[string](), want: mlapi.JSONSchema{Type: "string"}},
		"int ptr": {typ: reflect.TypeFor[*int](), want: mlapi.JSONSchema{Type: "integer"}},
		"bytes":   {typ: reflect.TypeFor[[]byte](), want: mlapi.JSONSchema{Type: "string", Format: "byte"}},
		"upload":  {typ: reflect.TypeFor[mlapi.Upload](), want: mlapi.JSONSchema{Type: "string", Format: "binary"}},
		"generic": {typ: reflect.TypeFor[map[string]any](), want: mlapi.JSONSchema{Type: "object"}},
		"floats": {
			typ:  reflect.TypeFor[[]float64](),
			want: mlapi.JSONSchema{Type: "array", Items: &mlapi.JSONSchema{Type: "number"}},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, mlapi.TypeToSchema(tc.typ))
		})
	}
}

func TestTypeToSchema_recursive(t *testing.T) {
	t.Parallel()

	s := mlapi.TypeToSchema(reflect.TypeFor[node]())

	assert.Equal(t, "object", s.Type)
	assert.Equal(t, "node name", s.Properties["name"].Description)
	children := s.Properties["children"]
	require.NotNil(t, children.Items)
	assert.Equal(t, mlapi.JSONSchema{Type: "object"}, *children.Items)
}

func TestTypeToSchema_constraints(t *testing.T) {
	t.Parallel()

	s := mlapi.TypeToSchema(reflect.TypeFor[modelInput]())

	name := s.Properties["name"]
	require.NotNil(t, name.MinLength)
	assert.Equal(t, 2, *name.MinLength)
	assert.Equal(t, []string{"dev", "prod"}, s.Properties["stage"].Enum)
	require.NotNil(t, s.Properties["replicas"].Maximum)
	assert.InDelta(t, 8, *s.Properties["replicas"].Maximum, 0)
	assert.Equal(t, []string{"name"}, s.Required)
}

func TestGenerateOperationID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		method, pattern, want string
	}{
		"root":     {method: "GET", pattern: "/", want: "get"},
		"upload":   {method: "POST", pattern: "/files/upload", want: "post_files_upload"},
		"param":    {method: "GET", pattern: "/models/{name}", want: "get_models_name"},
		"wildcard": {method: "GET", pattern: "/static/{path...}", want: "get_static_path"},
		"dashes":   {method: "PUT", pattern: "/model-versions", want: "put_model_versions"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, mlapi.GenerateOperationID(tc.method, tc.pattern))
		})
	}
}
