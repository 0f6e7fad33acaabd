package routes_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/mlapi"
	"github.com/bjaus/mlapi/apitest"
	"github.com/bjaus/mlapi/config"
	"github.com/bjaus/mlapi/events"
	"github.com/bjaus/mlapi/lifespan"
	"github.com/bjaus/mlapi/routes"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouter() *mlapi.Router {
	settings := config.Default()
	settings.Name = "ML API"
	settings.Version = "1.0.0"

	r := mlapi.New(mlapi.WithLogger(quiet()))
	routes.Register(r, settings, quiet())
	return r
}

func TestHealth(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, newRouter())
	resp := apitest.Get[routes.HealthResponse](t, c, "/health")

	require.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.Body)
	assert.Equal(t, routes.HealthResponse{Status: "healthy", Service: "ML API", Version: "1.0.0"}, *resp.Body)
}

func TestUpload(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, newRouter())
	resp := apitest.Upload[routes.FilesResponse](t, c, "/files/upload", []apitest.File{
		{Field: "file", Filename: "model.bin", Data: []byte("weights")},
		{Field: "config", Filename: "config.json", Data: []byte("{}")},
	}, nil)

	require.Equal(t, http.StatusOK, resp.Status, string(resp.Bytes))
	assert.JSONEq(t, `{"files":[{"name":"config","size":2},{"name":"file","size":7}]}`, string(resp.Bytes))
}

func TestUpload_missing_files(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, newRouter())
	resp := apitest.Upload[map[string]any](t, c, "/files/upload", nil, map[string]string{"note": "empty"})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.JSONEq(t, `{"error":"missing_files","required":["file"]}`, string(resp.Bytes))
}

func TestDigest(t *testing.T) {
	t.Parallel()

	lc := lifespan.New(lifespan.WithLogger(quiet())).Register(events.WorkerPool(2))
	ctx := context.Background()
	require.NoError(t, lc.Startup(ctx))
	t.Cleanup(func() { require.NoError(t, lc.Shutdown(ctx)) })

	r := newRouter()
	mlapi.Inject(r, lc.State)

	c := apitest.NewClient(t, r)
	resp := apitest.Upload[routes.FilesResponse](t, c, "/files/digest", []apitest.File{
		{Field: "a", Filename: "a.txt", Data: []byte("hello")},
		{Field: "b", Filename: "b.txt", Data: []byte("world")},
	}, nil)

	require.Equal(t, http.StatusOK, resp.Status, string(resp.Bytes))
	require.NotNil(t, resp.Body)
	require.Len(t, resp.Body.Files, 2)

	for i, data := range []string{"hello", "world"} {
		sum := sha256.Sum256([]byte(data))
		assert.Equal(t, hex.EncodeToString(sum[:]), resp.Body.Files[i].SHA256)
		assert.Equal(t, 5, resp.Body.Files[i].Size)
	}
	assert.Equal(t, "a", resp.Body.Files[0].Name)
}

func TestDigest_without_pool(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, newRouter())
	resp := apitest.Upload[map[string]any](t, c, "/files/digest", []apitest.File{
		{Field: "file", Filename: "a.txt", Data: []byte("x")},
	}, nil)

	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.Equal(t, "worker pool not ready", resp.Problem(t).Detail)
}

func TestRegister_file_endpoints(t *testing.T) {
	t.Parallel()

	r := newRouter()
	assert.Equal(t, []string{"/files/digest", "/files/upload"}, r.FileUploadEndpoints())

	op := r.Spec().Paths["/files/upload"]["post"]
	assert.Equal(t, "post_files_upload", op.OperationID)
	assert.Equal(t, []string{"files"}, op.Tags)
}
