package mlapi_test

import (
	"context"
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bjaus/mlapi"
)

func TestUpload(t *testing.T) {
	t.Parallel()

	var u mlapi.Upload
	assert.True(t, u.Empty())

	u.Add(mlapi.File{Field: "file", Filename: "a.bin", Data: []byte("abc")})
	u.Add(mlapi.File{Field: "weights", Filename: "w.pt", Data: []byte("12345")})
	u.Add(mlapi.File{Field: "file", Filename: "b.bin", Data: []byte("z")})

	assert.False(t, u.Empty())
	assert.Equal(t, 2, u.Len())
	assert.Equal(t, []string{"file", "weights"}, u.Fields())

	f, ok := u.Get("file")
	assert.True(t, ok)
	assert.Equal(t, "b.bin", f.Filename)
	assert.Equal(t, 1, f.Size())

	_, ok = u.Get("missing")
	assert.False(t, ok)

	sizes := make(map[string]int)
	maps.Insert(sizes, func(yield func(string, int) bool) {
		for field, f := range u.All() {
			if !yield(field, f.Size()) {
				return
			}
		}
	})
	assert.Equal(t, map[string]int{"file": 1, "weights": 5}, sizes)

	files := u.Files()
	files[0].Filename = "changed"
	f, _ = u.Get("file")
	assert.Equal(t, "b.bin", f.Filename)
}

func TestContextValues(t *testing.T) {
	t.Parallel()

	type tenant string

	ctx := mlapi.WithValue(context.Background(), tenant("acme"))
	ctx = mlapi.WithValue(ctx, 42)

	got, ok := mlapi.GetValue[tenant](ctx)
	assert.True(t, ok)
	assert.Equal(t, tenant("acme"), got)

	n, ok := mlapi.GetValue[int](ctx)
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = mlapi.GetValue[string](ctx)
	assert.False(t, ok)
}
