package lifespan_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/mlapi/lifespan"
)

func TestState_set_and_get(t *testing.T) {
	t.Parallel()

	s := lifespan.NewState()
	s.Set("foo", "bar")

	v, err := s.Get("foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", v)
}

func TestState_get_unknown(t *testing.T) {
	t.Parallel()

	s := lifespan.NewState()

	_, err := s.Get("missing")
	require.ErrorIs(t, err, lifespan.ErrUnknownResource)
	assert.Contains(t, err.Error(), `"missing"`)
}

func TestState_delete(t *testing.T) {
	t.Parallel()

	s := lifespan.NewState()
	s.Set("foo", "bar")
	require.NoError(t, s.Delete("foo"))

	_, err := s.Get("foo")
	require.ErrorIs(t, err, lifespan.ErrUnknownResource)
	assert.False(t, s.Has("foo"))
	assert.Equal(t, 0, s.Len())
}

func TestState_delete_unknown(t *testing.T) {
	t.Parallel()

	s := lifespan.NewState()
	assert.ErrorIs(t, s.Delete("missing"), lifespan.ErrUnknownResource)
}

func TestState_has(t *testing.T) {
	t.Parallel()

	s := lifespan.NewState()
	s.Set("foo", "bar")

	assert.True(t, s.Has("foo"))
	assert.False(t, s.Has("missing"))
}

func TestState_names_in_insertion_order(t *testing.T) {
	t.Parallel()

	s := lifespan.NewState()
	s.Set("b", 2)
	s.Set("a", 1)
	s.Set("c", 3)
	s.Set("b", 20)

	assert.Equal(t, []string{"b", "a", "c"}, slices.Collect(s.Names()))
}

func TestState_get_or(t *testing.T) {
	t.Parallel()

	s := lifespan.NewState()
	assert.Nil(t, s.GetOr("missing", nil))
	assert.Equal(t, "default", s.GetOr("missing", "default"))

	s.Set("foo", "bar")
	assert.Equal(t, "bar", s.GetOr("foo", "default"))
}

func TestState_clear(t *testing.T) {
	t.Parallel()

	s := lifespan.NewState()
	s.Set("a", 1)
	s.Set("b", 2)

	s.Clear()
	assert.False(t, s.Has("a"))
	assert.False(t, s.Has("b"))
	assert.Equal(t, 0, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestState_string(t *testing.T) {
	t.Parallel()

	s := lifespan.NewState()
	s.Set("foo", "bar")

	assert.Equal(t, "State(foo=bar)", s.String())
}

func TestLookup(t *testing.T) {
	t.Parallel()

	s := lifespan.NewState()
	s.Set("count", 42)

	tests := map[string]struct {
		name    string
		wantErr error
	}{
		"typed value": {name: "count"},
		"unknown":     {name: "missing", wantErr: lifespan.ErrUnknownResource},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			v, err := lifespan.Lookup[int](s, tc.name)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 42, v)
		})
	}
}

func TestLookup_type_mismatch(t *testing.T) {
	t.Parallel()

	s := lifespan.NewState()
	s.Set("count", 42)

	_, err := lifespan.Lookup[string](s, "count")
	require.ErrorIs(t, err, lifespan.ErrResourceType)
}
