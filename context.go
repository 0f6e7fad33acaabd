package mlapi

import (
	"context"
	"net/http"
)

// valueKey keys context values by their type, so each type holds at most
// one value per context.
type valueKey[T any] struct{}

// WithValue returns a copy of ctx carrying val.
func WithValue[T any](ctx context.Context, val T) context.Context {
	return context.WithValue(ctx, valueKey[T]{}, val)
}

// SetValue stores a typed value in the request context. For use in
// middleware and injectors.
func SetValue[T any](r *http.Request, val T) *http.Request {
	return r.WithContext(WithValue(r.Context(), val))
}

// GetValue retrieves a typed value from the context. For use in handlers.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(valueKey[T]{}).(T)
	return val, ok
}
