package mlapi

import "net/http"

// BodyLimit returns middleware that limits the maximum request body size.
// Typed handlers answer 413 Payload Too Large when the limit is exceeded.
// A non-positive limit disables the check.
func BodyLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
