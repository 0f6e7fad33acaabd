package mlapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
)

// RequestIDHeader is the header read and echoed by RequestID.
const RequestIDHeader = "X-Request-ID"

// requestID is the context value type set by RequestID.
type requestID string

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header    string        // default: RequestIDHeader
	Generator func() string // default: 16 random bytes, hex encoded
}

// RequestID returns middleware that tags every request with an ID. An
// incoming header value is reused, otherwise one is generated. The ID is
// echoed in the response header and is available to handlers and log
// records through RequestIDFromContext.
func RequestID(cfg ...RequestIDConfig) Middleware {
	c := RequestIDConfig{Header: RequestIDHeader, Generator: newRequestID}
	if len(cfg) > 0 {
		if cfg[0].Header != "" {
			c.Header = cfg[0].Header
		}
		if cfg[0].Generator != nil {
			c.Generator = cfg[0].Generator
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(c.Header)
			if id == "" {
				id = c.Generator()
			}
			w.Header().Set(c.Header, id)
			next.ServeHTTP(w, SetValue(r, requestID(id)))
		})
	}
}

// RequestIDFromContext returns the ID stored by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := GetValue[requestID](ctx)
	return string(id)
}

// RequestIDAttrs returns the request_id attribute for ctx. It matches the
// logging.Config ContextAttrs signature.
func RequestIDAttrs(ctx context.Context) []slog.Attr {
	if id := RequestIDFromContext(ctx); id != "" {
		return []slog.Attr{slog.String("request_id", id)}
	}
	return nil
}

func newRequestID() string {
	b := make([]byte, 16)
	//nolint:errcheck,gosec // crypto/rand.Read never fails
	rand.Read(b)
	return hex.EncodeToString(b)
}
