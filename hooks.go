package mlapi

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/bjaus/mlapi/logging"
)

// ErrHookless is returned by UseHooks for a hook that implements neither
// BeforeHook nor AfterHook.
var ErrHookless = errors.New("hook implements neither Before nor After")

// Hook is endpoint-scoped middleware working on whole responses. It must
// also implement BeforeHook, AfterHook or both.
type Hook interface {
	// Endpoints lists the paths the hook applies to. An empty list means
	// every endpoint registered at the time UseHooks is called.
	Endpoints() []string
}

// BeforeHook inspects or replaces the incoming request. Returning a
// non-nil Response short-circuits the handler.
type BeforeHook interface {
	Hook
	Before(r *http.Request) (*http.Request, *Response)
}

// AfterHook transforms the outgoing response.
type AfterHook interface {
	Hook
	After(r *http.Request, resp *Response) *Response
}

// hookChain holds the hooks for one endpoint in registration order.
type hookChain struct {
	befores []BeforeHook
	afters  []AfterHook
}

// UseHooks registers hooks. No hook is registered if any implements
// neither capability.
func (r *Router) UseHooks(hooks ...Hook) error {
	for _, h := range hooks {
		_, before := h.(BeforeHook)
		_, after := h.(AfterHook)
		if !before && !after {
			return fmt.Errorf("%w: %T", ErrHookless, h)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range hooks {
		endpoints := h.Endpoints()
		if len(endpoints) == 0 {
			endpoints = slices.Clone(r.endpoints)
		}
		for _, ep := range endpoints {
			ep = normalizePath(ep)
			chain, ok := r.chains[ep]
			if !ok {
				chain = &hookChain{}
				r.chains[ep] = chain
			}
			if b, ok := h.(BeforeHook); ok {
				chain.befores = append(chain.befores, b)
			}
			if a, ok := h.(AfterHook); ok {
				chain.afters = append(chain.afters, a)
			}
		}
		r.hooks = append(r.hooks, h)

		r.logger.Info("registered middleware",
			logging.IconSuccess.Attr(),
			slog.String("hook", fmt.Sprintf("%T", h)),
			slog.Any("endpoints", endpoints),
		)
	}
	return nil
}

// Hooks returns the registered hooks in registration order.
func (r *Router) Hooks() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.hooks)
}

func (r *Router) chain(path string) (befores []BeforeHook, afters []AfterHook) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.chains[path]
	if !ok {
		return nil, nil
	}
	return c.befores, c.afters
}

// hooked wraps next with the hooks registered for path. The chain is
// looked up per request so hooks naming path explicitly apply whether
// they were registered before or after the route.
func (r *Router) hooked(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		befores, afters := r.chain(path)

		for _, b := range befores {
			out, resp := b.Before(req)
			if resp != nil {
				resp.writeTo(w)
				return
			}
			if out != nil {
				req = out
			}
		}

		if len(afters) == 0 {
			next.ServeHTTP(w, req)
			return
		}

		rec := &captureWriter{header: make(http.Header), status: http.StatusOK}
		next.ServeHTTP(rec, req)

		resp := rec.response()
		for _, a := range afters {
			if out := a.After(req, resp); out != nil {
				resp = out
			}
		}
		resp.writeTo(w)
	})
}

// captureWriter buffers a response so after-hooks can rewrite it.
type captureWriter struct {
	header      http.Header
	buf         bytes.Buffer
	status      int
	wroteHeader bool
}

func (c *captureWriter) Header() http.Header { return c.header }

func (c *captureWriter) WriteHeader(code int) {
	if !c.wroteHeader {
		c.status = code
		c.wroteHeader = true
	}
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.wroteHeader = true
	return c.buf.Write(b)
}

func (c *captureWriter) response() *Response {
	return &Response{
		Status:  c.status,
		Headers: c.header,
		Body:    c.buf.Bytes(),
	}
}
