package mlapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bjaus/mlapi/logging"
)

// shutdownTimeout bounds graceful server and shutdown handler time once
// the serving context is done.
const shutdownTimeout = 30 * time.Second

// LifecycleFunc runs when the server starts or stops.
type LifecycleFunc func(ctx context.Context) error

// Router is the central type that holds routes, middleware, and configuration.
// It implements http.Handler.
type Router struct {
	mux        *http.ServeMux
	middleware []Middleware
	routes     []routeInfo

	title   string
	version string

	validator    Validator
	errorHandler ErrorHandler
	logger       *slog.Logger

	injectors  []func(*http.Request) *http.Request
	onStartup  []LifecycleFunc
	onShutdown []LifecycleFunc

	// endpoints lists every registered path once, in registration order.
	endpoints     []string
	fileEndpoints map[string]struct{}

	hooks  []Hook
	chains map[string]*hookChain

	mu sync.RWMutex
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTitle sets the API title (used in OpenAPI spec).
func WithTitle(title string) RouterOption {
	return func(r *Router) {
		r.title = title
	}
}

// WithVersion sets the API version (used in OpenAPI spec).
func WithVersion(version string) RouterOption {
	return func(r *Router) {
		r.version = version
	}
}

// WithValidator sets a global request validator.
func WithValidator(v Validator) RouterOption {
	return func(r *Router) {
		r.validator = v
	}
}

// WithLogger sets the logger used for router events.
func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = l
	}
}

// ErrorHandler is a custom error response writer.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithErrorHandler sets a custom error handler for the router.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// New creates a new Router with the given options.
func New(opts ...RouterOption) *Router {
	r := &Router{
		mux:           http.NewServeMux(),
		logger:        slog.Default(),
		fileEndpoints: make(map[string]struct{}),
		chains:        make(map[string]*hookChain),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware to the router. Middleware is applied in the order added.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// Inject publishes the value returned by fn into every request context,
// readable with GetValue[T]. fn runs once per request, before middleware.
func Inject[T any](r *Router, fn func() T) {
	r.injectors = append(r.injectors, func(req *http.Request) *http.Request {
		return SetValue(req, fn())
	})
}

// OnStartup registers fn to run, in order, before the server accepts
// connections.
func (r *Router) OnStartup(fn LifecycleFunc) {
	r.onStartup = append(r.onStartup, fn)
}

// OnShutdown registers fn to run, in order, after the server has stopped.
func (r *Router) OnShutdown(fn LifecycleFunc) {
	r.onShutdown = append(r.onShutdown, fn)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	for _, inject := range r.injectors {
		req = inject(req)
	}
	handler := http.Handler(r.mux)
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

// ListenAndServe listens on addr and serves until ctx is cancelled. See
// Serve.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	if err := r.startup(ctx); err != nil {
		return errors.Join(err, r.shutdown(ctx))
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Join(err, r.shutdown(ctx))
	}
	return r.serve(ctx, ln)
}

// Serve runs the startup handlers, serves on ln until ctx is cancelled,
// then shuts the server down gracefully and runs the shutdown handlers.
// Shutdown handlers also run when startup fails, so partially started
// resources are released.
func (r *Router) Serve(ctx context.Context, ln net.Listener) error {
	if err := r.startup(ctx); err != nil {
		closeErr := ln.Close()
		return errors.Join(err, closeErr, r.shutdown(ctx))
	}
	return r.serve(ctx, ln)
}

func (r *Router) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	r.logger.InfoContext(ctx, "listening", logging.IconNetwork.Attr(), slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		serveErr = srv.Shutdown(shutdownCtx)
	}

	return errors.Join(serveErr, r.shutdown(ctx))
}

func (r *Router) startup(ctx context.Context) error {
	for _, fn := range r.onStartup {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	for _, fn := range r.onShutdown {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}

// addRoute registers a routeInfo with the router's mux and stores it
// for OpenAPI generation. Global middleware is applied in ServeHTTP,
// not here; only group middleware is baked into ri.handler.
func (r *Router) addRoute(ri routeInfo) {
	ri.pattern = normalizePath(ri.pattern)
	handler := r.hooked(ri.pattern, ri.handler)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.mux.Handle(ri.method+" "+ri.pattern, handler)
	r.routes = append(r.routes, ri)
	r.addEndpointLocked(ri.pattern)
	if len(ri.binding.files) > 0 {
		r.fileEndpoints[ri.pattern] = struct{}{}
	}
}

// handle registers a framework endpoint that is not part of the spec.
func (r *Router) handle(method, path string, h http.Handler) {
	path = normalizePath(path)
	handler := r.hooked(path, h)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.mux.Handle(method+" "+path, handler)
	r.addEndpointLocked(path)
}

func (r *Router) addEndpointLocked(path string) {
	if !slices.Contains(r.endpoints, path) {
		r.endpoints = append(r.endpoints, path)
	}
}

// Endpoints returns every registered path in registration order.
func (r *Router) Endpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.endpoints)
}

// FileUploadEndpoints returns the sorted paths of routes that accept file
// uploads.
func (r *Router) FileUploadEndpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.fileEndpoints))
	for p := range r.fileEndpoints {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// normalizePath collapses repeated slashes and ensures a leading slash.
func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}
