// Command server runs the ML API.
//
// Run:
//
//	go run ./cmd/server
//	go run ./cmd/server -config config.yaml
//
// Generate the OpenAPI spec:
//
//	go run ./cmd/server -spec                 print JSON to stdout
//	go run ./cmd/server -spec -o openapi.yaml write to file (format from extension)
//
// Endpoints:
//
//	GET  /health         health check
//	POST /files/upload   multipart upload, reports file sizes
//	POST /files/digest   multipart upload, SHA-256 per file on the worker pool
//	GET  /openapi.json   OpenAPI spec (also /openapi.yaml)
//	GET  /docs           Swagger UI
//	GET  /metrics        Prometheus metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bjaus/mlapi"
	"github.com/bjaus/mlapi/config"
	"github.com/bjaus/mlapi/events"
	"github.com/bjaus/mlapi/lifespan"
	"github.com/bjaus/mlapi/logging"
	"github.com/bjaus/mlapi/metrics"
	"github.com/bjaus/mlapi/middleware"
	"github.com/bjaus/mlapi/routes"
)

func main() {
	configFlag := flag.String("config", "", "Path to the YAML settings file (default "+config.DefaultPath+" if present)")
	specFlag := flag.Bool("spec", false, "Print the OpenAPI spec and exit")
	outFlag := flag.String("o", "", "Output file for the spec (requires -spec)")
	flag.Parse()

	if err := run(*configFlag, *specFlag, *outFlag); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, spec bool, out string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stdout, settings)
	slog.SetDefault(logger)

	lc := lifespan.New(
		lifespan.WithLogger(logger),
		lifespan.WithVersion(settings.Version),
	)
	lc.Register(events.Metrics("mlapi")).
		Register(events.WorkerPool(settings.MaxWorkers))

	r, err := newRouter(settings, logger, lc)
	if err != nil {
		return err
	}

	if spec {
		return writeSpec(r, out)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server",
		logging.IconNetwork.Attr(),
		slog.String("addr", settings.Addr()),
		slog.String("docs", settings.APIURL()+"/docs"),
	)

	if err := r.ListenAndServe(ctx, settings.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("server stopped", logging.IconSuccess.Attr())
	return nil
}

func newLogger(w io.Writer, settings config.Settings) *slog.Logger {
	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	return logging.New(w, logging.Config{
		Debug:        settings.Debug,
		AppName:      settings.Name,
		Level:        level,
		ContextAttrs: mlapi.RequestIDAttrs,
	})
}

// newRouter wires middleware, routes, docs and lifecycle handlers.
func newRouter(settings config.Settings, logger *slog.Logger, lc *lifespan.Lifespan) (*mlapi.Router, error) {
	r := mlapi.New(
		mlapi.WithTitle(settings.Name),
		mlapi.WithVersion(settings.Version),
		mlapi.WithLogger(logger),
	)

	mlapi.Inject(r, lc.State)

	r.Use(
		mlapi.Recovery(logger),
		mlapi.RequestID(),
		mlapi.Logger(logger),
		metrics.Middleware(events.MetricsFrom),
		mlapi.CORS(mlapi.CORSConfig{AllowOrigins: settings.CORSOrigins}),
		mlapi.RateLimit(mlapi.RateLimitConfig{Rate: settings.RateLimit, Burst: settings.RateBurst}),
		mlapi.BodyLimit(settings.MaxBodyBytes),
		mlapi.Timeout(settings.RequestTimeout),
	)

	routes.Register(r, settings, logger)

	r.ServeSpec(middleware.SpecPath)
	r.ServeSpecYAML("/openapi.yaml")
	r.ServeDocs("/docs")
	mlapi.Raw(r, http.MethodGet, "/metrics", metrics.Serve(events.MetricsFrom).ServeHTTP, mlapi.OperationInfo{
		Summary:     "Prometheus metrics",
		Description: "Exposition of request, worker pool and runtime metrics.",
		Tags:        []string{"ops"},
		Errors:      []int{http.StatusServiceUnavailable},
	})

	if err := r.UseHooks(middleware.NewFileUploadOpenAPI(r)); err != nil {
		return nil, err
	}

	r.OnStartup(lc.Startup)
	r.OnShutdown(lc.Shutdown)
	return r, nil
}

func writeSpec(r *mlapi.Router, out string) error {
	w := io.Writer(os.Stdout)
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close() //nolint:errcheck // closed explicitly below on success
		w = f
	}

	var err error
	switch filepath.Ext(out) {
	case ".yaml", ".yml":
		err = r.WriteSpecYAML(w)
	default:
		err = r.WriteSpec(w)
	}
	if err != nil {
		return fmt.Errorf("write spec: %w", err)
	}
	if f, ok := w.(*os.File); ok && out != "" {
		return f.Close()
	}
	return nil
}
