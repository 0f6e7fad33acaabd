// Package routes registers the service endpoints.
package routes

import (
	"log/slog"
	"net/http"

	"github.com/bjaus/mlapi"
	"github.com/bjaus/mlapi/config"
)

// Register adds the health and file endpoints to r.
func Register(r *mlapi.Router, settings config.Settings, logger *slog.Logger) {
	h := &handlers{settings: settings, logger: logger}

	mlapi.Get(r, "/health", h.health,
		mlapi.WithSummary("Health check"),
		mlapi.WithDescription("Reports that the service is up along with its name and version."),
		mlapi.WithTags("ops"),
	)

	files := r.Group("/files", mlapi.WithGroupTags("files"))
	mlapi.Post(files, "/upload", h.upload,
		mlapi.WithSummary("Upload files"),
		mlapi.WithDescription("Accepts a multipart upload and reports the size of every file."),
	)
	mlapi.Post(files, "/digest", h.digest,
		mlapi.WithSummary("Digest files"),
		mlapi.WithDescription("Hashes every uploaded file with SHA-256 on the worker pool."),
		mlapi.WithErrors(http.StatusServiceUnavailable),
	)
}

type handlers struct {
	settings config.Settings
	logger   *slog.Logger
}
