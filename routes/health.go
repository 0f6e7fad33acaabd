package routes

import (
	"context"

	"github.com/bjaus/mlapi"
	"github.com/bjaus/mlapi/logging"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (h *handlers) health(ctx context.Context, _ *mlapi.Void) (*HealthResponse, error) {
	h.logger.InfoContext(ctx, "health check requested", logging.IconHealthcheck.Attr())
	return &HealthResponse{
		Status:  "healthy",
		Service: h.settings.Name,
		Version: h.settings.Version,
	}, nil
}
