package routes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/bjaus/mlapi"
	"github.com/bjaus/mlapi/events"
	"github.com/bjaus/mlapi/logging"
	"github.com/bjaus/mlapi/workerpool"
)

// FileInfo describes one uploaded file.
type FileInfo struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	SHA256 string `json:"sha256,omitempty"`
}

// FilesResponse is the body of the file endpoints.
type FilesResponse struct {
	Files []FileInfo `json:"files"`
}

func (h *handlers) upload(ctx context.Context, req *mlapi.Upload) (*FilesResponse, error) {
	resp := &FilesResponse{Files: make([]FileInfo, 0, req.Len())}
	for field, f := range req.All() {
		resp.Files = append(resp.Files, FileInfo{Name: field, Size: f.Size()})
	}
	h.logger.InfoContext(ctx, "files uploaded", logging.IconUpload.Attr(), slog.Int("count", len(resp.Files)))
	return resp, nil
}

func (h *handlers) digest(ctx context.Context, req *mlapi.Upload) (*FilesResponse, error) {
	pool, ok := events.PoolFrom(ctx)
	if !ok {
		return nil, mlapi.Error(http.StatusServiceUnavailable, "worker pool not ready")
	}

	infos, err := workerpool.Map(ctx, pool, req.Files(), func(_ context.Context, f mlapi.File) (FileInfo, error) {
		sum := sha256.Sum256(f.Data)
		return FileInfo{Name: f.Field, Size: f.Size(), SHA256: hex.EncodeToString(sum[:])}, nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "files digested", logging.IconUpload.Attr(), slog.Int("count", len(infos)))
	return &FilesResponse{Files: infos}, nil
}
