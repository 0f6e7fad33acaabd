package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
)

// pipeHandler renders records as
//
//	2026-01-02T15:04:05.000Z | INFO | MESSAGE | k=v | k2=v2 | file.go:42
type pipeHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

func newPipeHandler(w io.Writer, level slog.Leveler) *pipeHandler {
	return &pipeHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *pipeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *pipeHandler) Handle(_ context.Context, rec slog.Record) error {
	parts := make([]string, 0, 5)
	if !rec.Time.IsZero() {
		parts = append(parts, rec.Time.Format("2006-01-02T15:04:05.000Z07:00"))
	}
	parts = append(parts, rec.Level.String(), rec.Message)

	var kv []string
	for _, a := range h.attrs {
		kv = appendAttr(kv, "", a)
	}
	prefix := groupPrefix(h.groups)
	rec.Attrs(func(a slog.Attr) bool {
		kv = appendAttr(kv, prefix, a)
		return true
	})
	if len(kv) > 0 {
		parts = append(parts, strings.Join(kv, " | "))
	}

	if rec.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{rec.PC}).Next()
		if frame.File != "" {
			parts = append(parts, fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line))
		}
	}

	line := strings.Join(parts, " | ") + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line)
	return err
}

func (h *pipeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := groupPrefix(h.groups)
	qualified := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		qualified = append(qualified, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &pipeHandler{
		mu:     h.mu,
		w:      h.w,
		level:  h.level,
		attrs:  append(slices.Clip(h.attrs), qualified...),
		groups: h.groups,
	}
}

func (h *pipeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &pipeHandler{
		mu:     h.mu,
		w:      h.w,
		level:  h.level,
		attrs:  h.attrs,
		groups: append(slices.Clip(h.groups), name),
	}
}

func appendAttr(kv []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return kv
	}
	if a.Value.Kind() == slog.KindGroup {
		nested := prefix
		if a.Key != "" {
			nested = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			kv = appendAttr(kv, nested, ga)
		}
		return kv
	}
	return append(kv, prefix+a.Key+"="+a.Value.String())
}

func groupPrefix(groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	return strings.Join(groups, ".") + "."
}
