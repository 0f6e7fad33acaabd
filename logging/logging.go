// Package logging configures the service's slog loggers.
//
// Two renderings are available. Debug mode writes one human-readable line
// per record with pipe-separated fields; otherwise records are JSON.
// Both apply the same message rules: messages are upper-cased, cut to
// MaxMessageLen runes and may carry an Icon attribute, which is prepended
// to the message in debug mode and dropped otherwise.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// MaxMessageLen is the longest message kept before truncation.
const MaxMessageLen = 80

// Config configures New.
type Config struct {
	// Debug selects the human-readable pipe rendering.
	Debug bool
	// AppName is attached to every record as "app" when set.
	AppName string
	// Level is the minimum level logged. Defaults to slog.LevelInfo.
	Level slog.Leveler
	// ContextAttrs extracts request-scoped attributes (e.g. a request ID)
	// from the record's context. Only used for JSON output.
	ContextAttrs func(ctx context.Context) []slog.Attr
}

// New returns a logger writing to w.
func New(w io.Writer, cfg Config) *slog.Logger {
	level := cfg.Level
	if level == nil {
		level = slog.LevelInfo
	}

	var inner slog.Handler
	if cfg.Debug {
		inner = newPipeHandler(w, level)
	} else {
		inner = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, AddSource: true})
	}

	logger := slog.New(&rulesHandler{
		next:         inner,
		debug:        cfg.Debug,
		contextAttrs: cfg.ContextAttrs,
	})
	if cfg.AppName != "" {
		logger = logger.With(slog.String("app", cfg.AppName))
	}
	return logger
}

// rulesHandler rewrites record messages before handing them on.
type rulesHandler struct {
	next         slog.Handler
	debug        bool
	contextAttrs func(context.Context) []slog.Attr
}

func (h *rulesHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *rulesHandler) Handle(ctx context.Context, rec slog.Record) error {
	icon := IconDefault
	out := slog.NewRecord(rec.Time, rec.Level, "", rec.PC)

	var iconErr error
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key != IconKey {
			out.AddAttrs(a)
			return true
		}
		parsed, err := ParseIcon(a.Value.String())
		if err != nil {
			iconErr = err
			return false
		}
		icon = parsed
		return true
	})
	if iconErr != nil {
		return iconErr
	}

	msg := strings.ToUpper(truncate(rec.Message, MaxMessageLen))
	if h.debug {
		msg = string(icon) + " " + msg
	} else if h.contextAttrs != nil {
		out.AddAttrs(h.contextAttrs(ctx)...)
	}
	out.Message = msg

	return h.next.Handle(ctx, out)
}

func (h *rulesHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &rulesHandler{next: h.next.WithAttrs(attrs), debug: h.debug, contextAttrs: h.contextAttrs}
}

func (h *rulesHandler) WithGroup(name string) slog.Handler {
	return &rulesHandler{next: h.next.WithGroup(name), debug: h.debug, contextAttrs: h.contextAttrs}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
