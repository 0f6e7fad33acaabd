package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/mlapi/logging"
)

type ctxKey struct{}

var testTime = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

func TestNew_json(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(&buf, logging.Config{
		AppName: "svc",
		ContextAttrs: func(ctx context.Context) []slog.Attr {
			if id, ok := ctx.Value(ctxKey{}).(string); ok {
				return []slog.Attr{slog.String("request_id", id)}
			}
			return nil
		},
	})

	ctx := context.WithValue(context.Background(), ctxKey{}, "abc123")
	logger.InfoContext(ctx, "health check requested", logging.IconHealthcheck.Attr(), slog.Int("n", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, "HEALTH CHECK REQUESTED", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "svc", rec["app"])
	assert.Equal(t, "abc123", rec["request_id"])
	assert.InDelta(t, 3, rec["n"], 0)
	assert.NotContains(t, rec, logging.IconKey)
	assert.Contains(t, rec, "source")
}

func TestNew_debug_pipe_format(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(&buf, logging.Config{Debug: true})

	logger.Info("event ready", logging.IconSuccess.Attr(), slog.String("name", "metrics"))

	line := strings.TrimSpace(buf.String())
	parts := strings.Split(line, " | ")
	require.Len(t, parts, 5, line)

	assert.Equal(t, "INFO", parts[1])
	assert.Equal(t, string(logging.IconSuccess)+" EVENT READY", parts[2])
	assert.Equal(t, "name=metrics", parts[3])
	assert.Contains(t, parts[4], "logging_test.go:")
}

func TestNew_debug_groups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(&buf, logging.Config{Debug: true}).
		With(slog.String("app", "svc")).
		WithGroup("req")

	logger.Info("hello", slog.String("method", "GET"))

	out := buf.String()
	assert.Contains(t, out, "app=svc")
	assert.Contains(t, out, "req.method=GET")
}

func TestNew_message_rules(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		msg  string
		want string
	}{
		"upper-cased": {
			msg:  "starting event",
			want: "STARTING EVENT",
		},
		"truncated": {
			msg:  strings.Repeat("a", 100),
			want: strings.Repeat("A", logging.MaxMessageLen),
		},
		"short message untouched length": {
			msg:  "ok",
			want: "OK",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logging.New(&buf, logging.Config{}).Info(tc.msg)

			var rec map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
			assert.Equal(t, tc.want, rec["msg"])
		})
	}
}

func TestNew_unknown_icon_rejected(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := logging.New(&buf, logging.Config{}).Handler()

	rec := slog.NewRecord(testTime, slog.LevelInfo, "oops", 0)
	rec.AddAttrs(slog.String(logging.IconKey, "🦄"))

	err := handler.Handle(context.Background(), rec)
	require.ErrorIs(t, err, logging.ErrUnknownIcon)
	assert.Empty(t, buf.String())
}

func TestNew_level_filter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(&buf, logging.Config{Level: slog.LevelWarn, Debug: true})

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "HIDDEN")
	assert.Contains(t, buf.String(), "SHOWN")
}

func TestParseIcon(t *testing.T) {
	t.Parallel()

	icon, err := logging.ParseIcon(string(logging.IconUpload))
	require.NoError(t, err)
	assert.Equal(t, logging.IconUpload, icon)

	_, err = logging.ParseIcon("nope")
	assert.ErrorIs(t, err, logging.ErrUnknownIcon)
}
