package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
)

// Config holds the configuration of the logger.
type Config struct {
	Level  slog.Level
	Format string
}

type contextKey string

// ContextKeyRequestID is the key for the request ID in the context.
const ContextKeyRequestID contextKey = "request_id"

// FromConfig maps the textual level and format from the environment.
// Unknown levels fall back to info.
func FromConfig(level, format string) Config {
	cfg := Config{
		Level:  slog.LevelInfo,
		Format: "text",
	}

	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = slog.LevelDebug
	case "warn":
		cfg.Level = slog.LevelWarn
	case "error":
		cfg.Level = slog.LevelError
	}

	if strings.ToLower(format) == "json" {
		cfg.Format = "json"
	}
	return cfg
}

// New creates a logger writing to stdout.
func New(cfg Config) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter creates a logger writing to w: JSON lines for the json
// format, colored tint output otherwise.
func NewWithWriter(w io.Writer, cfg Config) *slog.Logger {
	if cfg.Format == "json" {
		opts := &slog.HandlerOptions{
			Level: cfg.Level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String(a.Key, a.Value.Time().Format(time.RFC3339))
				}
				return a
			},
		}
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      cfg.Level,
		TimeFormat: time.Kitchen,
	}))
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

// GenerateRequestID generates a new request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// FromContext returns l annotated with the request ID carried by ctx.
func FromContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return l.With(slog.String("request_id", id))
	}
	return l
}
