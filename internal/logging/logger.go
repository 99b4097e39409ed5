// Package logging provides structured logging configuration.
//
// Application code logs through log/slog. The slog handler is backed by zap
// (via zapslog) so output uses zap's encoders and level gating. The package
// integrates with chi's RequestID middleware to propagate request IDs through
// structured log entries.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.Mutex
	base *zap.Logger
)

// Setup configures the global slog logger based on level and format,
// writing to stdout.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Use "json" format in production for machine parsing (ELK, CloudWatch, etc.)
// Use "text" format in development for human readability.
func Setup(level, format string) {
	SetupWriter(os.Stdout, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level, format string) {
	logger := New(w, level, format)

	mu.Lock()
	base = logger
	mu.Unlock()

	slog.SetDefault(slog.New(zapslog.NewHandler(logger.Core())))
}

// New builds a zap logger for the given level and format.
func New(w io.Writer, level, format string) *zap.Logger {
	var enc zapcore.Encoder
	if strings.ToLower(format) == "json" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "time"
		cfg.MessageKey = "msg"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), parseLevel(level))
	return zap.New(core)
}

// Sync flushes buffered log entries. Call before exit.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		return nil
	}
	return base.Sync()
}

// parseLevel converts a string log level to a zap level.
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// FromContext returns a logger enriched with request context.
//
// When called with a request context that contains a chi RequestID,
// the returned logger automatically includes request_id in all log entries.
//
// Usage:
//
//	func handleRequest(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("processing request", "id", id)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
//	uploadLogger := logging.WithFields(ctx, "file", name)
//	uploadLogger.Info("upload started")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
