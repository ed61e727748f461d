package log

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "batch-ingest").Logger()
)

// Setup configures the process logger. Format "console" gives human readable
// output, anything else emits JSON lines.
func Setup(level, format string) {
	SetOutput(os.Stdout, level, format)
}

// SetOutput is Setup with an explicit writer.
func SetOutput(w io.Writer, level, format string) {
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(w).With().Timestamp().Str("service", "batch-ingest").Logger().Level(parseLevel(level))

	mu.Lock()
	logger = l
	mu.Unlock()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithRequestID stores the request id used to correlate log lines.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns the process logger enriched with the request id.
func FromContext(ctx context.Context) *zerolog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()

	if id := RequestID(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}

func Debugf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Debug().Msgf(format, args...)
}

func Info(ctx context.Context, msg string) {
	FromContext(ctx).Info().Msg(msg)
}

func Infof(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Info().Msgf(format, args...)
}

func Warn(ctx context.Context, msg string) {
	FromContext(ctx).Warn().Msg(msg)
}

func Warnf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Warn().Msgf(format, args...)
}

func Error(ctx context.Context, err error, msg string) {
	FromContext(ctx).Error().Err(err).Msg(msg)
}

func Errorf(ctx context.Context, err error, format string, args ...any) {
	FromContext(ctx).Error().Err(err).Msgf(format, args...)
}

// ErrorWithStack logs err together with the current goroutine stack.
func ErrorWithStack(ctx context.Context, err error, msg string) {
	FromContext(ctx).Error().Err(err).Str("stack", string(debug.Stack())).Msg(msg)
}

// Fatal logs and exits the process.
func Fatal(ctx context.Context, err error, msg string) {
	FromContext(ctx).Fatal().Err(err).Msg(msg)
}

func RequestStart(ctx context.Context, req *http.Request, body []byte) {
	ev := FromContext(ctx).Info().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("remote_addr", req.RemoteAddr)
	if len(body) > 0 {
		ev = ev.Int("body_size", len(body))
	}
	ev.Msg("request started")
}

func RequestEnd(ctx context.Context, req *http.Request, status int, elapsed time.Duration, size int) {
	FromContext(ctx).Info().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", status).
		Dur("elapsed", elapsed).
		Int("response_size", size).
		Msg("request completed")
}

func PanicLog(ctx context.Context, req *http.Request, recovered any) {
	FromContext(ctx).Error().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("panic", fmt.Sprintf("%v", recovered)).
		Str("stack", string(debug.Stack())).
		Msg("panic recovered")
}
