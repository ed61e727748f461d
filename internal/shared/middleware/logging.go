package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	appError "batchingest/internal/shared/error"
	logger "batchingest/internal/shared/log"
)

const requestIDHeader = "X-Request-ID"

type LoggingConfig struct {
	// Uploaded files can be large; request bodies above this size are
	// logged by size only.
	MaxBodyLogSize  int
	SkipPaths       []string
	LogRequestBody  bool
	LogResponseBody bool
}

func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		MaxBodyLogSize:  1024,
		SkipPaths:       []string{"/health", "/api/batch/health"},
		LogRequestBody:  true,
		LogResponseBody: false,
	}
}

// requestView copies the parts of a fiber request the log helpers read.
func requestView(c *fiber.Ctx) *http.Request {
	return &http.Request{
		Method: c.Method(),
		URL: &url.URL{
			Scheme:   c.Protocol(),
			Host:     c.Hostname(),
			Path:     c.Path(),
			RawQuery: string(c.Request().URI().QueryString()),
		},
		Header: http.Header{
			"Content-Type":  {c.Get(fiber.HeaderContentType)},
			requestIDHeader: {c.Get(requestIDHeader)},
		},
		RemoteAddr: c.IP(),
		Host:       c.Hostname(),
	}
}

// statusOf is the status the error handler will answer with.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var customErr *appError.CustomError
	if errors.As(err, &customErr) {
		return customErr.HTTPCode
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

// ensureRequestID returns the id of the request, assigning one and storing
// it in the user context when no earlier handler did.
func ensureRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("request_id").(string); ok && id != "" {
		return id
	}
	id := c.Get(requestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.Locals("request_id", id)
	c.SetUserContext(logger.WithRequestID(c.UserContext(), id))
	return id
}

func LoggingMiddleware(config ...LoggingConfig) fiber.Handler {
	cfg := DefaultLoggingConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := skip[c.Path()]; ok {
			return c.Next()
		}

		ensureRequestID(c)
		ctx := c.UserContext()
		req := requestView(c)
		start := time.Now()

		var body []byte
		if cfg.LogRequestBody {
			body = c.Body()
		}
		logger.RequestStart(ctx, req, body)
		if len(body) > 0 && len(body) <= cfg.MaxBodyLogSize {
			logger.Debugf(ctx, "Request body: %s", string(body))
		}

		err := c.Next()
		if err != nil {
			logger.Error(ctx, err, "Request handler error")
		}

		size := len(c.Response().Body())
		logger.RequestEnd(ctx, req, statusOf(c, err), time.Since(start), size)
		if cfg.LogResponseBody && size > 0 && size <= cfg.MaxBodyLogSize {
			logger.Debugf(ctx, "Response body: %s", string(c.Response().Body()))
		}
		return err
	}
}

func RecoveryMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.PanicLog(c.UserContext(), requestView(c), r)
				err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":      "Internal server error",
					"request_id": c.Locals("request_id"),
				})
			}
		}()
		return c.Next()
	}
}

// RequestIDMiddleware honours an incoming X-Request-ID and echoes the id on
// the response.
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(requestIDHeader, ensureRequestID(c))
		return c.Next()
	}
}
