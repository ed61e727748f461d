package error

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type CustomError struct {
	Message  string `json:"message"`
	Code     string `json:"code"`
	HTTPCode int    `json:"httpCode"`
	Details  any    `json:"details,omitempty"`
}

func (err *CustomError) Error() string {
	if err.Code != "" {
		return fmt.Sprintf("[%s] %s", err.Code, err.Message)
	}
	return err.Message
}

func (err *CustomError) Is(target error) bool {
	if targetErr, ok := target.(*CustomError); ok {
		return err.Code == targetErr.Code
	}
	return false
}

func NewCustomError(httpCode int, code, message string, details ...any) *CustomError {
	err := &CustomError{
		HTTPCode: httpCode,
		Code:     code,
		Message:  message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrInvalidConfiguration = NewCustomError(500, "CONFIG_1001", "Invalid configuration")

	ErrObjectNotFound     = NewCustomError(404, "FILE_2001", "Source object not found")
	ErrObjectTooLarge     = NewCustomError(413, "FILE_2002", "Source object exceeds the size limit")
	ErrObjectUnreadable   = NewCustomError(422, "FILE_2003", "Source object could not be read")
	ErrUnsupportedFile    = NewCustomError(415, "FILE_2004", "Unsupported file type")
	ErrUnsupportedRecords = NewCustomError(400, "FILE_2005", "Unsupported record type")

	ErrRowTransform  = NewCustomError(422, "ROW_3001", "Row could not be transformed")
	ErrRowValidation = NewCustomError(422, "ROW_3002", "Row failed schema validation")

	ErrPublishTransient = NewCustomError(503, "PUBLISH_4001", "Transient publish failure")
	ErrPublishFatal     = NewCustomError(502, "PUBLISH_4002", "Publish failed")

	ErrInvalidRequestBody   = NewCustomError(400, "REQUEST_2001", "Invalid request body")
	ErrMissingRequiredField = NewCustomError(400, "REQUEST_2002", "Missing required field")
	ErrInvalidFieldFormat   = NewCustomError(400, "REQUEST_2003", "Invalid field format")

	ErrHTTPInternalServer     = NewCustomError(500, "HTTP_500", "Internal Server Error")
	ErrHTTPServiceUnavailable = NewCustomError(503, "HTTP_503", "Service Unavailable")
)

// ConfigurationError reports invalid construction parameters. It is fatal
// and surfaces before any processing starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// FileAccessError marks a source that is missing, oversized or unreadable.
type FileAccessError struct {
	Source string
	Err    error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("file access error for %s: %v", e.Source, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

func NewFileAccessError(source string, err error) *FileAccessError {
	return &FileAccessError{Source: source, Err: err}
}

// PublishError is returned by message transports. Transient errors may be
// retried after a delay, the rest are final.
type PublishError struct {
	Topic     string
	Transient bool
	Err       error
}

func (e *PublishError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s publish error on %s: %v", kind, e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

func (e *PublishError) Is(target error) bool {
	if e.Transient {
		return target == ErrPublishTransient
	}
	return target == ErrPublishFatal
}

func NewTransientPublishError(topic string, err error) *PublishError {
	return &PublishError{Topic: topic, Transient: true, Err: err}
}

func NewFatalPublishError(topic string, err error) *PublishError {
	return &PublishError{Topic: topic, Err: err}
}

// IsTransient reports whether err is a publish error worth retrying.
func IsTransient(err error) bool {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return false
}

func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := c.Locals("request_id")

		var customErr *CustomError
		if errors.As(err, &customErr) {
			response := fiber.Map{
				"error":   customErr.Message,
				"code":    customErr.Code,
				"details": customErr.Details,
			}
			if requestID != nil {
				response["request_id"] = requestID
			}
			return c.Status(customErr.HTTPCode).JSON(response)
		}

		if fiberErr, ok := err.(*fiber.Error); ok {
			response := fiber.Map{
				"error": fiberErr.Message,
			}
			if requestID != nil {
				response["request_id"] = requestID
			}
			return c.Status(fiberErr.Code).JSON(response)
		}

		response := fiber.Map{
			"error": "Internal server error",
		}
		if requestID != nil {
			response["request_id"] = requestID
		}
		return c.Status(fiber.StatusInternalServerError).JSON(response)
	}
}
