package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"batchingest/internal/domain"
	"batchingest/internal/ports"
	appError "batchingest/internal/shared/error"
	logger "batchingest/internal/shared/log"
)

const (
	serviceName  = "batch_ingestion"
	defaultLimit = 100
)

type BatchHandler struct {
	service *domain.BatchService
	timeout time.Duration
}

func NewBatchHandler(service *domain.BatchService, timeout time.Duration) *BatchHandler {
	return &BatchHandler{service: service, timeout: timeout}
}

func (h *BatchHandler) context(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, h.timeout)
}

func statusFor(result domain.FileResult) int {
	if result.Success || result.Skipped {
		return fiber.StatusOK
	}
	return fiber.StatusInternalServerError
}

// HandleObjectEvent accepts a bucket notification for an uploaded file.
func (h *BatchHandler) HandleObjectEvent(c *fiber.Ctx) error {
	ctx, cancel := h.context(c)
	defer cancel()

	payload := c.Body()
	if len(payload) == 0 {
		logger.Warn(ctx, "Empty object event received")
		return appError.ErrInvalidRequestBody
	}

	result, err := h.service.HandleObjectEvent(ctx, payload)
	if err != nil {
		return err
	}
	return c.Status(statusFor(result)).JSON(result)
}

func (h *BatchHandler) ProcessFile(c *fiber.Ctx) error {
	ctx, cancel := h.context(c)
	defer cancel()

	var ref ports.FileRef
	if len(c.Body()) == 0 {
		return appError.NewCustomError(400, appError.ErrInvalidRequestBody.Code, "Missing request body")
	}
	if err := c.BodyParser(&ref); err != nil {
		return appError.NewCustomError(400, appError.ErrInvalidRequestBody.Code, "Missing request body", err.Error())
	}
	if ref.Bucket == "" || ref.Object == "" {
		return appError.NewCustomError(400, appError.ErrMissingRequiredField.Code, "Missing bucket_name or object_name")
	}

	logger.Infof(ctx, "Received process-file request for %s", ref)
	result := h.service.ProcessFile(ctx, ref)
	return c.Status(statusFor(result)).JSON(result)
}

type processMultipleRequest struct {
	Files []ports.FileRef `json:"files"`
}

// ProcessMultiple answers 200 when every file succeeded and 207 otherwise.
func (h *BatchHandler) ProcessMultiple(c *fiber.Ctx) error {
	ctx, cancel := h.context(c)
	defer cancel()

	var req processMultipleRequest
	if err := c.BodyParser(&req); err != nil {
		return appError.NewCustomError(400, appError.ErrInvalidRequestBody.Code, "Missing files list", err.Error())
	}
	if len(req.Files) == 0 {
		return appError.NewCustomError(400, appError.ErrInvalidFieldFormat.Code, "Files must be a non-empty list")
	}
	for _, f := range req.Files {
		if f.Bucket == "" || f.Object == "" {
			return appError.NewCustomError(400, appError.ErrMissingRequiredField.Code, "Missing bucket_name or object_name in file entry")
		}
	}

	logger.Infof(ctx, "Received process-multiple request for %d files", len(req.Files))
	summary := h.service.ProcessFiles(ctx, req.Files)
	if summary.Success {
		return c.Status(fiber.StatusOK).JSON(summary)
	}
	return c.Status(fiber.StatusMultiStatus).JSON(summary)
}

func (h *BatchHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": serviceName,
		"status":  "healthy",
		"stats":   h.service.Stats(),
	})
}

func (h *BatchHandler) Published(c *fiber.Ctx) error {
	messages := h.service.Publisher().Recent(c.QueryInt("limit", defaultLimit))
	return c.JSON(fiber.Map{
		"published_messages": messages,
		"count":              len(messages),
	})
}

func (h *BatchHandler) DeadLetters(c *fiber.Ctx) error {
	router := h.service.DeadLetters()
	messages := router.Recent(c.QueryInt("limit", defaultLimit))
	return c.JSON(fiber.Map{
		"dlq_messages": messages,
		"count":        len(messages),
		"stats":        router.Stats(),
	})
}

func (h *BatchHandler) Runs(c *fiber.Ctx) error {
	ctx, cancel := h.context(c)
	defer cancel()

	runs, err := h.service.Runs(ctx, c.QueryInt("limit", defaultLimit))
	if err != nil {
		logger.Errorf(ctx, err, "Failed to list ingest runs")
		return appError.NewCustomError(500, appError.ErrHTTPInternalServer.Code, "failed to list ingest runs", err.Error())
	}
	if runs == nil {
		return appError.NewCustomError(503, appError.ErrHTTPServiceUnavailable.Code, "run ledger is not configured")
	}
	return c.JSON(fiber.Map{"runs": runs, "count": len(runs)})
}

func (h *BatchHandler) Cleanup(c *fiber.Ctx) error {
	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.service.CleanupStaging(ctx); err != nil {
		logger.Errorf(ctx, err, "Error during cleanup")
		return appError.NewCustomError(500, appError.ErrHTTPInternalServer.Code, "cleanup failed", err.Error())
	}
	return c.JSON(fiber.Map{"message": "Cleanup completed successfully"})
}

func (h *BatchHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": serviceName,
		"status":  "healthy",
	})
}
