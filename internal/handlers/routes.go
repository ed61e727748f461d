package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"batchingest/internal/domain"
)

// RegisterRoutes wires all HTTP routes to their handlers.
func RegisterRoutes(app *fiber.App, service *domain.BatchService, timeout time.Duration) {
	h := NewBatchHandler(service, timeout)

	api := app.Group("/api/batch")
	api.Post("/object-event", h.HandleObjectEvent)
	api.Post("/process-file", h.ProcessFile)
	api.Post("/process-multiple", h.ProcessMultiple)
	api.Get("/stats", h.Stats)
	api.Get("/published", h.Published)
	api.Get("/dlq", h.DeadLetters)
	api.Get("/runs", h.Runs)
	api.Post("/cleanup", h.Cleanup)
	api.Get("/health", h.Health)
}
