package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"batchingest/internal/domain/schema"
	"batchingest/internal/ports"
	logger "batchingest/internal/shared/log"
)

type DLQCategory string

const (
	CategoryProcessingError  DLQCategory = "processing_error"
	CategoryFileError        DLQCategory = "file_error"
	CategoryValidationErrors DLQCategory = "validation_errors"
	CategoryPublishingError  DLQCategory = "publishing_error"
)

// DLQEnvelope is the dead-letter message body. It is not modified after
// it is built.
type DLQEnvelope struct {
	DLQID           string      `json:"message_id"`
	Category        DLQCategory `json:"error_type"`
	Reason          string      `json:"error_reason"`
	ErrorDetails    any         `json:"error_details"`
	OriginalPayload any         `json:"original_data,omitempty"`
	SourceFile      string      `json:"source_file,omitempty"`
	Service         string      `json:"service"`
	CreatedAt       time.Time   `json:"timestamp"`
	RetryCount      int         `json:"retry_count"`
}

// DeadLetter is one delivered envelope as kept in the router history.
type DeadLetter struct {
	MessageID  string      `json:"message_id"`
	DLQID      string      `json:"dlq_id"`
	Category   DLQCategory `json:"error_type"`
	Reason     string      `json:"error_reason"`
	SourceFile string      `json:"source_file,omitempty"`
	SentAt     time.Time   `json:"sent_at"`
	Topic      string      `json:"topic"`
}

type DLQStats struct {
	TotalMessages int                 `json:"total_messages"`
	ErrorTypes    map[DLQCategory]int `json:"error_types"`
	RecentCount   int                 `json:"recent_count"`
	Topic         string              `json:"dlq_topic"`
}

type DeadLetterConfig struct {
	Topic            string
	HistoryRetention int
	Retry            RetryPolicy
}

// DeadLetterRouter delivers failure envelopes to the dead-letter topic.
// Senders report delivery with a bool and never return an error.
type DeadLetterRouter struct {
	transport ports.MessageTransport
	cfg       DeadLetterConfig
	retry     *retrier
	history   *history[DeadLetter]
	now       func() time.Time
}

func NewDeadLetterRouter(transport ports.MessageTransport, cfg DeadLetterConfig) *DeadLetterRouter {
	return &DeadLetterRouter{
		transport: transport,
		cfg:       cfg,
		retry:     newRetrier(cfg.Retry),
		history:   newHistory[DeadLetter](cfg.HistoryRetention),
		now:       time.Now,
	}
}

func (r *DeadLetterRouter) SendFileError(ctx context.Context, fileInfo any, reason, source string) bool {
	return r.send(ctx, DLQEnvelope{
		Category:        CategoryFileError,
		Reason:          reason,
		ErrorDetails:    map[string]any{"file_info": fileInfo},
		OriginalPayload: fileInfo,
		SourceFile:      source,
	})
}

func (r *DeadLetterRouter) SendValidationErrors(ctx context.Context, rowErrors []ValidationError, source string, recordType schema.RecordType) bool {
	return r.send(ctx, DLQEnvelope{
		Category: CategoryValidationErrors,
		Reason:   "Schema validation failed",
		ErrorDetails: map[string]any{
			"data_type":         recordType,
			"error_count":       len(rowErrors),
			"validation_errors": rowErrors,
		},
		SourceFile: source,
	})
}

func (r *DeadLetterRouter) SendProcessingError(ctx context.Context, original any, reason, source string) bool {
	return r.send(ctx, DLQEnvelope{
		Category:        CategoryProcessingError,
		Reason:          reason,
		ErrorDetails:    map[string]any{"stage": "processing"},
		OriginalPayload: original,
		SourceFile:      source,
	})
}

func (r *DeadLetterRouter) SendPublishingError(ctx context.Context, original any, outcome PublishResult, reason, source string) bool {
	return r.send(ctx, DLQEnvelope{
		Category: CategoryPublishingError,
		Reason:   reason,
		ErrorDetails: map[string]any{
			"publishing_result": outcome,
			"failed_count":      outcome.FailedCount,
			"published_count":   outcome.PublishedCount,
		},
		OriginalPayload: original,
		SourceFile:      source,
	})
}

func (r *DeadLetterRouter) send(ctx context.Context, envelope DLQEnvelope) bool {
	envelope.DLQID = uuid.NewString()
	envelope.Service = serviceName
	envelope.CreatedAt = r.now().UTC()

	payload, err := json.Marshal(envelope)
	if err != nil {
		logger.Errorf(ctx, err, "Failed to encode %s dead letter", envelope.Category)
		return false
	}
	attributes := map[string]string{
		"error_type": string(envelope.Category),
		"service":    serviceName,
		"message_id": envelope.DLQID,
		"timestamp":  strconv.FormatInt(envelope.CreatedAt.Unix(), 10),
	}

	var messageID string
	attempts, err := r.retry.do(ctx, func() error {
		id, err := r.transport.Send(ctx, r.cfg.Topic, payload, attributes)
		if err != nil {
			return err
		}
		messageID = id
		return nil
	}, func(err error, wait time.Duration) {
		logger.Warnf(ctx, "Dead letter delivery to %s failed, retrying in %s: %v", r.cfg.Topic, wait, err)
	})
	if err != nil {
		logger.Errorf(ctx, fmt.Errorf("after %d attempts: %w", attempts, err), "Failed to send %s to dead letter topic %s", envelope.Category, r.cfg.Topic)
		return false
	}

	r.history.add(DeadLetter{
		MessageID:  messageID,
		DLQID:      envelope.DLQID,
		Category:   envelope.Category,
		Reason:     envelope.Reason,
		SourceFile: envelope.SourceFile,
		SentAt:     r.now(),
		Topic:      r.cfg.Topic,
	})
	logger.Infof(ctx, "Sent %s to dead letter topic: %s", envelope.Category, messageID)
	return true
}

// Stats counts retained dead letters by category and within the last hour.
func (r *DeadLetterRouter) Stats() DLQStats {
	entries := r.history.recent(0)
	stats := DLQStats{
		TotalMessages: len(entries),
		ErrorTypes:    make(map[DLQCategory]int),
		Topic:         r.cfg.Topic,
	}
	threshold := r.now().Add(-time.Hour)
	for _, e := range entries {
		stats.ErrorTypes[e.Category]++
		if e.SentAt.After(threshold) {
			stats.RecentCount++
		}
	}
	return stats
}

func (r *DeadLetterRouter) Recent(limit int) []DeadLetter {
	return r.history.recent(limit)
}

func (r *DeadLetterRouter) ClearHistory() {
	r.history.clear()
}
