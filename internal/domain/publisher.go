package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"batchingest/internal/domain/schema"
	"batchingest/internal/ports"
	appError "batchingest/internal/shared/error"
	logger "batchingest/internal/shared/log"
)

const serviceName = "batch_ingestion"

type PublisherConfig struct {
	Topic            string
	UseRealBroker    bool
	HistoryRetention int
	Retry            RetryPolicy
}

// PublishResult summarises one PublishBatch call.
type PublishResult struct {
	Success        bool     `json:"success"`
	PublishedCount int      `json:"published_count"`
	FailedCount    int      `json:"failed_count"`
	MessageIDs     []string `json:"message_ids"`
}

// PublishedMessage is one delivered record as kept in the publish history.
type PublishedMessage struct {
	MessageID  string            `json:"message_id"`
	RecordType schema.RecordType `json:"data_type"`
	Timestamp  time.Time         `json:"timestamp"`
	Topic      string            `json:"topic"`
	Attributes map[string]string `json:"attributes"`
}

type TopicInfo struct {
	Topic          string `json:"topic"`
	UseRealBroker  bool   `json:"use_real_broker"`
	MaxRetries     int    `json:"max_retries"`
	PublishedCount int    `json:"published_count"`
}

type recordMetadata struct {
	DataType    schema.RecordType `json:"data_type"`
	BatchIndex  int               `json:"batch_index"`
	SourceFile  string            `json:"source_file"`
	ProcessedAt string            `json:"processed_at"`
	MessageID   string            `json:"message_id"`
}

type recordEnvelope struct {
	Data     CanonicalRecord `json:"data"`
	Metadata recordMetadata  `json:"metadata"`
}

// Publisher delivers canonical records one message per record.
type Publisher struct {
	transport ports.MessageTransport
	cfg       PublisherConfig
	retry     *retrier
	history   *history[PublishedMessage]
	now       func() time.Time
}

func NewPublisher(transport ports.MessageTransport, cfg PublisherConfig) *Publisher {
	return &Publisher{
		transport: transport,
		cfg:       cfg,
		retry:     newRetrier(cfg.Retry),
		history:   newHistory[PublishedMessage](cfg.HistoryRetention),
		now:       time.Now,
	}
}

// PublishBatch sends every record individually. Failed records are counted,
// never retried beyond PublishOne's own policy.
func (p *Publisher) PublishBatch(ctx context.Context, recordType schema.RecordType, source string, records []CanonicalRecord) PublishResult {
	result := PublishResult{MessageIDs: []string{}}

	for i, record := range records {
		messageID := uuid.NewString()
		payload, err := json.Marshal(recordEnvelope{
			Data: record,
			Metadata: recordMetadata{
				DataType:    recordType,
				BatchIndex:  i,
				SourceFile:  source,
				ProcessedAt: p.now().UTC().Format(time.RFC3339),
				MessageID:   messageID,
			},
		})
		if err != nil {
			logger.Errorf(ctx, err, "Failed to encode record %d of %s", i, source)
			result.FailedCount++
			continue
		}

		attributes := map[string]string{
			"data_type":  string(recordType),
			"source":     serviceName,
			"message_id": messageID,
		}
		id, err := p.PublishOne(ctx, recordType, payload, attributes)
		if err != nil {
			logger.Errorf(ctx, err, "Failed to publish record %d of %s", i, source)
			result.FailedCount++
			continue
		}
		result.PublishedCount++
		result.MessageIDs = append(result.MessageIDs, id)
	}

	result.Success = result.FailedCount == 0
	if len(records) > 0 {
		logger.Infof(ctx, "Published %d/%d %s records from %s", result.PublishedCount, len(records), recordType, source)
	}
	return result
}

// PublishOne delivers a single payload, retrying transient transport
// failures with exponential backoff.
func (p *Publisher) PublishOne(ctx context.Context, recordType schema.RecordType, payload []byte, attributes map[string]string) (string, error) {
	var messageID string
	attempts, err := p.retry.do(ctx, func() error {
		id, err := p.transport.Send(ctx, p.cfg.Topic, payload, attributes)
		if err != nil {
			return err
		}
		messageID = id
		return nil
	}, func(err error, wait time.Duration) {
		logger.Warnf(ctx, "Publish to %s failed, retrying in %s: %v", p.cfg.Topic, wait, err)
	})
	if err != nil {
		if appError.IsTransient(err) {
			return "", fmt.Errorf("gave up after %d attempts: %w", attempts, err)
		}
		return "", err
	}

	p.history.add(PublishedMessage{
		MessageID:  messageID,
		RecordType: recordType,
		Timestamp:  p.now(),
		Topic:      p.cfg.Topic,
		Attributes: maps.Clone(attributes),
	})
	return messageID, nil
}

// Recent returns up to limit of the newest delivered messages.
func (p *Publisher) Recent(limit int) []PublishedMessage {
	entries := p.history.recent(limit)
	for i := range entries {
		entries[i].Attributes = maps.Clone(entries[i].Attributes)
	}
	return entries
}

func (p *Publisher) ClearHistory() {
	p.history.clear()
}

func (p *Publisher) TopicInfo() TopicInfo {
	return TopicInfo{
		Topic:          p.cfg.Topic,
		UseRealBroker:  p.cfg.UseRealBroker,
		MaxRetries:     p.retry.policy.MaxRetries,
		PublishedCount: p.history.len(),
	}
}
