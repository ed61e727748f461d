package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"batchingest/internal/ports"
	appError "batchingest/internal/shared/error"
)

type KafkaConfig struct {
	Brokers      []string
	WriteTimeout time.Duration
}

// KafkaPublisher implements ports.MessageTransport using kafka-go. Every
// message is keyed by its message id and carries its attributes as headers.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaPublisher(cfg KafkaConfig) (ports.MessageTransport, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		AllowAutoTopicCreation: true,
		// Retries are owned by the caller's backoff policy.
		MaxAttempts: 1,
	}

	return &KafkaPublisher{writer: writer, timeout: timeout}, nil
}

func (p *KafkaPublisher) Send(ctx context.Context, topic string, payload []byte, attributes map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messageID := attributes["message_id"]
	if messageID == "" {
		messageID = uuid.NewString()
	}

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(messageID),
		Value:   payload,
		Headers: headersFor(attributes),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return "", classifyKafkaError(topic, fmt.Errorf("failed to publish kafka message: %w", err))
	}
	return messageID, nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func headersFor(attributes map[string]string) []kafka.Header {
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(attributes[k])})
	}
	return headers
}

// classifyKafkaError splits broker failures into retryable and final ones.
// Broker error codes carry their own Temporary flag; network failures and
// timeouts are retryable; anything else is final.
func classifyKafkaError(topic string, err error) error {
	if isTransientKafkaError(err) {
		return appError.NewTransientPublishError(topic, err)
	}
	return appError.NewFatalPublishError(topic, err)
}

func isTransientKafkaError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) {
		for _, we := range writeErrs {
			if we != nil && isTransientKafkaError(we) {
				return true
			}
		}
		return false
	}

	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
