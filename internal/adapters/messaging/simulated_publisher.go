package messaging

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"batchingest/internal/ports"
	logger "batchingest/internal/shared/log"
)

// SimulatedPublisher implements ports.MessageTransport without a broker.
// It is used for local runs and counts the messages sent per topic.
type SimulatedPublisher struct {
	prefix string

	mu   sync.Mutex
	sent map[string]int
}

func NewSimulatedPublisher(prefix string) ports.MessageTransport {
	if prefix == "" {
		prefix = "sim_"
	}
	return &SimulatedPublisher{prefix: prefix, sent: make(map[string]int)}
}

func (p *SimulatedPublisher) Send(ctx context.Context, topic string, payload []byte, attributes map[string]string) (string, error) {
	messageID := p.prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	p.mu.Lock()
	p.sent[topic]++
	p.mu.Unlock()

	logger.Debugf(ctx, "Simulated publish %s to %s (%d bytes)", messageID, topic, len(payload))
	return messageID, nil
}

// Sent returns how many messages were accepted for topic.
func (p *SimulatedPublisher) Sent(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent[topic]
}

func (p *SimulatedPublisher) Close() error { return nil }
