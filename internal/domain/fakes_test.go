package domain

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"batchingest/internal/adapters/validation"
	"batchingest/internal/domain/schema"
	"batchingest/internal/ports"
	"batchingest/internal/samples"
	appError "batchingest/internal/shared/error"
)

const (
	recordsTopic = "batch-processed-data"
	dlqTopic     = "batch-processing-dlq"
	retryUnit    = time.Millisecond
)

var testRegistry = schema.MustNewRegistry()

func newTestValidator(t *testing.T, batchSize int) *BatchValidator {
	t.Helper()
	sv, err := validation.NewJSONSchemaValidator(testRegistry)
	require.NoError(t, err)
	v, err := NewBatchValidator(testRegistry, sv, BatchValidatorConfig{BatchSize: batchSize, Encoding: "utf-8"})
	require.NoError(t, err)
	return v
}

func newGenerator() *samples.Generator {
	return samples.NewGenerator(testRegistry, 42)
}

func rowOf(t schema.RecordType, values map[string]string) FlatRow {
	return RowFromMap(testRegistry.Columns(t), values)
}

func csvOf(t *testing.T, columns []string, rows ...map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(columns))
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, c := range columns {
			record[i] = row[c]
		}
		require.NoError(t, w.Write(record))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return buf.Bytes()
}

type sentMessage struct {
	topic      string
	payload    []byte
	attributes map[string]string
}

// fakeTransport records sends. fail decides, per call, whether the send
// fails; calls are numbered from 1.
type fakeTransport struct {
	mu    sync.Mutex
	calls map[string]int
	sent  []sentMessage
	fail  func(topic string, call int) error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{calls: make(map[string]int)}
}

func (f *fakeTransport) Send(ctx context.Context, topic string, payload []byte, attributes map[string]string) (string, error) {
	f.mu.Lock()
	f.calls[topic]++
	call := f.calls[topic]
	fail := f.fail
	f.mu.Unlock()

	if fail != nil {
		if err := fail(topic, call); err != nil {
			return "", err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{topic: topic, payload: payload, attributes: attributes})
	return fmt.Sprintf("msg_%s_%d", topic, call), nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) callCount(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[topic]
}

func (f *fakeTransport) delivered(topic string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func transientFailure(topic string) error {
	return appError.NewTransientPublishError(topic, fmt.Errorf("broker unavailable"))
}

func fatalFailure(topic string) error {
	return appError.NewFatalPublishError(topic, fmt.Errorf("message too large"))
}

// fakeTimer fires immediately and records every requested wait.
type fakeTimer struct {
	mu    sync.Mutex
	waits []time.Duration
	c     chan time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{c: make(chan time.Time, 1)}
}

func (t *fakeTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.waits = append(t.waits, d)
	t.mu.Unlock()
	t.c <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) recorded() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.waits...)
}

func retryPolicy(maxRetries int, timer *fakeTimer) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		Unit:       retryUnit,
		NewTimer:   func() backoff.Timer { return timer },
	}
}

// fakeStore serves in-memory files keyed by "bucket/object".
type fakeStore struct {
	mu       sync.Mutex
	files    map[string][]byte
	fetchErr error
	onFetch  func(ref ports.FileRef)
	released []string
	cleaned  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string][]byte)}
}

func (s *fakeStore) put(bucket, object string, data []byte) ports.FileRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := ports.FileRef{Bucket: bucket, Object: object}
	s.files[ref.String()] = data
	return ref
}

func (s *fakeStore) Metadata(ctx context.Context, ref ports.FileRef) (*ports.ObjectMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[ref.String()]
	if !ok {
		return nil, appError.NewFileAccessError(ref.String(), appError.ErrObjectNotFound)
	}
	return &ports.ObjectMetadata{Name: ref.Object, Bucket: ref.Bucket, Size: int64(len(data)), ContentType: "text/csv"}, nil
}

func (s *fakeStore) Fetch(ctx context.Context, ref ports.FileRef) (*ports.StagedObject, error) {
	if s.onFetch != nil {
		s.onFetch(ref)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := &ports.StagedObject{Ref: ref, LocalPath: "/staging/" + ref.Object, Data: s.files[ref.String()]}
	if s.fetchErr != nil {
		return staged, s.fetchErr
	}
	return staged, nil
}

func (s *fakeStore) Release(ctx context.Context, obj *ports.StagedObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, obj.LocalPath)
	return nil
}

func (s *fakeStore) CleanupStaging(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleaned = true
	return nil
}

func (s *fakeStore) releasedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.released...)
}

type memoryLedger struct {
	mu   sync.Mutex
	runs []ports.RunRecord
}

func (l *memoryLedger) Record(ctx context.Context, run ports.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, run)
	return nil
}

func (l *memoryLedger) Recent(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ports.RunRecord, 0, len(l.runs))
	for i := len(l.runs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, l.runs[i])
	}
	return out, nil
}
