package ports

import (
	"context"
	"time"

	"batchingest/internal/domain/schema"
)

// FileRef locates one uploaded source object.
type FileRef struct {
	Bucket string `json:"bucket_name"`
	Object string `json:"object_name"`
}

func (f FileRef) String() string {
	return f.Bucket + "/" + f.Object
}

type ObjectMetadata struct {
	Name         string            `json:"name"`
	Bucket       string            `json:"bucket"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type"`
	ETag         string            `json:"etag"`
	Checksum     string            `json:"checksum,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	UserMetadata map[string]string `json:"custom_metadata,omitempty"`
}

// StagedObject is a fetched source. LocalPath is set when the store keeps a
// local copy that must be released afterwards.
type StagedObject struct {
	Ref       FileRef
	LocalPath string
	Data      []byte
}

// BlobStore defines a port for reading uploaded files.
// Missing objects are reported with error.ErrObjectNotFound.
type BlobStore interface {
	Metadata(ctx context.Context, ref FileRef) (*ObjectMetadata, error)
	Fetch(ctx context.Context, ref FileRef) (*StagedObject, error)
	Release(ctx context.Context, obj *StagedObject) error
	CleanupStaging(ctx context.Context) error
}

// MessageTransport defines a port for delivering one message to a topic.
// Implementations classify failures with error.PublishError so callers can
// tell transient from fatal errors.
type MessageTransport interface {
	Send(ctx context.Context, topic string, payload []byte, attributes map[string]string) (string, error)
	Close() error
}

// SchemaValidator defines a port for structural validation of a decoded
// JSON document against the schema of a record type.
type SchemaValidator interface {
	Validate(ctx context.Context, recordType schema.RecordType, document any) error
}

// RunRecord is the persisted summary of one processed file.
type RunRecord struct {
	ID             string    `json:"id"`
	Bucket         string    `json:"bucket_name"`
	Object         string    `json:"object_name"`
	DataType       string    `json:"data_type"`
	Success        bool      `json:"success"`
	TotalRows      int       `json:"total_rows"`
	ProcessedRows  int       `json:"processed_rows"`
	ErrorCount     int       `json:"error_count"`
	PublishedCount int       `json:"published_count"`
	FailedCount    int       `json:"failed_count"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// RunLedger defines a port for keeping a history of processed files.
type RunLedger interface {
	Record(ctx context.Context, run RunRecord) error
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
}
