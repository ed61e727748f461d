package domain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/valyala/fastjson"
	"golang.org/x/sync/errgroup"

	"batchingest/internal/ports"
	appError "batchingest/internal/shared/error"
	logger "batchingest/internal/shared/log"
)

type BatchServiceConfig struct {
	MaxFileSizeBytes   int64
	MaxWorkers         int
	ProcessingTimeout  time.Duration
	SupportedFileTypes []string
}

// FileResult is the outcome of one file. It is always returned, whatever
// happened to the file.
type FileResult struct {
	Bucket      string                `json:"bucket_name"`
	Object      string                `json:"object_name"`
	Success     bool                  `json:"success"`
	Skipped     bool                  `json:"skipped,omitempty"`
	Error       string                `json:"error,omitempty"`
	Metadata    *ports.ObjectMetadata `json:"file_metadata,omitempty"`
	Processing  *ProcessingResult     `json:"processing_summary,omitempty"`
	Publishing  *PublishResult        `json:"publishing_summary,omitempty"`
	DLQFailures []DLQCategory         `json:"dlq_failures,omitempty"`
	Duration    time.Duration         `json:"processing_time"`
}

func (r FileResult) processedRows() int {
	if r.Processing == nil {
		return 0
	}
	return r.Processing.ProcessedRows
}

func (r FileResult) publishedCount() int {
	if r.Publishing == nil {
		return 0
	}
	return r.Publishing.PublishedCount
}

type BatchSummary struct {
	Success               bool         `json:"success"`
	ProcessedFiles        int          `json:"processed_files"`
	SuccessfulFiles       int          `json:"successful_files"`
	FailedFiles           int          `json:"failed_files"`
	TotalRecordsProcessed int          `json:"total_records_processed"`
	TotalRecordsPublished int          `json:"total_records_published"`
	Results               []FileResult `json:"results"`
}

type ServiceStats struct {
	Publisher       TopicInfo `json:"publisher_stats"`
	DeadLetter      DLQStats  `json:"dlq_stats"`
	RecentPublished int       `json:"recent_published"`
	RecentDLQ       int       `json:"recent_dlq"`
}

// BatchService drives files through fetch, validation, publishing and
// dead-letter routing.
type BatchService struct {
	store     ports.BlobStore
	validator *BatchValidator
	publisher *Publisher
	dlq       *DeadLetterRouter
	ledger    ports.RunLedger
	cfg       BatchServiceConfig
	supported map[string]struct{}
}

// NewBatchService wires the pipeline. ledger may be nil.
func NewBatchService(
	store ports.BlobStore,
	validator *BatchValidator,
	publisher *Publisher,
	dlq *DeadLetterRouter,
	ledger ports.RunLedger,
	cfg BatchServiceConfig,
) (*BatchService, error) {
	if cfg.MaxWorkers <= 0 {
		return nil, appError.NewConfigurationError("MaxWorkers", "must be a positive integer")
	}
	if cfg.ProcessingTimeout <= 0 {
		return nil, appError.NewConfigurationError("ProcessingTimeout", "must be positive")
	}
	if cfg.MaxFileSizeBytes <= 0 {
		return nil, appError.NewConfigurationError("MaxFileSizeMB", "must be positive")
	}
	if len(cfg.SupportedFileTypes) == 0 {
		cfg.SupportedFileTypes = []string{"csv"}
	}

	supported := make(map[string]struct{}, len(cfg.SupportedFileTypes))
	for _, ext := range cfg.SupportedFileTypes {
		supported[strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")] = struct{}{}
	}

	return &BatchService{
		store:     store,
		validator: validator,
		publisher: publisher,
		dlq:       dlq,
		ledger:    ledger,
		cfg:       cfg,
		supported: supported,
	}, nil
}

func (s *BatchService) Publisher() *Publisher {
	return s.publisher
}

func (s *BatchService) DeadLetters() *DeadLetterRouter {
	return s.dlq
}

func (s *BatchService) isSupported(object string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(object)), ".")
	_, ok := s.supported[ext]
	return ok
}

// ProcessFile runs the single file pipeline. The staged copy of the file is
// released on every path.
func (s *BatchService) ProcessFile(ctx context.Context, ref ports.FileRef) (result FileResult) {
	started := time.Now()
	result = FileResult{Bucket: ref.Bucket, Object: ref.Object}
	var staged *ports.StagedObject

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while processing %s: %v", ref, r)
			logger.ErrorWithStack(ctx, err, "Recovered from panic")
			result.Success = false
			result.Error = err.Error()
			if !s.dlq.SendProcessingError(ctx, ref, err.Error(), ref.String()) {
				result.DLQFailures = append(result.DLQFailures, CategoryProcessingError)
			}
		}
		if staged != nil {
			if err := s.store.Release(ctx, staged); err != nil {
				logger.Warnf(ctx, "Failed to release staged copy of %s: %v", ref, err)
			}
		}
		result.Duration = time.Since(started)
		s.recordRun(ctx, result, started)
	}()

	if ref.Bucket == "" || ref.Object == "" {
		result.Error = "Missing bucket or object name"
		return result
	}

	if !s.isSupported(ref.Object) {
		logger.Warnf(ctx, "Unsupported file type: %s", ref.Object)
		result.Skipped = true
		result.Error = fmt.Sprintf("%s: %s", appError.ErrUnsupportedFile.Message, ref.Object)
		return result
	}

	logger.Infof(ctx, "Step 1: Fetching %s", ref)
	meta, err := s.store.Metadata(ctx, ref)
	if err != nil {
		return s.fileFailure(ctx, result, ref, nil, fmt.Sprintf("File not found or inaccessible: %v", err))
	}
	result.Metadata = meta
	if meta.Size > s.cfg.MaxFileSizeBytes {
		reason := fmt.Sprintf("%s: %d bytes (max %d)", appError.ErrObjectTooLarge.Message, meta.Size, s.cfg.MaxFileSizeBytes)
		return s.fileFailure(ctx, result, ref, meta, reason)
	}

	staged, err = s.store.Fetch(ctx, ref)
	if err != nil {
		return s.fileFailure(ctx, result, ref, meta, fmt.Sprintf("Failed to download file %s: %v", ref, err))
	}

	logger.Infof(ctx, "Step 2: Validating rows of %s", ref)
	processed, err := s.validator.ProcessFile(ctx, staged.Data, ref.String())
	if err != nil {
		var fileErr *appError.FileAccessError
		if errors.As(err, &fileErr) {
			return s.fileFailure(ctx, result, ref, meta, err.Error())
		}
		result.Error = fmt.Sprintf("Error processing file %s: %v", ref, err)
		logger.Errorf(ctx, err, "Processing failed for %s", ref)
		if !s.dlq.SendProcessingError(ctx, ref, result.Error, ref.String()) {
			result.DLQFailures = append(result.DLQFailures, CategoryProcessingError)
		}
		return result
	}
	result.Processing = processed

	if len(processed.Errors) > 0 {
		logger.Warnf(ctx, "Found %d validation errors in %s", len(processed.Errors), ref)
		if !s.dlq.SendValidationErrors(ctx, processed.Errors, ref.String(), processed.DataType) {
			result.DLQFailures = append(result.DLQFailures, CategoryValidationErrors)
		}
	}

	publishing := PublishResult{Success: true, MessageIDs: []string{}}
	if len(processed.Records) > 0 {
		logger.Infof(ctx, "Step 3: Publishing %d %s records", len(processed.Records), processed.DataType)
		publishing = s.publisher.PublishBatch(ctx, processed.DataType, ref.String(), processed.Records)
		if !publishing.Success || publishing.FailedCount > 0 {
			original := map[string]any{
				"source_file":  ref.String(),
				"data_type":    processed.DataType,
				"record_count": len(processed.Records),
			}
			reason := fmt.Sprintf("Publishing failed for %d of %d records", publishing.FailedCount, len(processed.Records))
			if !s.dlq.SendPublishingError(ctx, original, publishing, reason, ref.String()) {
				result.DLQFailures = append(result.DLQFailures, CategoryPublishingError)
			}
		}
	}
	result.Publishing = &publishing
	result.Success = true

	logger.Infof(ctx, "Completed processing %s: %d processed, %d published", ref, processed.ProcessedRows, publishing.PublishedCount)
	return result
}

func (s *BatchService) fileFailure(ctx context.Context, result FileResult, ref ports.FileRef, meta *ports.ObjectMetadata, reason string) FileResult {
	logger.Errorf(ctx, errors.New(reason), "File error for %s", ref)
	result.Success = false
	result.Error = reason

	info := map[string]any{"bucket_name": ref.Bucket, "object_name": ref.Object}
	if meta != nil {
		info["size"] = meta.Size
		info["content_type"] = meta.ContentType
	}
	if !s.dlq.SendFileError(ctx, info, reason, ref.String()) {
		result.DLQFailures = append(result.DLQFailures, CategoryFileError)
	}
	return result
}

func (s *BatchService) recordRun(ctx context.Context, result FileResult, started time.Time) {
	if s.ledger == nil {
		return
	}
	run := ports.RunRecord{
		Bucket:     result.Bucket,
		Object:     result.Object,
		Success:    result.Success,
		Error:      result.Error,
		StartedAt:  started,
		FinishedAt: started.Add(result.Duration),
	}
	if p := result.Processing; p != nil {
		run.DataType = string(p.DataType)
		run.TotalRows = p.TotalRows
		run.ProcessedRows = p.ProcessedRows
		run.ErrorCount = p.ErrorCount
	}
	if p := result.Publishing; p != nil {
		run.PublishedCount = p.PublishedCount
		run.FailedCount = p.FailedCount
	}
	if err := s.ledger.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warnf(ctx, "Failed to record run for %s: %v", result.Object, err)
	}
}

// ProcessFiles processes refs on at most MaxWorkers goroutines. Files still
// running when ProcessingTimeout elapses are reported as failed; their work
// is not cancelled.
func (s *BatchService) ProcessFiles(ctx context.Context, refs []ports.FileRef) BatchSummary {
	summary := BatchSummary{Success: true, Results: []FileResult{}}
	if len(refs) == 0 {
		return summary
	}
	logger.Infof(ctx, "Processing %d files with %d workers", len(refs), s.cfg.MaxWorkers)

	type indexed struct {
		index  int
		result FileResult
	}
	done := make(chan indexed, len(refs))
	workCtx := context.WithoutCancel(ctx)

	go func() {
		var g errgroup.Group
		g.SetLimit(s.cfg.MaxWorkers)
		for i, ref := range refs {
			i, ref := i, ref
			g.Go(func() error {
				done <- indexed{index: i, result: s.ProcessFile(workCtx, ref)}
				return nil
			})
		}
		_ = g.Wait()
	}()

	timer := time.NewTimer(s.cfg.ProcessingTimeout)
	defer timer.Stop()

	results := make([]*FileResult, len(refs))
	collected := 0
collect:
	for collected < len(refs) {
		select {
		case item := <-done:
			results[item.index] = &item.result
			collected++
		case <-timer.C:
			logger.Warnf(ctx, "Processing timeout after %s, %d of %d files unfinished", s.cfg.ProcessingTimeout, len(refs)-collected, len(refs))
			break collect
		case <-ctx.Done():
			logger.Warnf(ctx, "Processing cancelled, %d of %d files unfinished", len(refs)-collected, len(refs))
			break collect
		}
	}

	for i, r := range results {
		if r == nil {
			r = &FileResult{
				Bucket: refs[i].Bucket,
				Object: refs[i].Object,
				Error:  fmt.Sprintf("Processing timeout or error: not finished within %s", s.cfg.ProcessingTimeout),
			}
		}
		summary.Results = append(summary.Results, *r)
		if r.Success {
			summary.SuccessfulFiles++
		}
		summary.TotalRecordsProcessed += r.processedRows()
		summary.TotalRecordsPublished += r.publishedCount()
	}

	summary.ProcessedFiles = len(refs)
	summary.FailedFiles = summary.ProcessedFiles - summary.SuccessfulFiles
	summary.Success = summary.FailedFiles == 0
	return summary
}

// HandleObjectEvent processes the file named by a bucket notification. Both
// the S3/MinIO notification shape and a flat {"bucket","name"} body are
// accepted.
func (s *BatchService) HandleObjectEvent(ctx context.Context, payload []byte) (FileResult, error) {
	ref, err := parseObjectEvent(payload)
	if err != nil {
		logger.Errorf(ctx, err, "Failed to parse object event")
		return FileResult{}, err
	}
	logger.Infof(ctx, "Processing object event for %s", ref)
	return s.ProcessFile(ctx, ref), nil
}

func parseObjectEvent(payload []byte) (ports.FileRef, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(payload)
	if err != nil {
		return ports.FileRef{}, appError.NewCustomError(400, appError.ErrInvalidRequestBody.Code, "failed to parse object event", err.Error())
	}

	var ref ports.FileRef
	if records := v.GetArray("Records"); len(records) > 0 {
		ref.Bucket = string(records[0].GetStringBytes("s3", "bucket", "name"))
		key := string(records[0].GetStringBytes("s3", "object", "key"))
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		ref.Object = key
	} else {
		ref.Bucket = firstString(v, "bucketId", "bucket", "bucket_name")
		ref.Object = firstString(v, "objectId", "name", "object_name")
	}

	if ref.Bucket == "" || ref.Object == "" {
		return ports.FileRef{}, appError.NewCustomError(400, appError.ErrMissingRequiredField.Code, "Missing bucket or object name in event data")
	}
	return ref, nil
}

func firstString(v *fastjson.Value, keys ...string) string {
	for _, k := range keys {
		if s := v.GetStringBytes(k); len(s) > 0 {
			return string(s)
		}
	}
	return ""
}

func (s *BatchService) Stats() ServiceStats {
	return ServiceStats{
		Publisher:       s.publisher.TopicInfo(),
		DeadLetter:      s.dlq.Stats(),
		RecentPublished: len(s.publisher.Recent(0)),
		RecentDLQ:       len(s.dlq.Recent(0)),
	}
}

// Runs lists recorded file runs, newest first. It returns nil when no
// ledger is configured.
func (s *BatchService) Runs(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	if s.ledger == nil {
		return nil, nil
	}
	return s.ledger.Recent(ctx, limit)
}

func (s *BatchService) CleanupStaging(ctx context.Context) error {
	return s.store.CleanupStaging(ctx)
}
