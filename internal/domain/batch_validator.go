package domain

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"batchingest/internal/domain/schema"
	"batchingest/internal/ports"
	appError "batchingest/internal/shared/error"
	logger "batchingest/internal/shared/log"
)

const (
	schemaErrorPrefix     = "Schema validation error: "
	processingErrorPrefix = "Processing error: "
)

type BatchValidatorConfig struct {
	BatchSize int
	Encoding  string
}

// BatchValidator turns CSV rows into canonical records. Rows are handled
// sequentially in windows of BatchSize; a failing row never affects another.
type BatchValidator struct {
	registry  *schema.Registry
	validator ports.SchemaValidator
	detector  *TypeDetector
	batchSize int
	encoding  encoding.Encoding
}

func NewBatchValidator(registry *schema.Registry, validator ports.SchemaValidator, cfg BatchValidatorConfig) (*BatchValidator, error) {
	if cfg.BatchSize <= 0 {
		return nil, appError.NewConfigurationError("BatchSize", fmt.Sprintf("must be a positive integer, got %d", cfg.BatchSize))
	}
	name := strings.TrimSpace(cfg.Encoding)
	if name == "" {
		return nil, appError.NewConfigurationError("DefaultEncoding", "must not be empty")
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, appError.NewConfigurationError("DefaultEncoding", fmt.Sprintf("unknown encoding %q", name))
	}
	if registry == nil || validator == nil {
		return nil, appError.NewConfigurationError("SchemaValidator", "registry and validator are required")
	}

	return &BatchValidator{
		registry:  registry,
		validator: validator,
		detector:  NewTypeDetector(registry),
		batchSize: cfg.BatchSize,
		encoding:  enc,
	}, nil
}

func (v *BatchValidator) Detector() *TypeDetector {
	return v.detector
}

// rowOutcome is the result of one row: a record or an error, never both.
type rowOutcome struct {
	record CanonicalRecord
	err    error
}

// rowError carries the reason a row was rejected.
type rowError struct {
	schemaViolation bool
	cause           error
}

func (e *rowError) Error() string {
	detail := e.cause.Error()
	var ce *appError.CustomError
	if errors.As(e.cause, &ce) {
		detail = ce.Message
	}
	if e.schemaViolation {
		return schemaErrorPrefix + detail
	}
	return processingErrorPrefix + detail
}

func (e *rowError) Unwrap() error { return e.cause }

func (e *rowError) Is(target error) bool {
	if e.schemaViolation {
		return target == appError.ErrRowValidation
	}
	return target == appError.ErrRowTransform
}

// ValidateBatch transforms and validates rows of one record type. Row
// numbers in the returned errors are offset + index + 1.
func (v *BatchValidator) ValidateBatch(ctx context.Context, rows []FlatRow, recordType schema.RecordType, offset int) ([]CanonicalRecord, []ValidationError) {
	records := make([]CanonicalRecord, 0, len(rows))
	var rowErrors []ValidationError

	rs, ok := v.registry.Schema(recordType)
	transformer, err := TransformerFor(recordType)
	if !ok || err != nil {
		for i, row := range rows {
			rowErrors = append(rowErrors, ValidationError{
				Row:     offset + i + 1,
				Message: processingErrorPrefix + fmt.Sprintf("unsupported data type: %s", recordType),
				Data:    row.Map(),
			})
		}
		return records, rowErrors
	}

	for start := 0; start < len(rows); start += v.batchSize {
		end := min(start+v.batchSize, len(rows))
		for i := start; i < end; i++ {
			outcome := v.validateRow(ctx, rs, transformer, rows[i])
			if outcome.err != nil {
				rowErrors = append(rowErrors, ValidationError{
					Row:     offset + i + 1,
					Message: outcome.err.Error(),
					Data:    rows[i].Map(),
				})
				continue
			}
			records = append(records, outcome.record)
		}
		logger.Debugf(ctx, "Validated %s rows %d-%d", recordType, offset+start, offset+end)
	}

	if rowErrors == nil {
		rowErrors = []ValidationError{}
	}
	return records, rowErrors
}

func (v *BatchValidator) validateRow(ctx context.Context, rs *schema.RecordSchema, transformer RecordTransformer, row FlatRow) (outcome rowOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = rowOutcome{err: &rowError{cause: fmt.Errorf("%v", r)}}
		}
	}()

	record, err := transformer.Transform(row)
	if err != nil {
		return rowOutcome{err: &rowError{cause: err}}
	}

	document, err := toDocument(record)
	if err != nil {
		return rowOutcome{err: &rowError{cause: err}}
	}
	if err := checkPrecision(document, rs.Monetary); err != nil {
		return rowOutcome{err: &rowError{schemaViolation: true, cause: err}}
	}
	if err := v.validator.Validate(ctx, rs.Type, document); err != nil {
		return rowOutcome{err: &rowError{schemaViolation: true, cause: err}}
	}
	return rowOutcome{record: record}
}

// toDocument renders a record as the generic JSON value the schema validator
// expects. Numbers are kept as json.Number so their text survives.
func toDocument(record CanonicalRecord) (map[string]any, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s record: %w", record.RecordType(), err)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var document map[string]any
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("failed to decode %s record: %w", record.RecordType(), err)
	}
	return document, nil
}

// checkPrecision rejects monetary values with more fractional digits than
// allowed. Trailing zeros do not count.
func checkPrecision(document map[string]any, fields []schema.MonetaryField) error {
	for _, field := range fields {
		value, ok := lookup(document, field.Path)
		if !ok {
			continue
		}
		var amount decimal.Decimal
		switch n := value.(type) {
		case json.Number:
			d, err := decimal.NewFromString(n.String())
			if err != nil {
				continue
			}
			amount = d
		case float64:
			amount = decimal.NewFromFloat(n)
		default:
			continue
		}
		if !amount.Equal(amount.Truncate(field.MaxDecimals)) {
			return fmt.Errorf("%s %s has more than %d decimal places", field.Label, amount.String(), field.MaxDecimals)
		}
	}
	return nil
}

func lookup(document map[string]any, path []string) (any, bool) {
	var current any = document
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[key]; !ok {
			return nil, false
		}
	}
	return current, true
}

// ProcessFile decodes, parses and validates one CSV source. The header line
// selects the record type. An unreadable source is reported as an
// error.ErrObjectUnreadable; row problems are reported in the result.
func (v *BatchValidator) ProcessFile(ctx context.Context, data []byte, source string) (*ProcessingResult, error) {
	decoded := transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(v.encoding.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1

	result := &ProcessingResult{
		SourceFile: source,
		Records:    []CanonicalRecord{},
		Errors:     []ValidationError{},
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		detection := v.detector.fallback(ctx, "source is empty")
		result.DataType = detection.Type
		result.DetectionDefaulted = detection.Defaulted
		logger.Infof(ctx, "Source %s is empty", source)
		return result, nil
	}
	if err != nil {
		return nil, unreadable(source, err)
	}

	header = normalizeHeaders(header)
	detection := v.detector.Detect(ctx, header)
	result.DataType = detection.Type
	result.DetectionDefaulted = detection.Defaulted
	logger.Infof(ctx, "Processing %s as %s data", source, detection.Type)

	window := make([]FlatRow, 0, v.batchSize)
	flush := func() {
		records, rowErrors := v.ValidateBatch(ctx, window, detection.Type, result.TotalRows)
		result.Records = append(result.Records, records...)
		result.Errors = append(result.Errors, rowErrors...)
		result.TotalRows += len(window)
		window = window[:0]
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, unreadable(source, err)
		}
		window = append(window, NewFlatRow(header, record))
		if len(window) == v.batchSize {
			flush()
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if len(window) > 0 {
		flush()
	}

	result.ProcessedRows = len(result.Records)
	result.ErrorCount = len(result.Errors)
	logger.Infof(ctx, "Completed processing %s: %d successful, %d errors", source, result.ProcessedRows, result.ErrorCount)
	return result, nil
}

func unreadable(source string, err error) error {
	return appError.NewFileAccessError(source, fmt.Errorf("%w: %v", appError.ErrObjectUnreadable, err))
}
