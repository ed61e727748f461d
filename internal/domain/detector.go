package domain

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"batchingest/internal/domain/schema"
	logger "batchingest/internal/shared/log"
)

// fullMatchThreshold is the number of shared columns above which a header
// is attributed to a layout when no unique column matched.
const fullMatchThreshold = 5

// Detection is the outcome of header based type detection.
type Detection struct {
	Type      schema.RecordType `json:"type"`
	Defaulted bool              `json:"defaulted"`
	Reason    string            `json:"reason,omitempty"`
}

// TypeDetector attributes a CSV header to one of the record layouts.
type TypeDetector struct {
	unique map[schema.RecordType]map[string]struct{}
	full   map[schema.RecordType]map[string]struct{}
}

func NewTypeDetector(registry *schema.Registry) *TypeDetector {
	d := &TypeDetector{
		unique: make(map[schema.RecordType]map[string]struct{}, len(schema.Types)),
		full:   make(map[schema.RecordType]map[string]struct{}, len(schema.Types)),
	}
	for _, t := range schema.Types {
		d.unique[t] = toSet(registry.UniqueHeaders(t))
		d.full[t] = toSet(registry.Columns(t))
	}
	return d
}

// Detect classifies a header. Layouts are always tried in schema.Types order,
// so a header carrying unique columns of several layouts resolves to the
// first of them.
func (d *TypeDetector) Detect(ctx context.Context, headers []string) Detection {
	normalized := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		normalized[normalizeHeader(h)] = struct{}{}
	}

	for _, t := range schema.Types {
		for h := range normalized {
			if _, ok := d.unique[t][h]; ok {
				return Detection{Type: t}
			}
		}
	}

	for _, t := range schema.Types {
		matches := 0
		for h := range normalized {
			if _, ok := d.full[t][h]; ok {
				matches++
			}
		}
		if matches > fullMatchThreshold {
			return Detection{Type: t}
		}
	}

	return d.fallback(ctx, "headers match no known layout")
}

// DetectReader reads only the first line of r.
func (d *TypeDetector) DetectReader(ctx context.Context, r io.Reader) Detection {
	if r == nil {
		return d.fallback(ctx, "source is not readable")
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return d.fallback(ctx, "source is empty")
		}
		return d.fallback(ctx, "header could not be read: "+err.Error())
	}
	return d.Detect(ctx, header)
}

func (d *TypeDetector) fallback(ctx context.Context, reason string) Detection {
	logger.Warnf(ctx, "Could not detect data type (%s), defaulting to %s", reason, schema.Transaction)
	return Detection{Type: schema.Transaction, Defaulted: true, Reason: reason}
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = normalizeHeader(h)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
