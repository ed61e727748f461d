// Package schema holds the immutable descriptors of the three record
// layouts accepted by batch ingestion: their CSV columns, the JSON Schema
// documents used for structural validation, and the monetary precision
// rules applied before structural validation.
//
// A Registry is built once at startup and shared by reference; nothing in it
// is mutated after NewRegistry returns.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed schemas/*.schema.json
var documents embed.FS

type RecordType string

const (
	Transaction RecordType = "transaction"
	Shop        RecordType = "shop"
	Product     RecordType = "product"
)

// Types lists every record type in detection priority order.
var Types = []RecordType{Transaction, Shop, Product}

func (t RecordType) String() string { return string(t) }

// ParseRecordType accepts a case-insensitive record type name.
func ParseRecordType(s string) (RecordType, error) {
	switch RecordType(strings.ToLower(strings.TrimSpace(s))) {
	case Transaction:
		return Transaction, nil
	case Shop:
		return Shop, nil
	case Product:
		return Product, nil
	}
	return "", fmt.Errorf("unsupported data type: %q", s)
}

// MonetaryField names a decimal field whose fractional digits are capped.
type MonetaryField struct {
	Path        []string
	Label       string
	MaxDecimals int32
}

type RecordSchema struct {
	Type     RecordType
	Columns  []string
	Document []byte
	Monetary []MonetaryField
}

// DocumentName is the resource name the schema document is compiled under.
func (s *RecordSchema) DocumentName() string {
	return string(s.Type) + ".schema.json"
}

type Registry struct {
	schemas map[RecordType]*RecordSchema
	unique  map[RecordType][]string
}

func NewRegistry() (*Registry, error) {
	r := &Registry{
		schemas: make(map[RecordType]*RecordSchema, len(Types)),
		unique:  make(map[RecordType][]string, len(Types)),
	}

	for _, t := range Types {
		doc, err := documents.ReadFile("schemas/" + string(t) + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("failed to load %s schema: %w", t, err)
		}
		if !json.Valid(doc) {
			return nil, fmt.Errorf("%s schema is not valid JSON", t)
		}
		r.schemas[t] = &RecordSchema{
			Type:     t,
			Columns:  columns[t],
			Document: doc,
			Monetary: monetary[t],
		}
	}

	for _, t := range Types {
		others := make(map[string]struct{})
		for _, o := range Types {
			if o == t {
				continue
			}
			for _, c := range columns[o] {
				others[c] = struct{}{}
			}
		}
		var unique []string
		for _, c := range columns[t] {
			if _, shared := others[c]; !shared {
				unique = append(unique, c)
			}
		}
		sort.Strings(unique)
		r.unique[t] = unique
	}

	return r, nil
}

// MustNewRegistry panics when the embedded documents are broken. Intended
// for tests and package-level fixtures.
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Schema(t RecordType) (*RecordSchema, bool) {
	s, ok := r.schemas[t]
	return s, ok
}

// Columns returns a copy of the expected CSV header for t.
func (r *Registry) Columns(t RecordType) []string {
	s, ok := r.schemas[t]
	if !ok {
		return nil
	}
	return append([]string(nil), s.Columns...)
}

// UniqueHeaders returns the columns of t that no other layout shares.
func (r *Registry) UniqueHeaders(t RecordType) []string {
	return append([]string(nil), r.unique[t]...)
}
