package validation

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"batchingest/internal/domain/schema"
	"batchingest/internal/ports"
	appError "batchingest/internal/shared/error"
)

// JSONSchemaValidator implements ports.SchemaValidator using the compiled
// JSON Schemas of the registry. Compiled schemas are read-only and safe for
// concurrent use.
type JSONSchemaValidator struct {
	schemas map[schema.RecordType]*jsonschema.Schema
}

// NewJSONSchemaValidator compiles every record schema in the registry.
func NewJSONSchemaValidator(registry *schema.Registry) (ports.SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	schemas := make(map[schema.RecordType]*jsonschema.Schema, len(schema.Types))
	for _, t := range schema.Types {
		rs, ok := registry.Schema(t)
		if !ok {
			return nil, fmt.Errorf("no %s schema registered", t)
		}
		if err := compiler.AddResource(rs.DocumentName(), bytes.NewReader(rs.Document)); err != nil {
			return nil, fmt.Errorf("failed to load %s schema: %w", t, err)
		}
		compiled, err := compiler.Compile(rs.DocumentName())
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", t, err)
		}
		schemas[t] = compiled
	}

	return &JSONSchemaValidator{schemas: schemas}, nil
}

// Validate checks a decoded JSON document (maps, slices, float64, string,
// bool) against the schema of recordType. Violations are reported with the
// deepest failing instance location.
func (v *JSONSchemaValidator) Validate(ctx context.Context, recordType schema.RecordType, document any) error {
	compiled, exists := v.schemas[recordType]
	if !exists {
		return appError.NewCustomError(400, appError.ErrUnsupportedRecords.Code, fmt.Sprintf("no schema found for %s", recordType))
	}

	err := compiled.Validate(document)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("validation failed for %s: %w", recordType, err)
	}

	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	location := leaf.InstanceLocation
	if location == "" {
		location = "(root)"
	}
	return appError.NewCustomError(422, appError.ErrRowValidation.Code, fmt.Sprintf("%s: %s", location, leaf.Message))
}
