package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchingest/internal/domain/schema"
	appError "batchingest/internal/shared/error"
)

func newValidator(t *testing.T) *JSONSchemaValidator {
	t.Helper()
	v, err := NewJSONSchemaValidator(schema.MustNewRegistry())
	require.NoError(t, err)
	return v.(*JSONSchemaValidator)
}

func validTransaction() map[string]any {
	return map[string]any{
		"transaction_id":   "txn_123456",
		"customer_id":      "cust_789",
		"amount":           99.99,
		"currency":         "USD",
		"transaction_type": "purchase",
		"timestamp":        "2024-01-15T10:30:00Z",
		"payment_method":   map[string]any{"type": "credit_card", "last_four": "4242"},
	}
}

func TestValidateAcceptsConformingTransaction(t *testing.T) {
	v := newValidator(t)
	assert.NoError(t, v.Validate(context.Background(), schema.Transaction, validTransaction()))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(doc map[string]any)
		location string
	}{
		{"unknown currency", func(d map[string]any) { d["currency"] = "XYZ" }, "/currency"},
		{"bad transaction type", func(d map[string]any) { d["transaction_type"] = "gift" }, "/transaction_type"},
		{"amount below minimum", func(d map[string]any) { d["amount"] = 0.0 }, "/amount"},
		{"bad timestamp", func(d map[string]any) { d["timestamp"] = "yesterday" }, "/timestamp"},
		{"bad last four", func(d map[string]any) {
			d["payment_method"] = map[string]any{"type": "cash", "last_four": "12"}
		}, "/payment_method/last_four"},
		{"undeclared field", func(d map[string]any) { d["extra_field"] = "not allowed" }, "(root)"},
		{"missing required", func(d map[string]any) { delete(d, "customer_id") }, "(root)"},
		{"id too long", func(d map[string]any) {
			id := make([]byte, 101)
			for i := range id {
				id[i] = 'a'
			}
			d["transaction_id"] = string(id)
		}, "/transaction_id"},
	}

	v := newValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validTransaction()
			tt.mutate(doc)

			err := v.Validate(context.Background(), schema.Transaction, doc)
			require.Error(t, err)
			assert.ErrorIs(t, err, appError.ErrRowValidation)
			assert.Contains(t, err.Error(), tt.location)
		})
	}
}

func TestValidateShopEmailFormat(t *testing.T) {
	v := newValidator(t)
	shop := map[string]any{
		"shop_id":           "shop_1",
		"name":              "Corner Store",
		"category":          "electronics",
		"status":            "active",
		"owner":             map[string]any{"name": "Sam Doe", "email": "not-an-email"},
		"address":           map[string]any{"street": "1 Main St", "city": "Springfield", "country": "US"},
		"registration_date": "2024-01-15T10:30:00Z",
	}

	err := v.Validate(context.Background(), schema.Shop, shop)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/owner/email")

	shop["owner"] = map[string]any{"name": "Sam Doe", "email": "sam@example.com"}
	assert.NoError(t, v.Validate(context.Background(), schema.Shop, shop))
}

func TestValidateUnknownType(t *testing.T) {
	v := newValidator(t)
	err := v.Validate(context.Background(), schema.RecordType("invoice"), map[string]any{})
	assert.ErrorIs(t, err, appError.ErrUnsupportedRecords)
}
