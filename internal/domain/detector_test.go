package domain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"batchingest/internal/domain/schema"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk error") }

func TestDetectByUniqueHeaders(t *testing.T) {
	detector := NewTypeDetector(testRegistry)
	ctx := context.Background()

	tests := []struct {
		name    string
		headers []string
		want    schema.RecordType
	}{
		{"full transaction layout", testRegistry.Columns(schema.Transaction), schema.Transaction},
		{"full shop layout", testRegistry.Columns(schema.Shop), schema.Shop},
		{"full product layout", testRegistry.Columns(schema.Product), schema.Product},
		{"single shop column", []string{"owner_email", "unrelated"}, schema.Shop},
		{"single product column", []string{"sku"}, schema.Product},
		{"mixed case and spaces", []string{"  Transaction_ID ", "AMOUNT"}, schema.Transaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detector.Detect(ctx, tt.headers)
			assert.Equal(t, tt.want, got.Type)
			assert.False(t, got.Defaulted)
		})
	}
}

func TestDetectPrefersEarlierLayoutWhenUniqueHeadersOverlap(t *testing.T) {
	detector := NewTypeDetector(testRegistry)
	ctx := context.Background()

	assert.Equal(t, schema.Shop, detector.Detect(ctx, []string{"sku", "owner_email"}).Type)
	assert.Equal(t, schema.Transaction, detector.Detect(ctx, []string{"sku", "owner_email", "customer_id"}).Type)
	assert.Equal(t, schema.Transaction, detector.Detect(ctx, []string{"price_amount", "payment_method_type"}).Type)
}

func TestDetectFallsBackToSharedColumnCount(t *testing.T) {
	detector := NewTypeDetector(testRegistry)

	// Every one of these columns is shared by the shop and product layouts.
	got := detector.Detect(context.Background(), []string{"name", "description", "category", "status", "shop_id", "last_updated"})
	assert.Equal(t, schema.Shop, got.Type)
	assert.False(t, got.Defaulted)
}

func TestDetectDefaultsToTransaction(t *testing.T) {
	detector := NewTypeDetector(testRegistry)
	ctx := context.Background()

	tests := []struct {
		name string
		got  Detection
	}{
		{"unknown headers", detector.Detect(ctx, []string{"foo", "bar"})},
		{"too few shared columns", detector.Detect(ctx, []string{"name", "status", "category"})},
		{"unreadable source", detector.DetectReader(ctx, failingReader{})},
		{"nil source", detector.DetectReader(ctx, nil)},
		{"empty source", detector.DetectReader(ctx, strings.NewReader(""))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, schema.Transaction, tt.got.Type)
			assert.True(t, tt.got.Defaulted)
			assert.NotEmpty(t, tt.got.Reason)
		})
	}
}

func TestDetectReaderUsesFirstLine(t *testing.T) {
	detector := NewTypeDetector(testRegistry)

	got := detector.DetectReader(context.Background(), strings.NewReader("product_id,sku,name\nprod_1,SKU-1,Lamp\n"))
	assert.Equal(t, schema.Product, got.Type)
	assert.False(t, got.Defaulted)
}
