package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryLoadsEveryType(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	for _, typ := range Types {
		s, ok := r.Schema(typ)
		require.True(t, ok, typ)
		assert.NotEmpty(t, s.Columns)
		assert.NotEmpty(t, s.Document)
		assert.Equal(t, string(typ)+".schema.json", s.DocumentName())
	}
	assert.Len(t, r.Columns(Transaction), 14)
	assert.Len(t, r.Columns(Shop), 25)
	assert.Len(t, r.Columns(Product), 28)
}

func TestUniqueHeaders(t *testing.T) {
	r := MustNewRegistry()

	txn := r.UniqueHeaders(Transaction)
	assert.Contains(t, txn, "transaction_id")
	assert.Contains(t, txn, "payment_method_type")
	assert.NotContains(t, txn, "description", "description is shared with shop and product")

	shop := r.UniqueHeaders(Shop)
	assert.Contains(t, shop, "owner_email")
	assert.Contains(t, shop, "business_hours_friday")
	assert.NotContains(t, shop, "shop_id", "shop_id also appears in the product layout")
	assert.NotContains(t, shop, "name")

	product := r.UniqueHeaders(Product)
	assert.Contains(t, product, "sku")
	assert.Contains(t, product, "price_amount")
	assert.NotContains(t, product, "status")
}

func TestColumnsReturnsCopy(t *testing.T) {
	r := MustNewRegistry()

	cols := r.Columns(Transaction)
	cols[0] = "mutated"

	assert.Equal(t, "transaction_id", r.Columns(Transaction)[0])
}

func TestParseRecordType(t *testing.T) {
	typ, err := ParseRecordType(" Shop ")
	require.NoError(t, err)
	assert.Equal(t, Shop, typ)

	_, err = ParseRecordType("invoice")
	assert.Error(t, err)
}
