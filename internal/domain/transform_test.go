package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchingest/internal/domain/schema"
)

func TestTransactionTransformer(t *testing.T) {
	row := rowOf(schema.Transaction, map[string]string{
		"transaction_id":           "txn_001",
		"customer_id":              "cust_001",
		"amount":                   "150.25",
		"transaction_type":         "purchase",
		"timestamp":                "2024-01-15T10:30:00Z",
		"payment_method_type":      "credit_card",
		"payment_method_last_four": "4242",
	})

	record, err := TransactionTransformer{}.Transform(row)
	require.NoError(t, err)

	tx, ok := record.(*Transaction)
	require.True(t, ok)
	assert.Equal(t, schema.Transaction, tx.RecordType())
	assert.Equal(t, 150.25, tx.Amount)
	assert.Equal(t, "USD", tx.Currency)
	require.NotNil(t, tx.PaymentMethod)
	assert.Equal(t, "credit_card", tx.PaymentMethod.Type)
	assert.Equal(t, "4242", tx.PaymentMethod.LastFour)
	assert.Nil(t, tx.Location)
}

func TestTransactionTransformerOmitsEmptySubObjects(t *testing.T) {
	row := rowOf(schema.Transaction, map[string]string{"transaction_id": "txn_002"})

	record, err := TransactionTransformer{}.Transform(row)
	require.NoError(t, err)

	tx := record.(*Transaction)
	assert.Nil(t, tx.PaymentMethod)
	assert.Nil(t, tx.Location)
	assert.Zero(t, tx.Amount)
	assert.Empty(t, tx.CustomerID)
}

func TestTransactionTransformerRejectsBadAmount(t *testing.T) {
	row := rowOf(schema.Transaction, map[string]string{"amount": "12,50"})

	_, err := TransactionTransformer{}.Transform(row)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}

func TestShopTransformer(t *testing.T) {
	row := rowOf(schema.Shop, map[string]string{
		"shop_id":               "shop_1",
		"name":                  "Corner Store",
		"category":              "food_beverage",
		"status":                "active",
		"owner_name":            "Ada Lovelace",
		"owner_email":           "ada@example.com",
		"address_street":        "1 Main St",
		"address_city":          "London",
		"address_country":       "GB",
		"business_hours_monday": "09:00-17:00",
		"registration_date":     "2023-03-01T00:00:00Z",
	})

	record, err := ShopTransformer{}.Transform(row)
	require.NoError(t, err)

	shop := record.(*Shop)
	require.NotNil(t, shop.Owner)
	assert.Equal(t, "ada@example.com", shop.Owner.Email)
	require.NotNil(t, shop.Address)
	assert.Equal(t, "GB", shop.Address.Country)
	require.NotNil(t, shop.BusinessHours)
	assert.Equal(t, "09:00-17:00", shop.BusinessHours.Monday)
	assert.Empty(t, shop.BusinessHours.Sunday)
	assert.Nil(t, shop.Contact)
}

func TestProductTransformer(t *testing.T) {
	row := rowOf(schema.Product, map[string]string{
		"product_id":         "prod_1",
		"sku":                "SKU-1",
		"price_amount":       "19.99",
		"inventory_quantity": "7",
		"dimensions_weight":  "1.5",
		"images":             `["https://cdn.example.com/a.jpg","https://cdn.example.com/b.jpg"]`,
		"tags":               "summer, sale ,outdoor",
	})

	record, err := ProductTransformer{}.Transform(row)
	require.NoError(t, err)

	product := record.(*Product)
	require.NotNil(t, product.Price)
	assert.Equal(t, 19.99, product.Price.Amount)
	assert.Equal(t, "USD", product.Price.Currency)
	assert.Nil(t, product.Price.DiscountAmount)
	require.NotNil(t, product.Inventory)
	assert.Equal(t, 7, product.Inventory.Quantity)
	assert.Nil(t, product.Inventory.Reserved)
	require.NotNil(t, product.Dimensions)
	require.NotNil(t, product.Dimensions.Weight)
	assert.Equal(t, 1.5, *product.Dimensions.Weight)
	assert.Nil(t, product.Dimensions.Length)
	assert.Nil(t, product.Attributes)
	assert.Equal(t, []any{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}, product.Images)
	assert.Equal(t, []any{"summer", "sale", "outdoor"}, product.Tags)
}

func TestProductTransformerRejectsBadInteger(t *testing.T) {
	row := rowOf(schema.Product, map[string]string{"inventory_quantity": "7.5"})

	_, err := ProductTransformer{}.Transform(row)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inventory_quantity")
}

func TestParseList(t *testing.T) {
	tests := []struct {
		cell string
		want []any
	}{
		{`["a","b"]`, []any{"a", "b"}},
		{`[]`, []any{}},
		{`[1,2]`, []any{json.RawMessage("1"), json.RawMessage("2")}},
		{`["a",null]`, []any{"a", json.RawMessage("null")}},
		{"red, green,blue", []any{"red", "green", "blue"}},
		{"a, b ,", []any{"a", "b", ""}},
		{"https://cdn.example.com/only.jpg", []any{"https://cdn.example.com/only.jpg"}},
		{`{"a":1}`, []any{`{"a":1}`}},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			assert.Equal(t, tt.want, parseList(tt.cell))
		})
	}
}

func TestTransformerFor(t *testing.T) {
	for _, rt := range schema.Types {
		tr, err := TransformerFor(rt)
		require.NoError(t, err)
		assert.NotNil(t, tr)
	}

	_, err := TransformerFor(schema.RecordType("invoice"))
	assert.Error(t, err)
}
