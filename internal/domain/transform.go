package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"batchingest/internal/domain/schema"
)

const defaultCurrency = "USD"

// RecordTransformer maps a flat CSV row onto the nested record of one layout.
// Errors are scoped to the row being transformed.
type RecordTransformer interface {
	Transform(row FlatRow) (CanonicalRecord, error)
}

// TransformerFor returns the transformer of a record type.
func TransformerFor(t schema.RecordType) (RecordTransformer, error) {
	switch t {
	case schema.Transaction:
		return TransactionTransformer{}, nil
	case schema.Shop:
		return ShopTransformer{}, nil
	case schema.Product:
		return ProductTransformer{}, nil
	}
	return nil, fmt.Errorf("unsupported data type: %s", t)
}

type TransactionTransformer struct{}

func (TransactionTransformer) Transform(row FlatRow) (CanonicalRecord, error) {
	amount, err := floatColumn(row, "amount")
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		TransactionID:   row.Get("transaction_id"),
		CustomerID:      row.Get("customer_id"),
		Amount:          amount,
		Currency:        orDefault(row.Get("currency"), defaultCurrency),
		TransactionType: row.Get("transaction_type"),
		Timestamp:       row.Get("timestamp"),
		MerchantID:      row.Get("merchant_id"),
		Description:     row.Get("description"),
	}

	if row.any("payment_method_type", "payment_method_last_four", "payment_method_provider") {
		tx.PaymentMethod = &PaymentMethod{
			Type:     row.Get("payment_method_type"),
			LastFour: row.Get("payment_method_last_four"),
			Provider: row.Get("payment_method_provider"),
		}
	}
	if row.any("location_country", "location_city", "location_postal_code") {
		tx.Location = &Location{
			Country:    row.Get("location_country"),
			City:       row.Get("location_city"),
			PostalCode: row.Get("location_postal_code"),
		}
	}
	return tx, nil
}

type ShopTransformer struct{}

func (ShopTransformer) Transform(row FlatRow) (CanonicalRecord, error) {
	shop := &Shop{
		ShopID:           row.Get("shop_id"),
		Name:             row.Get("name"),
		Description:      row.Get("description"),
		Category:         row.Get("category"),
		Status:           row.Get("status"),
		RegistrationDate: row.Get("registration_date"),
		LastUpdated:      row.Get("last_updated"),
	}

	if row.any("owner_name", "owner_email", "owner_phone") {
		shop.Owner = &Owner{
			Name:  row.Get("owner_name"),
			Email: row.Get("owner_email"),
			Phone: row.Get("owner_phone"),
		}
	}
	if row.any("address_street", "address_city", "address_state", "address_postal_code", "address_country") {
		shop.Address = &Address{
			Street:     row.Get("address_street"),
			City:       row.Get("address_city"),
			State:      row.Get("address_state"),
			PostalCode: row.Get("address_postal_code"),
			Country:    row.Get("address_country"),
		}
	}
	if row.any("contact_phone", "contact_email", "contact_website") {
		shop.Contact = &Contact{
			Phone:   row.Get("contact_phone"),
			Email:   row.Get("contact_email"),
			Website: row.Get("contact_website"),
		}
	}
	if row.any(
		"business_hours_monday", "business_hours_tuesday", "business_hours_wednesday",
		"business_hours_thursday", "business_hours_friday", "business_hours_saturday",
		"business_hours_sunday",
	) {
		shop.BusinessHours = &BusinessHours{
			Monday:    row.Get("business_hours_monday"),
			Tuesday:   row.Get("business_hours_tuesday"),
			Wednesday: row.Get("business_hours_wednesday"),
			Thursday:  row.Get("business_hours_thursday"),
			Friday:    row.Get("business_hours_friday"),
			Saturday:  row.Get("business_hours_saturday"),
			Sunday:    row.Get("business_hours_sunday"),
		}
	}
	return shop, nil
}

type ProductTransformer struct{}

func (ProductTransformer) Transform(row FlatRow) (CanonicalRecord, error) {
	product := &Product{
		ProductID:   row.Get("product_id"),
		SKU:         row.Get("sku"),
		Name:        row.Get("name"),
		Description: row.Get("description"),
		Category:    row.Get("category"),
		Subcategory: row.Get("subcategory"),
		Brand:       row.Get("brand"),
		ShopID:      row.Get("shop_id"),
		Status:      row.Get("status"),
		CreatedDate: row.Get("created_date"),
		LastUpdated: row.Get("last_updated"),
	}

	if row.any("price_amount", "price_currency", "price_discount_amount", "price_discount_percentage") {
		amount, err := floatColumn(row, "price_amount")
		if err != nil {
			return nil, err
		}
		discount, err := optionalFloat(row, "price_discount_amount")
		if err != nil {
			return nil, err
		}
		percentage, err := optionalFloat(row, "price_discount_percentage")
		if err != nil {
			return nil, err
		}
		product.Price = &Price{
			Amount:             amount,
			Currency:           orDefault(row.Get("price_currency"), defaultCurrency),
			DiscountAmount:     discount,
			DiscountPercentage: percentage,
		}
	}

	if row.any("inventory_quantity", "inventory_reserved", "inventory_warehouse_location") {
		quantity, err := intColumn(row, "inventory_quantity")
		if err != nil {
			return nil, err
		}
		reserved, err := optionalInt(row, "inventory_reserved")
		if err != nil {
			return nil, err
		}
		product.Inventory = &Inventory{
			Quantity:          quantity,
			Reserved:          reserved,
			WarehouseLocation: row.Get("inventory_warehouse_location"),
		}
	}

	if row.any("dimensions_length", "dimensions_width", "dimensions_height", "dimensions_weight") {
		dims := &Dimensions{}
		for _, f := range []struct {
			column string
			target **float64
		}{
			{"dimensions_length", &dims.Length},
			{"dimensions_width", &dims.Width},
			{"dimensions_height", &dims.Height},
			{"dimensions_weight", &dims.Weight},
		} {
			v, err := optionalFloat(row, f.column)
			if err != nil {
				return nil, err
			}
			*f.target = v
		}
		product.Dimensions = dims
	}

	if row.any("attributes_color", "attributes_size", "attributes_material", "attributes_style") {
		product.Attributes = &Attributes{
			Color:    row.Get("attributes_color"),
			Size:     row.Get("attributes_size"),
			Material: row.Get("attributes_material"),
			Style:    row.Get("attributes_style"),
		}
	}

	if row.Has("images") {
		product.Images = parseList(row.Get("images"))
	}
	if row.Has("tags") {
		product.Tags = parseList(row.Get("tags"))
	}
	return product, nil
}

// parseList decodes a JSON array cell. Non-string items are kept as raw
// JSON so schema validation sees them. Cells that are not a JSON array are
// split on commas when present, or kept as a single element.
func parseList(cell string) []any {
	var p fastjson.Parser
	if v, err := p.Parse(cell); err == nil && v.Type() == fastjson.TypeArray {
		items := v.GetArray()
		out := make([]any, 0, len(items))
		for _, item := range items {
			if item.Type() == fastjson.TypeString {
				out = append(out, string(item.GetStringBytes()))
				continue
			}
			out = append(out, json.RawMessage(item.MarshalTo(nil)))
		}
		return out
	}

	if strings.Contains(cell, ",") {
		parts := strings.Split(cell, ",")
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			out = append(out, strings.TrimSpace(part))
		}
		return out
	}
	return []any{cell}
}

func floatColumn(row FlatRow, column string) (float64, error) {
	raw := row.Get(column)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("could not convert %s value %q to a number", column, raw)
	}
	return v, nil
}

func optionalFloat(row FlatRow, column string) (*float64, error) {
	if !row.Has(column) {
		return nil, nil
	}
	v, err := floatColumn(row, column)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func intColumn(row FlatRow, column string) (int, error) {
	raw := row.Get(column)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("could not convert %s value %q to an integer", column, raw)
	}
	return v, nil
}

func optionalInt(row FlatRow, column string) (*int, error) {
	if !row.Has(column) {
		return nil, nil
	}
	v, err := intColumn(row, column)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
