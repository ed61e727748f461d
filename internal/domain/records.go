package domain

import (
	"strings"

	"batchingest/internal/domain/schema"
)

// FlatRow is one CSV data row keyed by normalized header. Columns keeps the
// header order of the source.
type FlatRow struct {
	Columns []string
	values  map[string]string
}

// NewFlatRow pairs a header with one record. Short records are padded with
// empty values and surplus fields are dropped.
func NewFlatRow(header, record []string) FlatRow {
	row := FlatRow{
		Columns: header,
		values:  make(map[string]string, len(header)),
	}
	for i, column := range header {
		if i < len(record) {
			row.values[column] = record[i]
		} else {
			row.values[column] = ""
		}
	}
	return row
}

// RowFromMap builds a row from column/value pairs in the order given by columns.
func RowFromMap(columns []string, values map[string]string) FlatRow {
	record := make([]string, len(columns))
	for i, c := range columns {
		record[i] = values[c]
	}
	return NewFlatRow(columns, record)
}

// Get returns the trimmed value of column, or "" when absent.
func (r FlatRow) Get(column string) string {
	return strings.TrimSpace(r.values[column])
}

func (r FlatRow) Has(column string) bool {
	return r.Get(column) != ""
}

func (r FlatRow) any(columns ...string) bool {
	for _, c := range columns {
		if r.Has(c) {
			return true
		}
	}
	return false
}

// Map returns a copy of the raw values.
func (r FlatRow) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// CanonicalRecord is the nested form of one row. It is implemented by
// *Transaction, *Shop and *Product.
type CanonicalRecord interface {
	RecordType() schema.RecordType
}

type PaymentMethod struct {
	Type     string `json:"type"`
	LastFour string `json:"last_four,omitempty"`
	Provider string `json:"provider,omitempty"`
}

type Location struct {
	Country    string `json:"country,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

type Transaction struct {
	TransactionID   string         `json:"transaction_id"`
	CustomerID      string         `json:"customer_id"`
	Amount          float64        `json:"amount"`
	Currency        string         `json:"currency"`
	TransactionType string         `json:"transaction_type"`
	Timestamp       string         `json:"timestamp"`
	MerchantID      string         `json:"merchant_id,omitempty"`
	Description     string         `json:"description,omitempty"`
	PaymentMethod   *PaymentMethod `json:"payment_method,omitempty"`
	Location        *Location      `json:"location,omitempty"`
}

func (*Transaction) RecordType() schema.RecordType { return schema.Transaction }

type Owner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

type BusinessHours struct {
	Monday    string `json:"monday,omitempty"`
	Tuesday   string `json:"tuesday,omitempty"`
	Wednesday string `json:"wednesday,omitempty"`
	Thursday  string `json:"thursday,omitempty"`
	Friday    string `json:"friday,omitempty"`
	Saturday  string `json:"saturday,omitempty"`
	Sunday    string `json:"sunday,omitempty"`
}

type Shop struct {
	ShopID           string         `json:"shop_id"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	Category         string         `json:"category"`
	Status           string         `json:"status"`
	Owner            *Owner         `json:"owner,omitempty"`
	Address          *Address       `json:"address,omitempty"`
	Contact          *Contact       `json:"contact,omitempty"`
	BusinessHours    *BusinessHours `json:"business_hours,omitempty"`
	RegistrationDate string         `json:"registration_date"`
	LastUpdated      string         `json:"last_updated,omitempty"`
}

func (*Shop) RecordType() schema.RecordType { return schema.Shop }

type Price struct {
	Amount             float64  `json:"amount"`
	Currency           string   `json:"currency"`
	DiscountAmount     *float64 `json:"discount_amount,omitempty"`
	DiscountPercentage *float64 `json:"discount_percentage,omitempty"`
}

type Inventory struct {
	Quantity          int    `json:"quantity"`
	Reserved          *int   `json:"reserved,omitempty"`
	WarehouseLocation string `json:"warehouse_location,omitempty"`
}

type Dimensions struct {
	Length *float64 `json:"length,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
}

type Attributes struct {
	Color    string `json:"color,omitempty"`
	Size     string `json:"size,omitempty"`
	Material string `json:"material,omitempty"`
	Style    string `json:"style,omitempty"`
}

type Product struct {
	ProductID   string      `json:"product_id"`
	SKU         string      `json:"sku"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory,omitempty"`
	Brand       string      `json:"brand,omitempty"`
	Price       *Price      `json:"price,omitempty"`
	Inventory   *Inventory  `json:"inventory,omitempty"`
	Dimensions  *Dimensions `json:"dimensions,omitempty"`
	Attributes  *Attributes `json:"attributes,omitempty"`
	ShopID      string      `json:"shop_id"`
	Status      string      `json:"status"`
	Images      []any       `json:"images,omitempty"`
	Tags        []any       `json:"tags,omitempty"`
	CreatedDate string      `json:"created_date"`
	LastUpdated string      `json:"last_updated,omitempty"`
}

func (*Product) RecordType() schema.RecordType { return schema.Product }

// ValidationError reports why one source row was rejected. Row is 1-based
// and counts data rows only.
type ValidationError struct {
	Row     int               `json:"row"`
	Message string            `json:"error"`
	Data    map[string]string `json:"data,omitempty"`
}

// ProcessingResult is the outcome of validating one source file.
type ProcessingResult struct {
	DataType           schema.RecordType `json:"data_type"`
	TotalRows          int               `json:"total_rows"`
	ProcessedRows      int               `json:"processed_rows"`
	ErrorCount         int               `json:"error_count"`
	Records            []CanonicalRecord `json:"-"`
	Errors             []ValidationError `json:"errors,omitempty"`
	SourceFile         string            `json:"source_file"`
	DetectionDefaulted bool              `json:"detection_defaulted,omitempty"`
}
