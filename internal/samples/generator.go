// Package samples generates CSV sources in the three record layouts, for
// local runs and tests.
package samples

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"batchingest/internal/domain/schema"
)

var (
	currencies       = []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "CHF", "CNY", "INR"}
	transactionTypes = []string{"purchase", "refund", "transfer", "deposit", "withdrawal"}
	paymentTypes     = []string{"credit_card", "debit_card", "bank_transfer", "digital_wallet", "cash"}
	providers        = []string{"visa", "mastercard", "amex", "paypal"}
	countries        = []string{"US", "GB", "DE", "FR", "CA", "IN"}
	shopCategories   = []string{"electronics", "clothing", "food_beverage", "health_beauty", "home_garden", "books_media"}
	shopStatuses     = []string{"active", "inactive", "suspended", "pending"}
	productStatuses  = []string{"active", "inactive", "discontinued", "out_of_stock"}
	hours            = []string{"09:00-17:00", "10:00-18:00", "08:00-20:00", "closed"}
	weekdays         = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
)

type Generator struct {
	faker    *gofakeit.Faker
	registry *schema.Registry
}

// NewGenerator returns a generator seeded with seed. A zero seed is random.
func NewGenerator(registry *schema.Registry, seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed), registry: registry}
}

func (g *Generator) timestamp() string {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	return g.faker.DateRange(start, end).UTC().Format(time.RFC3339)
}

func (g *Generator) money(minCents, maxCents int) string {
	return strconv.FormatFloat(float64(g.faker.Number(minCents, maxCents))/100, 'f', 2, 64)
}

// Row returns one conforming row of layout t, keyed by column.
func (g *Generator) Row(t schema.RecordType) map[string]string {
	f := g.faker
	switch t {
	case schema.Transaction:
		return map[string]string{
			"transaction_id":           "txn_" + f.Numerify("##########"),
			"customer_id":              "cust_" + f.Numerify("######"),
			"amount":                   g.money(100, 500000),
			"currency":                 f.RandomString(currencies),
			"transaction_type":         f.RandomString(transactionTypes),
			"timestamp":                g.timestamp(),
			"merchant_id":              "merch_" + f.Numerify("####"),
			"description":              f.Sentence(6),
			"payment_method_type":      f.RandomString(paymentTypes),
			"payment_method_last_four": f.Numerify("####"),
			"payment_method_provider":  f.RandomString(providers),
			"location_country":         f.RandomString(countries),
			"location_city":            f.City(),
			"location_postal_code":     f.Zip(),
		}
	case schema.Shop:
		row := map[string]string{
			"shop_id":             "shop_" + f.Numerify("######"),
			"name":                f.Company(),
			"description":         f.Sentence(8),
			"category":            f.RandomString(shopCategories),
			"status":              f.RandomString(shopStatuses),
			"owner_name":          f.Name(),
			"owner_email":         f.Email(),
			"owner_phone":         "+1" + f.Numerify("##########"),
			"address_street":      f.Street(),
			"address_city":        f.City(),
			"address_state":       f.State(),
			"address_postal_code": f.Zip(),
			"address_country":     f.RandomString(countries),
			"contact_phone":       "+44" + f.Numerify("#########"),
			"contact_email":       f.Email(),
			"contact_website":     "https://www." + f.DomainName(),
			"registration_date":   g.timestamp(),
			"last_updated":        g.timestamp(),
		}
		for _, day := range weekdays {
			row["business_hours_"+day] = f.RandomString(hours)
		}
		return row
	case schema.Product:
		return map[string]string{
			"product_id":                   "prod_" + f.Numerify("######"),
			"sku":                          "SKU-" + f.Numerify("########"),
			"name":                         f.Company() + " " + f.Word(),
			"description":                  f.Sentence(10),
			"category":                     f.RandomString(shopCategories),
			"subcategory":                  f.Word(),
			"brand":                        f.Company(),
			"price_amount":                 g.money(99, 99999),
			"price_currency":               f.RandomString(currencies),
			"price_discount_amount":        g.money(0, 500),
			"price_discount_percentage":    strconv.Itoa(f.Number(0, 50)),
			"inventory_quantity":           strconv.Itoa(f.Number(0, 1000)),
			"inventory_reserved":           strconv.Itoa(f.Number(0, 20)),
			"inventory_warehouse_location": "WH-" + f.Numerify("##"),
			"dimensions_length":            strconv.Itoa(f.Number(1, 100)),
			"dimensions_width":             strconv.Itoa(f.Number(1, 100)),
			"dimensions_height":            strconv.Itoa(f.Number(1, 100)),
			"dimensions_weight":            g.money(10, 5000),
			"attributes_color":             f.Color(),
			"attributes_size":              f.RandomString([]string{"S", "M", "L", "XL"}),
			"attributes_material":          f.RandomString([]string{"cotton", "steel", "plastic", "wood"}),
			"attributes_style":             f.RandomString([]string{"modern", "classic", "casual"}),
			"shop_id":                      "shop_" + f.Numerify("######"),
			"status":                       f.RandomString(productStatuses),
			"images":                       fmt.Sprintf(`["https://cdn.example.com/%s.jpg"]`, f.Numerify("####")),
			"tags":                         f.Word() + "," + f.Word(),
			"created_date":                 g.timestamp(),
			"last_updated":                 g.timestamp(),
		}
	}
	return map[string]string{}
}

// InvalidRow returns a row of layout t that fails validation. variant picks
// among several kinds of defect.
func (g *Generator) InvalidRow(t schema.RecordType, variant int) map[string]string {
	row := g.Row(t)
	switch t {
	case schema.Transaction:
		switch variant % 4 {
		case 0:
			row["transaction_id"] = ""
		case 1:
			row["amount"] = "99.999"
		case 2:
			row["currency"] = "XYZ"
		default:
			row["amount"] = "not-a-number"
		}
	case schema.Shop:
		switch variant % 3 {
		case 0:
			row["owner_email"] = "not-an-email"
		case 1:
			row["category"] = "weapons"
		default:
			row["business_hours_monday"] = "9 to 5"
		}
	case schema.Product:
		switch variant % 3 {
		case 0:
			row["price_amount"] = "10.005"
		case 1:
			row["inventory_quantity"] = "-3"
		default:
			row["status"] = "sold"
		}
	}
	return row
}

// WriteCSV writes a header and rows conforming rows followed by invalid
// defective ones.
func (g *Generator) WriteCSV(w io.Writer, t schema.RecordType, rows, invalid int) error {
	columns := g.registry.Columns(t)
	if len(columns) == 0 {
		return fmt.Errorf("unsupported data type: %s", t)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return err
	}
	write := func(row map[string]string) error {
		record := make([]string, len(columns))
		for i, c := range columns {
			record[i] = row[c]
		}
		return writer.Write(record)
	}
	for i := 0; i < rows; i++ {
		if err := write(g.Row(t)); err != nil {
			return err
		}
	}
	for i := 0; i < invalid; i++ {
		if err := write(g.InvalidRow(t, i)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
