package schema

var columns = map[RecordType][]string{
	Transaction: {
		"transaction_id",
		"customer_id",
		"amount",
		"currency",
		"transaction_type",
		"timestamp",
		"merchant_id",
		"description",
		"payment_method_type",
		"payment_method_last_four",
		"payment_method_provider",
		"location_country",
		"location_city",
		"location_postal_code",
	},
	Shop: {
		"shop_id",
		"name",
		"description",
		"category",
		"status",
		"owner_name",
		"owner_email",
		"owner_phone",
		"address_street",
		"address_city",
		"address_state",
		"address_postal_code",
		"address_country",
		"contact_phone",
		"contact_email",
		"contact_website",
		"business_hours_monday",
		"business_hours_tuesday",
		"business_hours_wednesday",
		"business_hours_thursday",
		"business_hours_friday",
		"business_hours_saturday",
		"business_hours_sunday",
		"registration_date",
		"last_updated",
	},
	Product: {
		"product_id",
		"sku",
		"name",
		"description",
		"category",
		"subcategory",
		"brand",
		"price_amount",
		"price_currency",
		"price_discount_amount",
		"price_discount_percentage",
		"inventory_quantity",
		"inventory_reserved",
		"inventory_warehouse_location",
		"dimensions_length",
		"dimensions_width",
		"dimensions_height",
		"dimensions_weight",
		"attributes_color",
		"attributes_size",
		"attributes_material",
		"attributes_style",
		"shop_id",
		"status",
		"images",
		"tags",
		"created_date",
		"last_updated",
	},
}

// Currency amounts carry at most two fractional digits.
var monetary = map[RecordType][]MonetaryField{
	Transaction: {
		{Path: []string{"amount"}, Label: "Amount", MaxDecimals: 2},
	},
	Product: {
		{Path: []string{"price", "amount"}, Label: "Price amount", MaxDecimals: 2},
		{Path: []string{"price", "discount_amount"}, Label: "Discount amount", MaxDecimals: 2},
	},
}
