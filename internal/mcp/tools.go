package mcp

// Tool describes one callable tool and the JSON schema of its arguments.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

const (
	ToolSearchProducts     = "search_products"
	ToolGetProductDetails  = "get_product_details"
	ToolCreateCheckout     = "create_checkout"
	ToolAddShippingAddress = "add_shipping_address"
	ToolCompletePurchase   = "complete_purchase"
	ToolGetOrderStatus     = "get_order_status"
)

func object(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

func addressSchema() map[string]any {
	country := prop("string", "Two-letter country code")
	country["default"] = "US"
	schema := object(map[string]any{
		"name":           prop("string", "Recipient name"),
		"address_line_1": prop("string", "Street address"),
		"address_line_2": prop("string", "Apartment, suite or unit"),
		"city":           prop("string", "City"),
		"state":          prop("string", "State or region code"),
		"postal_code":    prop("string", "ZIP or postal code"),
		"country":        country,
	}, "address_line_1", "city", "state", "postal_code")
	schema["description"] = "Shipping address"
	return schema
}

// Catalog returns the static tool list served by tools/list.
func Catalog() []Tool {
	category := prop("string", "Filter by category, for example Shoes, Apparel or Equipment")
	category["enum"] = []string{"Shoes", "Apparel", "Equipment"}
	limit := prop("integer", "Maximum number of results to return")
	limit["default"] = 10
	limit["minimum"] = 1
	limit["maximum"] = 100
	gtin := prop("string", "Product GTIN (8-14 digits)")
	gtin["pattern"] = "^[0-9]{8,14}$"
	quantity := prop("integer", "Quantity to purchase")
	quantity["minimum"] = 1
	email := prop("string", "Buyer email address for the order confirmation")
	email["format"] = "email"
	items := map[string]any{
		"type":        "array",
		"description": "Products to purchase",
		"minItems":    1,
		"items": object(map[string]any{
			"gtin":     prop("string", "Product GTIN"),
			"quantity": quantity,
		}, "gtin", "quantity"),
	}
	paymentMethod := object(map[string]any{
		"card_number": prop("string", "Card number"),
		"exp_month":   prop("integer", "Expiry month (1-12)"),
		"exp_year":    prop("integer", "Expiry year (four digits)"),
		"cvc":         prop("string", "Card security code"),
	}, "card_number", "exp_month", "exp_year", "cvc")
	paymentMethod["description"] = "Card details; they are tokenized before the charge"

	return []Tool{
		{
			Name:        ToolSearchProducts,
			Description: "Search the catalog by keyword, category or maximum price. Returns matching products.",
			InputSchema: object(map[string]any{
				"query":     prop("string", "Search keywords, for example 'Air Max' or 'running shoes'"),
				"category":  category,
				"price_max": prop("number", "Maximum price in the store currency"),
				"limit":     limit,
			}, "query"),
		},
		{
			Name:        ToolGetProductDetails,
			Description: "Look up one product by its GTIN (Global Trade Item Number).",
			InputSchema: object(map[string]any{"gtin": gtin}, "gtin"),
		},
		{
			Name:        ToolCreateCheckout,
			Description: "Start a checkout session for the given products. Returns the session id and the item subtotal.",
			InputSchema: object(map[string]any{
				"items":       items,
				"buyer_email": email,
			}, "items"),
		},
		{
			Name:        ToolAddShippingAddress,
			Description: "Attach a shipping address to a checkout session and calculate shipping and tax.",
			InputSchema: object(map[string]any{
				"session_id":            prop("string", "Checkout session id returned by create_checkout"),
				"address":               addressSchema(),
				"fulfillment_option_id": prop("string", "Shipping option to select; defaults to the cheapest"),
			}, "session_id", "address"),
		},
		{
			Name:        ToolCompletePurchase,
			Description: "Pay for a checkout session and place the order. Returns the order confirmation.",
			InputSchema: object(map[string]any{
				"session_id":     prop("string", "Checkout session id"),
				"payment_method": paymentMethod,
			}, "session_id", "payment_method"),
		},
		{
			Name:        ToolGetOrderStatus,
			Description: "Check the status of an order by its id.",
			InputSchema: object(map[string]any{
				"order_id": prop("string", "Order id from the purchase confirmation"),
			}, "order_id"),
		},
	}
}
