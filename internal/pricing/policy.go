package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

// Policy carries the pricing knobs injected into the checkout engine.
type Policy struct {
	TaxRate         decimal.Decimal
	Currency        string
	MaxItemQuantity int
	ShipToCountry   string
	ShippingCatalog []domain.FulfillmentOption
}

// StandardShipping is the fixed option catalog offered for every US address.
var StandardShipping = []domain.FulfillmentOption{
	{
		ID:              "standard",
		Title:           "Standard Shipping",
		Subtitle:        "5-7 business days",
		Cost:            domain.MustAmount("5.00"),
		DeliveryMinDays: 5,
		DeliveryMaxDays: 7,
	},
	{
		ID:              "express",
		Title:           "Express Shipping",
		Subtitle:        "2-3 business days",
		Cost:            domain.MustAmount("15.00"),
		DeliveryMinDays: 2,
		DeliveryMaxDays: 3,
	},
	{
		ID:              "overnight",
		Title:           "Overnight Shipping",
		Subtitle:        "1 business day",
		Cost:            domain.MustAmount("25.00"),
		DeliveryMinDays: 1,
		DeliveryMaxDays: 1,
	},
}

// DefaultPolicy is 8% tax, USD, ten units per line and the standard catalog.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:         decimal.RequireFromString("0.08"),
		Currency:        "USD",
		MaxItemQuantity: 10,
		ShipToCountry:   "US",
		ShippingCatalog: StandardShipping,
	}
}
