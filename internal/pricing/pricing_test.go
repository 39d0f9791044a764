package pricing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

func item(price string, qty int) domain.LineItem {
	return domain.LineItem{UnitPrice: domain.MustAmount(price), Quantity: qty}
}

func amt(s string) *domain.Amount {
	a := domain.MustAmount(s)
	return &a
}

func TestTotalsItemsTotalIsExact(t *testing.T) {
	p := DefaultPolicy()

	got := p.Totals([]domain.LineItem{item("19.99", 3)}, nil)
	assert.Equal(t, "59.97", got.ItemsTotal.Value.String())

	got = p.Totals([]domain.LineItem{item("0.10", 3), item("0.20", 1), item("120.00", 2)}, nil)
	assert.Equal(t, "240.50", got.ItemsTotal.Value.String())
	assert.Equal(t, "240.50", got.Subtotal.Value.String())
	assert.Equal(t, "USD", got.Total.Currency)
}

func TestTotalsWithoutAddressChargesNoShippingOrTax(t *testing.T) {
	got := DefaultPolicy().Totals([]domain.LineItem{item("120.00", 1)}, nil)
	assert.Equal(t, "0.00", got.Fulfillment.Value.String())
	assert.Equal(t, "0.00", got.Taxes.Value.String())
	assert.Equal(t, "120.00", got.Total.Value.String())
}

func TestTotalsEndToEndScenario(t *testing.T) {
	got := DefaultPolicy().Totals([]domain.LineItem{item("120.00", 1)}, amt("5.00"))
	assert.Equal(t, "120.00", got.ItemsTotal.Value.String())
	assert.Equal(t, "0.00", got.Discounts.Value.String())
	assert.Equal(t, "5.00", got.Fulfillment.Value.String())
	assert.Equal(t, "9.60", got.Taxes.Value.String())
	assert.Equal(t, "0.00", got.Fees.Value.String())
	assert.Equal(t, "134.60", got.Total.Value.String())
}

func TestTaxRounding(t *testing.T) {
	p := DefaultPolicy()
	cases := map[string]string{
		"0.00":   "0.00",
		"99.99":  "8.00",
		"120.00": "9.60",
		"62.505": "5.00",
		"62.50":  "5.00",
		"0.06":   "0.00",
		"0.07":   "0.01",
	}
	for subtotal, want := range cases {
		assert.Equalf(t, want, p.Tax(domain.MustAmount(subtotal)).String(), "subtotal %s", subtotal)
	}
}

func TestTaxRoundsHalfAwayFromZero(t *testing.T) {
	p := DefaultPolicy()
	p.TaxRate = decimal.RequireFromString("0.10")
	// 0.005 is the midpoint; banker's rounding would give 0.00.
	assert.Equal(t, "0.01", p.Tax(domain.MustAmount("0.05")).String())
	assert.Equal(t, "0.03", p.Tax(domain.MustAmount("0.25")).String())
}

func TestTotalsUseInjectedRate(t *testing.T) {
	p := DefaultPolicy()
	p.TaxRate = decimal.Zero
	got := p.Totals([]domain.LineItem{item("120.00", 1)}, amt("25.00"))
	assert.Equal(t, "145.00", got.Total.Value.String())
}

func TestCatalogOptionsReturnsCopies(t *testing.T) {
	provider := NewCatalogOptions(StandardShipping)
	opts, err := provider.Options(context.Background(), domain.Address{}, domain.Zero)
	require.NoError(t, err)
	require.Len(t, opts, 3)
	assert.Equal(t, "standard", opts[0].ID)
	assert.Equal(t, "5.00", opts[0].Cost.String())
	assert.Equal(t, 5, opts[0].DeliveryMinDays)
	assert.Equal(t, 7, opts[0].DeliveryMaxDays)
	assert.Equal(t, "express", opts[1].ID)
	assert.Equal(t, "15.00", opts[1].Cost.String())
	assert.Equal(t, "overnight", opts[2].ID)
	assert.Equal(t, "25.00", opts[2].Cost.String())
	assert.Equal(t, 1, opts[2].DeliveryMaxDays)

	opts[0].ID = "mutated"
	again, _ := provider.Options(context.Background(), domain.Address{}, domain.Zero)
	assert.Equal(t, "standard", again[0].ID)
}

func TestValidateAddress(t *testing.T) {
	valid := domain.Address{AddressLine1: "1 Bowerman Dr", City: "Beaverton", State: "OR", PostalCode: "97005", Country: "US"}
	ok, reason := ValidateAddress(valid, "US")
	assert.True(t, ok)
	assert.Empty(t, reason)

	missing := valid
	missing.City = ""
	missing.PostalCode = ""
	ok, reason = ValidateAddress(missing, "US")
	assert.False(t, ok)
	assert.Equal(t, "Missing required field: city", reason)

	foreign := valid
	foreign.Country = "CA"
	ok, reason = ValidateAddress(foreign, "US")
	assert.False(t, ok)
	assert.Equal(t, "Currently only shipping to US addresses", reason)
}
