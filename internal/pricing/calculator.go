package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

// LineTotal is unit price times quantity, rounded to cents.
func LineTotal(unit domain.Amount, quantity int) domain.Amount {
	return domain.AmountOf(unit.Mul(decimal.NewFromInt(int64(quantity)))).Round2()
}

// Tax applies the policy rate to subtotal and rounds half away from zero.
func (p Policy) Tax(subtotal domain.Amount) domain.Amount {
	return domain.AmountOf(subtotal.Mul(p.TaxRate)).Round2()
}

// Totals recomputes every total from scratch. A nil fulfillment cost means no
// address is known yet, so neither shipping nor tax is charged.
func (p Policy) Totals(items []domain.LineItem, fulfillment *domain.Amount) domain.Totals {
	itemsTotal := decimal.Zero
	for _, li := range items {
		itemsTotal = itemsTotal.Add(LineTotal(li.UnitPrice, li.Quantity).Decimal)
	}
	items2 := domain.AmountOf(itemsTotal).Round2()
	discounts := domain.Zero
	fees := domain.Zero
	subtotal := domain.AmountOf(items2.Sub(discounts.Decimal))

	shipping := domain.Zero
	taxes := domain.Zero
	if fulfillment != nil {
		shipping = fulfillment.Round2()
		taxes = p.Tax(subtotal)
	}
	total := domain.AmountOf(subtotal.Add(shipping.Decimal).Add(taxes.Decimal).Add(fees.Decimal))

	return domain.Totals{
		ItemsTotal:  domain.NewMoney(items2, p.Currency),
		Discounts:   domain.NewMoney(discounts, p.Currency),
		Subtotal:    domain.NewMoney(subtotal, p.Currency),
		Fulfillment: domain.NewMoney(shipping, p.Currency),
		Taxes:       domain.NewMoney(taxes, p.Currency),
		Fees:        domain.NewMoney(fees, p.Currency),
		Total:       domain.NewMoney(total, p.Currency),
	}
}
