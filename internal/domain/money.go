package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a fixed-point monetary value. It always serializes as a
// two-place decimal string.
type Amount struct {
	decimal.Decimal
}

// Zero is 0.00.
var Zero = Amount{decimal.Zero}

// NewAmount parses a decimal string such as "120.00".
func NewAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{d}, nil
}

// MustAmount is NewAmount for constants; it panics on malformed input.
func MustAmount(s string) Amount {
	a, err := NewAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountOf wraps a decimal without rounding it.
func AmountOf(d decimal.Decimal) Amount {
	return Amount{d}
}

// Round2 rounds half away from zero to two places.
func (a Amount) Round2() Amount {
	return Amount{a.Decimal.Round(2)}
}

func (a Amount) String() string {
	return a.StringFixed(2)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.StringFixed(2))
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}

// Money is an amount tagged with its ISO 4217 currency.
type Money struct {
	Value    Amount `json:"value"`
	Currency string `json:"currency"`
}

// NewMoney rounds the amount to the currency's minor unit.
func NewMoney(a Amount, currency string) Money {
	return Money{Value: a.Round2(), Currency: currency}
}
