package domain

import (
	"strings"
	"time"
)

type Availability string

const (
	InStock    Availability = "in_stock"
	OutOfStock Availability = "out_of_stock"
)

// Product is a read-only catalog entry. GTIN is unique across the catalog.
type Product struct {
	ID           string              `json:"id"`
	GTIN         string              `json:"gtin"`
	MPN          string              `json:"mpn,omitempty"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Brand        string              `json:"brand,omitempty"`
	Category     string              `json:"category,omitempty"`
	Price        Amount              `json:"price"`
	Currency     string              `json:"currency"`
	Availability Availability        `json:"availability"`
	Images       []string            `json:"images"`
	Variants     []map[string]string `json:"variants"`
	Customizable bool                `json:"customizable"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (p Product) InStock() bool {
	return p.Availability == InStock
}

// IsGiftCard reports whether the product is a gift card by category or title.
func (p Product) IsGiftCard() bool {
	return strings.Contains(strings.ToLower(p.Category), "gift card") ||
		strings.Contains(strings.ToLower(p.Title), "gift card")
}

// IsCustomizable reports whether the product is made to order.
func (p Product) IsCustomizable() bool {
	return p.Customizable || strings.Contains(strings.ToLower(p.Category), "customizable")
}
