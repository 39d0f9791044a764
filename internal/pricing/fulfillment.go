package pricing

import (
	"context"
	"strings"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

// OptionsProvider computes the shipping choices for an address. Implementations
// are stateless; every call starts from scratch.
type OptionsProvider interface {
	Options(ctx context.Context, addr domain.Address, itemsTotal domain.Amount) ([]domain.FulfillmentOption, error)
}

// CatalogOptions offers a fixed catalog regardless of address or basket.
type CatalogOptions struct {
	catalog []domain.FulfillmentOption
}

func NewCatalogOptions(catalog []domain.FulfillmentOption) *CatalogOptions {
	return &CatalogOptions{catalog: catalog}
}

func (c *CatalogOptions) Options(_ context.Context, _ domain.Address, _ domain.Amount) ([]domain.FulfillmentOption, error) {
	out := make([]domain.FulfillmentOption, len(c.catalog))
	copy(out, c.catalog)
	return out, nil
}

// ValidateAddress checks required fields in order and the ship-to country.
func ValidateAddress(addr domain.Address, country string) (bool, string) {
	required := []struct {
		name  string
		value string
	}{
		{"address_line_1", addr.AddressLine1},
		{"city", addr.City},
		{"state", addr.State},
		{"postal_code", addr.PostalCode},
		{"country", addr.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return false, "Missing required field: " + f.name
		}
	}
	if country != "" && addr.Country != country {
		return false, "Currently only shipping to " + country + " addresses"
	}
	return true, ""
}
