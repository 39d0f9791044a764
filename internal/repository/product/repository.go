package product

import (
	"context"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByGTIN(ctx context.Context, gtin string) (*domain.Product, error)
	Search(ctx context.Context, filter SearchFilter) ([]domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// SearchFilter narrows a catalog search. Zero values mean "no filter".
// Query matches title or description, Category is a substring match.
type SearchFilter struct {
	Query        string
	Category     string
	PriceMin     *domain.Amount
	PriceMax     *domain.Amount
	Availability domain.Availability
	Limit        int
}
