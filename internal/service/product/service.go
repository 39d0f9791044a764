package product

import (
	"context"
	"strings"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
	productrepo "github.com/ynachiket/acp-checkout-poc/internal/repository/product"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

type Service struct {
	repo productRepo
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByGTIN(ctx context.Context, gtin string) (*domain.Product, error)
	Search(ctx context.Context, filter productrepo.SearchFilter) ([]domain.Product, error)
}

func New(repo productRepo) *Service {
	return &Service{repo: repo}
}

// SearchInput mirrors the catalog search parameters accepted by both protocols.
type SearchInput struct {
	Query        string
	Category     string
	PriceMin     *domain.Amount
	PriceMax     *domain.Amount
	Availability string
	Limit        int
}

// ValidateGTIN accepts 8 to 14 ASCII digits.
func ValidateGTIN(gtin string) error {
	if gtin == "" || strings.IndexFunc(gtin, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return domain.Errorf(domain.ErrInvalidInput, "GTIN must be numeric, got: %s", gtin)
	}
	if len(gtin) < 8 || len(gtin) > 14 {
		return domain.Errorf(domain.ErrInvalidInput, "GTIN must be 8-14 digits, got %d digits", len(gtin))
	}
	return nil
}

// GetByGTIN validates the format before touching storage.
func (s *Service) GetByGTIN(ctx context.Context, gtin string) (*domain.Product, error) {
	if err := ValidateGTIN(gtin); err != nil {
		return nil, err
	}
	return s.repo.GetByGTIN(ctx, gtin)
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Product ID cannot be empty")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, in SearchInput) ([]domain.Product, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	var availability domain.Availability
	switch strings.TrimSpace(in.Availability) {
	case "":
	case string(domain.InStock):
		availability = domain.InStock
	case string(domain.OutOfStock):
		availability = domain.OutOfStock
	default:
		return nil, domain.Errorf(domain.ErrInvalidInput, "availability must be in_stock or out_of_stock, got: %s", in.Availability)
	}
	if in.PriceMin != nil && in.PriceMax != nil && in.PriceMin.GreaterThan(in.PriceMax.Decimal) {
		return nil, domain.Errorf(domain.ErrInvalidInput, "price_min %s exceeds price_max %s", in.PriceMin, in.PriceMax)
	}
	products, err := s.repo.Search(ctx, productrepo.SearchFilter{
		Query:        in.Query,
		Category:     in.Category,
		PriceMin:     in.PriceMin,
		PriceMax:     in.PriceMax,
		Availability: availability,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// CheckBuyability rejects products that cannot be sold through an agent:
// out of stock, gift cards and made-to-order items.
func CheckBuyability(p domain.Product) error {
	switch {
	case !p.InStock():
		return domain.Errorf(domain.ErrProductUnavailable, "Product %s is out of stock", p.ID)
	case p.IsGiftCard():
		return domain.Errorf(domain.ErrProductUnavailable, "Gift cards cannot be purchased through this channel")
	case p.IsCustomizable():
		return domain.Errorf(domain.ErrProductUnavailable, "Customizable products cannot be purchased through this channel")
	}
	return nil
}
