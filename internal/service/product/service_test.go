package product

import (
	"context"
	"errors"
	"testing"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
	productrepo "github.com/ynachiket/acp-checkout-poc/internal/repository/product"
)

type stubRepo struct {
	product    *domain.Product
	products   []domain.Product
	err        error
	gtinCalls  int
	lastGTIN   string
	lastFilter productrepo.SearchFilter
}

func (s *stubRepo) GetByID(_ context.Context, _ string) (*domain.Product, error) {
	return s.product, s.err
}

func (s *stubRepo) GetByGTIN(_ context.Context, gtin string) (*domain.Product, error) {
	s.gtinCalls++
	s.lastGTIN = gtin
	return s.product, s.err
}

func (s *stubRepo) Search(_ context.Context, f productrepo.SearchFilter) ([]domain.Product, error) {
	s.lastFilter = f
	return s.products, s.err
}

func TestGetByGTIN_Valid(t *testing.T) {
	repo := &stubRepo{product: &domain.Product{ID: "nike-air-max-90-white", GTIN: "00883419552502"}}
	svc := New(repo)
	p, err := svc.GetByGTIN(context.Background(), "00883419552502")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "nike-air-max-90-white" || repo.lastGTIN != "00883419552502" {
		t.Fatalf("unexpected lookup %+v gtin=%s", p, repo.lastGTIN)
	}
}

func TestGetByGTIN_RejectsBeforeQuery(t *testing.T) {
	cases := map[string]string{
		"1234567":         "GTIN must be 8-14 digits, got 7 digits",
		"abc12345":        "GTIN must be numeric, got: abc12345",
		"":                "GTIN must be numeric, got: ",
		"123456789012345": "GTIN must be 8-14 digits, got 15 digits",
	}
	for gtin, want := range cases {
		repo := &stubRepo{}
		_, err := New(repo).GetByGTIN(context.Background(), gtin)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("gtin %q: expected invalid input, got %v", gtin, err)
		}
		if err.Error() != want {
			t.Fatalf("gtin %q: expected %q, got %q", gtin, want, err.Error())
		}
		if repo.gtinCalls != 0 {
			t.Fatalf("gtin %q: repository should not be queried", gtin)
		}
	}
}

func TestSearch_DefaultsAndClampsLimit(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo)

	got, err := svc.Search(context.Background(), SearchInput{Query: "air"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
	if repo.lastFilter.Limit != 10 || repo.lastFilter.Query != "air" {
		t.Fatalf("unexpected filter %+v", repo.lastFilter)
	}

	if _, err := svc.Search(context.Background(), SearchInput{Limit: 5000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastFilter.Limit != 100 {
		t.Fatalf("expected clamp to 100, got %d", repo.lastFilter.Limit)
	}
}

func TestSearch_ValidatesFilters(t *testing.T) {
	svc := New(&stubRepo{})
	if _, err := svc.Search(context.Background(), SearchInput{Availability: "maybe"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid availability, got %v", err)
	}
	lo, hi := domain.MustAmount("200"), domain.MustAmount("100")
	if _, err := svc.Search(context.Background(), SearchInput{PriceMin: &lo, PriceMax: &hi}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid price range, got %v", err)
	}
}

func TestCheckBuyability(t *testing.T) {
	ok := domain.Product{ID: "p", Title: "Nike Pegasus 40", Availability: domain.InStock}
	if err := CheckBuyability(ok); err != nil {
		t.Fatalf("expected buyable, got %v", err)
	}
	for name, p := range map[string]domain.Product{
		"out of stock": {ID: "p", Availability: domain.OutOfStock},
		"gift card":    {ID: "p", Title: "Nike Gift Card", Availability: domain.InStock},
		"customizable": {ID: "p", Title: "Air Force 1 By You", Customizable: true, Availability: domain.InStock},
	} {
		if err := CheckBuyability(p); !errors.Is(err, domain.ErrProductUnavailable) {
			t.Fatalf("%s: expected product unavailable, got %v", name, err)
		}
	}
}
