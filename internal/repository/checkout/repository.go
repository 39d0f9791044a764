package checkout

import (
	"context"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

// Repository persists checkout sessions. Update is a compare-and-swap on
// Version: it fails with domain.ErrConflict when the stored version differs
// from expectedVersion and bumps Version on success.
type Repository interface {
	Create(ctx context.Context, s *domain.CheckoutSession) error
	Get(ctx context.Context, id string) (*domain.CheckoutSession, error)
	Update(ctx context.Context, s *domain.CheckoutSession, expectedVersion int) error
}
