package order

import (
	"context"
	"time"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, in UpdateStatusInput) error
	AppendEvent(ctx context.Context, e *domain.OrderEvent) error
	ListEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error)
}

// UpdateStatusInput moves an order from From to To. The write fails with
// domain.ErrConflict if the stored status is no longer From.
type UpdateStatusInput struct {
	OrderID        string
	From           domain.OrderStatus
	To             domain.OrderStatus
	TrackingNumber *string
	At             time.Time
}
