package order

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
	orderrepo "github.com/ynachiket/acp-checkout-poc/internal/repository/order"
)

type orderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, in orderrepo.UpdateStatusInput) error
	AppendEvent(ctx context.Context, e *domain.OrderEvent) error
	ListEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error)
}

type txManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type publisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}

// Service turns completed checkout sessions into orders and owns the order
// status lifecycle.
type Service struct {
	repo          orderRepo
	tx            txManager
	publisher     publisher
	permalinkBase string
	now           func() time.Time
	logger        *log.Logger
	tracer        trace.Tracer
}

func New(repo orderRepo, tx txManager, pub publisher, permalinkBase string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		repo:          repo,
		tx:            tx,
		publisher:     pub,
		permalinkBase: strings.TrimRight(permalinkBase, "/"),
		now:           func() time.Time { return time.Now().UTC() },
		logger:        logger,
		tracer:        otel.Tracer("github.com/ynachiket/acp-checkout-poc/internal/service/order"),
	}
}

// Finalize persists an order and its order.created event in one transaction.
// When ctx already carries a transaction both writes join it, which lets the
// caller complete the source session atomically. The returned event has not
// been published; that is the caller's job once everything has committed.
func (s *Service) Finalize(ctx context.Context, session *domain.CheckoutSession, paymentID string) (*domain.Order, *domain.OrderEvent, error) {
	ctx, span := s.tracer.Start(ctx, "order.Finalize", trace.WithAttributes(attribute.String("checkout.session_id", session.ID)))
	defer span.End()

	if session.Status != domain.SessionReady {
		return nil, nil, domain.Errorf(domain.ErrNotReady, "Session is not ready for payment")
	}
	if session.FulfillmentAddress == nil || len(session.FulfillmentOptions) == 0 {
		return nil, nil, domain.Errorf(domain.ErrNotReady, "Session has no shipping details")
	}
	option, ok := session.Option(session.SelectedFulfillmentOptionID)
	if !ok {
		option = session.FulfillmentOptions[0]
	}

	now := s.now()
	id := domain.NewOrderID()
	order := &domain.Order{
		ID:                id,
		CheckoutSessionID: session.ID,
		Status:            domain.OrderCreated,
		LineItems:         append([]domain.LineItem(nil), session.LineItems...),
		ShippingAddress:   *session.FulfillmentAddress,
		ShippingOption:    option,
		Totals:            session.Totals,
		PaymentID:         paymentID,
		Permalink:         s.permalinkBase + "/" + id,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if session.BuyerInfo != nil {
		buyer := *session.BuyerInfo
		order.BuyerInfo = &buyer
	}
	event := &domain.OrderEvent{
		ID:        domain.NewEventID(),
		OrderID:   id,
		EventType: domain.EventOrderCreated,
		EventData: map[string]any{
			"total":       session.Totals.Total.Value.String(),
			"items_count": len(session.LineItems),
		},
		CreatedAt: now,
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, order); err != nil {
			return err
		}
		return s.repo.AppendEvent(ctx, event)
	})
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	span.SetAttributes(attribute.String("order.id", id))
	s.logger.Printf("order service: finalized order=%s session=%s payment=%s", id, session.ID, paymentID)
	return order, event, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Order ID is required")
	}
	return s.repo.Get(ctx, id)
}

// UpdateStatus advances the order along its state machine and appends an
// order.<status> event. Illegal transitions fail with domain.ErrInvalidState.
func (s *Service) UpdateStatus(ctx context.Context, id, status string, trackingNumber *string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus", trace.WithAttributes(attribute.String("order.id", id), attribute.String("order.status", status)))
	defer span.End()

	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, domain.Errorf(domain.ErrInvalidState, "Order %s cannot move from %s to %s", id, current.Status, next)
	}

	now := s.now()
	data := map[string]any{"status": string(next)}
	if trackingNumber != nil {
		data["tracking_number"] = *trackingNumber
	}
	event := domain.OrderEvent{
		ID:        domain.NewEventID(),
		OrderID:   id,
		EventType: domain.OrderEventType(next),
		EventData: data,
		CreatedAt: now,
	}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, orderrepo.UpdateStatusInput{
			OrderID:        id,
			From:           current.Status,
			To:             next,
			TrackingNumber: trackingNumber,
			At:             now,
		}); err != nil {
			return err
		}
		return s.repo.AppendEvent(ctx, &event)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.Publish(ctx, event)
	return s.repo.Get(ctx, id)
}

// Events lists the order's log oldest first.
func (s *Service) Events(ctx context.Context, id string) ([]domain.OrderEvent, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	events, err := s.repo.ListEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.OrderEvent{}
	}
	return events, nil
}

// Publish hands a committed event to the publisher. Failures are logged, not
// returned: the event is already durable in the order log.
func (s *Service) Publish(ctx context.Context, event domain.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Printf("order service: publish event=%s order=%s error=%v", event.ID, event.OrderID, err)
	}
}
