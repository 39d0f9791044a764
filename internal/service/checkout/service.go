// Package checkout is the checkout engine shared by the ACP REST surface and
// the MCP tool surface. Both protocols translate their payloads into the
// inputs below and render the resulting session; neither touches storage.
package checkout

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
	"github.com/ynachiket/acp-checkout-poc/internal/payment"
	"github.com/ynachiket/acp-checkout-poc/internal/pricing"
	productsvc "github.com/ynachiket/acp-checkout-poc/internal/service/product"
)

type sessionRepo interface {
	Create(ctx context.Context, cs *domain.CheckoutSession) error
	Get(ctx context.Context, id string) (*domain.CheckoutSession, error)
	Update(ctx context.Context, cs *domain.CheckoutSession, expectedVersion int) error
}

type productCatalog interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByGTIN(ctx context.Context, gtin string) (*domain.Product, error)
}

type orderFinalizer interface {
	Finalize(ctx context.Context, session *domain.CheckoutSession, paymentID string) (*domain.Order, *domain.OrderEvent, error)
	Publish(ctx context.Context, event domain.OrderEvent)
}

type txManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Deps are the collaborators of the engine.
type Deps struct {
	Sessions   sessionRepo
	Products   productCatalog
	Options    pricing.OptionsProvider
	Payments   payment.Provider
	Orders     orderFinalizer
	Tx         txManager
	Policy     pricing.Policy
	SessionTTL time.Duration
	Logger     *log.Logger
}

type Service struct {
	sessions sessionRepo
	products productCatalog
	options  pricing.OptionsProvider
	payments payment.Provider
	orders   orderFinalizer
	tx       txManager
	policy   pricing.Policy
	ttl      time.Duration
	now      func() time.Time
	logger   *log.Logger
	tracer   trace.Tracer
}

const defaultSessionTTL = 24 * time.Hour

func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	options := deps.Options
	if options == nil {
		options = pricing.NewCatalogOptions(deps.Policy.ShippingCatalog)
	}
	return &Service{
		sessions: deps.Sessions,
		products: deps.Products,
		options:  options,
		payments: deps.Payments,
		orders:   deps.Orders,
		tx:       deps.Tx,
		policy:   deps.Policy,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
		tracer:   otel.Tracer("github.com/ynachiket/acp-checkout-poc/internal/service/checkout"),
	}
}

// ItemInput references a product by GTIN or, failing that, by product id.
type ItemInput struct {
	ProductID string
	GTIN      string
	Quantity  int
}

type CreateInput struct {
	Items     []ItemInput
	Address   *domain.Address
	BuyerInfo *domain.BuyerInfo
}

// UpdateInput changes the address, the selected option, or both. An option id
// given with an address is validated against the options for that address.
type UpdateInput struct {
	Address             *domain.Address
	FulfillmentOptionID string
}

type CompleteResult struct {
	Session *domain.CheckoutSession
	Order   *domain.Order
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.CheckoutSession, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Create")
	defer span.End()

	if len(in.Items) == 0 {
		return nil, domain.Errorf(domain.ErrInvalidInput, "At least one item is required")
	}
	items := make([]domain.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		li, err := s.lineItem(ctx, item)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		items = append(items, li)
	}

	now := s.now()
	cs := &domain.CheckoutSession{
		ID:        domain.NewSessionID(),
		Status:    domain.SessionNotReady,
		Currency:  s.policy.Currency,
		LineItems: items,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if in.BuyerInfo != nil {
		buyer := *in.BuyerInfo
		cs.BuyerInfo = &buyer
	}
	if in.Address != nil {
		if err := s.applyAddress(ctx, cs, *in.Address, ""); err != nil {
			return nil, err
		}
	}
	s.recompute(cs)

	if err := s.sessions.Create(ctx, cs); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("checkout.session_id", cs.ID), attribute.String("checkout.status", string(cs.Status)))
	s.logger.Printf("checkout service: created session=%s items=%d status=%s total=%s", cs.ID, len(items), cs.Status, cs.Totals.Total.Value)
	return cs, nil
}

func (s *Service) lineItem(ctx context.Context, in ItemInput) (domain.LineItem, error) {
	if in.Quantity < 1 {
		return domain.LineItem{}, domain.Errorf(domain.ErrInvalidInput, "Quantity must be at least 1")
	}

	var (
		p   *domain.Product
		err error
	)
	switch {
	case strings.TrimSpace(in.GTIN) != "":
		if err := productsvc.ValidateGTIN(in.GTIN); err != nil {
			return domain.LineItem{}, err
		}
		p, err = s.products.GetByGTIN(ctx, in.GTIN)
	case strings.TrimSpace(in.ProductID) != "":
		p, err = s.products.GetByID(ctx, in.ProductID)
	default:
		return domain.LineItem{}, domain.Errorf(domain.ErrInvalidInput, "Each item needs a gtin or product id")
	}
	if err != nil {
		return domain.LineItem{}, err
	}

	if err := productsvc.CheckBuyability(*p); err != nil {
		return domain.LineItem{}, err
	}
	if in.Quantity > s.policy.MaxItemQuantity {
		return domain.LineItem{}, domain.Errorf(domain.ErrProductUnavailable, "Product %s is limited to %d per order", p.ID, s.policy.MaxItemQuantity)
	}
	if p.Currency != "" && !strings.EqualFold(p.Currency, s.policy.Currency) {
		return domain.LineItem{}, domain.Errorf(domain.ErrInvalidInput, "Product %s is priced in %s, checkout currency is %s", p.ID, p.Currency, s.policy.Currency)
	}

	unit := p.Price.Round2()
	return domain.LineItem{
		GTIN:      p.GTIN,
		ProductID: p.ID,
		Title:     p.Title,
		Quantity:  in.Quantity,
		UnitPrice: unit,
		LineTotal: pricing.LineTotal(unit, in.Quantity),
	}, nil
}

// Get loads a session. Sessions past their expiry read as not found.
func (s *Service) Get(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Session ID is required")
	}
	cs, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cs.Expired(s.now()) {
		return nil, domain.Errorf(domain.ErrNotFound, "Session %s has expired", id)
	}
	return cs, nil
}

// Update applies an address and/or option change and recomputes every total.
// A failed update leaves the stored session untouched.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.CheckoutSession, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Update", trace.WithAttributes(attribute.String("checkout.session_id", id)))
	defer span.End()

	cs, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cs.Status.Terminal() {
		return nil, domain.Errorf(domain.ErrInvalidState, "Session %s is %s and can no longer be modified", id, cs.Status)
	}
	expected := cs.Version

	switch {
	case in.Address != nil:
		if err := s.applyAddress(ctx, cs, *in.Address, in.FulfillmentOptionID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	case in.FulfillmentOptionID != "":
		if len(cs.FulfillmentOptions) == 0 {
			return nil, domain.Errorf(domain.ErrInvalidOption, "Session %s has no fulfillment options yet, add a shipping address first", id)
		}
		if _, ok := cs.Option(in.FulfillmentOptionID); !ok {
			return nil, domain.Errorf(domain.ErrInvalidOption, "Fulfillment option %s is not available", in.FulfillmentOptionID)
		}
		cs.SelectedFulfillmentOptionID = in.FulfillmentOptionID
	}
	s.recompute(cs)
	cs.UpdatedAt = s.now()

	if err := s.sessions.Update(ctx, cs, expected); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Printf("checkout service: updated session=%s status=%s option=%s total=%s", cs.ID, cs.Status, cs.SelectedFulfillmentOptionID, cs.Totals.Total.Value)
	return cs, nil
}

// applyAddress validates addr, refreshes the offered options and selects
// optionID, or the first option when optionID is empty.
func (s *Service) applyAddress(ctx context.Context, cs *domain.CheckoutSession, addr domain.Address, optionID string) error {
	if ok, reason := pricing.ValidateAddress(addr, s.policy.ShipToCountry); !ok {
		return domain.Errorf(domain.ErrInvalidInput, "Invalid address: %s", reason)
	}

	itemsTotal := s.policy.Totals(cs.LineItems, nil).ItemsTotal.Value
	options, err := s.options.Options(ctx, addr, itemsTotal)
	if err != nil {
		return err
	}
	if len(options) == 0 {
		return domain.Errorf(domain.ErrInvalidInput, "No fulfillment options available for this address")
	}

	selected := options[0].ID
	if optionID != "" {
		found := false
		for _, opt := range options {
			if opt.ID == optionID {
				found = true
				break
			}
		}
		if !found {
			return domain.Errorf(domain.ErrInvalidOption, "Fulfillment option %s is not available", optionID)
		}
		selected = optionID
	}

	cs.FulfillmentAddress = &addr
	cs.FulfillmentOptions = options
	cs.SelectedFulfillmentOptionID = selected
	cs.Status = domain.SessionReady
	return nil
}

func (s *Service) recompute(cs *domain.CheckoutSession) {
	var shipping *domain.Amount
	if cs.FulfillmentAddress != nil {
		if opt, ok := cs.Option(cs.SelectedFulfillmentOptionID); ok {
			cost := opt.Cost
			shipping = &cost
		}
	}
	cs.Currency = s.policy.Currency
	cs.Totals = s.policy.Totals(cs.LineItems, shipping)
}

func (s *Service) Cancel(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	cs, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cs.Status.Terminal() {
		return nil, domain.Errorf(domain.ErrInvalidState, "Session %s is already %s", id, cs.Status)
	}
	expected := cs.Version
	cs.Status = domain.SessionCanceled
	cs.UpdatedAt = s.now()
	if err := s.sessions.Update(ctx, cs, expected); err != nil {
		return nil, err
	}
	s.logger.Printf("checkout service: canceled session=%s", id)
	return cs, nil
}

// DelegatePayment exchanges raw card details for a payment token.
func (s *Service) DelegatePayment(ctx context.Context, card payment.CardDetails) (string, error) {
	token, err := s.payments.Tokenize(ctx, card)
	if err != nil {
		return "", err
	}
	s.logger.Printf("checkout service: delegated payment token=%s", token)
	return token, nil
}

// Complete charges the session total and, on success, writes the order, its
// creation event and the completed session in one transaction. The event is
// published only after that transaction commits.
func (s *Service) Complete(ctx context.Context, id, paymentToken string) (*CompleteResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Complete", trace.WithAttributes(attribute.String("checkout.session_id", id)))
	defer span.End()

	cs, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cs.Status != domain.SessionReady {
		return nil, domain.Errorf(domain.ErrNotReady, "Session is not ready for payment (status: %s)", cs.Status)
	}
	if strings.TrimSpace(paymentToken) == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Payment token is required")
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, cs.Totals.Total, paymentToken)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if intent.Status != payment.IntentSucceeded {
		s.logger.Printf("checkout service: payment declined session=%s intent=%s reason=%s", id, intent.ID, intent.FailureReason)
		return nil, domain.Errorf(domain.ErrPaymentDeclined, "Payment failed: %s", intent.FailureReason)
	}

	expected := cs.Version
	var (
		order *domain.Order
		event *domain.OrderEvent
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, event, err = s.orders.Finalize(ctx, cs, intent.ID)
		if err != nil {
			return err
		}
		cs.Status = domain.SessionCompleted
		cs.PaymentTokenID = paymentToken
		cs.OrderID = order.ID
		cs.UpdatedAt = s.now()
		return s.sessions.Update(ctx, cs, expected)
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Printf("checkout service: complete failed after charge session=%s intent=%s error=%v", id, intent.ID, err)
		return nil, err
	}
	s.orders.Publish(ctx, *event)

	span.SetAttributes(attribute.String("order.id", order.ID))
	s.logger.Printf("checkout service: completed session=%s order=%s total=%s", id, order.ID, cs.Totals.Total.Value)
	return &CompleteResult{Session: cs, Order: order}, nil
}
