// Package memory holds in-process repositories used by tests and by the API
// when no database is configured.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
	"github.com/ynachiket/acp-checkout-poc/internal/repository/checkout"
	"github.com/ynachiket/acp-checkout-poc/internal/repository/order"
	"github.com/ynachiket/acp-checkout-poc/internal/repository/product"
)

// Store is a combined in-memory store. Values are deep-copied on the way in
// and out so callers never share state with the store.
type Store struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	sessions map[string]domain.CheckoutSession
	orders   map[string]domain.Order
	events   map[string][]domain.OrderEvent
}

func NewStore() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		sessions: make(map[string]domain.CheckoutSession),
		orders:   make(map[string]domain.Order),
		events:   make(map[string][]domain.OrderEvent),
	}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (s *Store) rlock(ctx context.Context) {
	if !inTx(ctx) {
		s.mu.RLock()
	}
}

func (s *Store) runlock(ctx context.Context) {
	if !inTx(ctx) {
		s.mu.RUnlock()
	}
}

func (s *Store) wlock(ctx context.Context) {
	if !inTx(ctx) {
		s.mu.Lock()
	}
}

func (s *Store) wunlock(ctx context.Context) {
	if !inTx(ctx) {
		s.mu.Unlock()
	}
}

// Tx emulates a transaction with the store's write lock and restores a
// snapshot when the callback fails.
type Tx struct{ store *Store }

func NewTx(store *Store) *Tx { return &Tx{store: store} }

func (tx *Tx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	snap := tx.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		tx.store.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	sessions map[string]domain.CheckoutSession
	orders   map[string]domain.Order
	events   map[string][]domain.OrderEvent
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		sessions: make(map[string]domain.CheckoutSession, len(s.sessions)),
		orders:   make(map[string]domain.Order, len(s.orders)),
		events:   make(map[string][]domain.OrderEvent, len(s.events)),
	}
	for k, v := range s.sessions {
		snap.sessions[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	for k, v := range s.events {
		snap.events[k] = append([]domain.OrderEvent(nil), v...)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.sessions = snap.sessions
	s.orders = snap.orders
	s.events = snap.events
}

// clone deep-copies through JSON; every stored type round-trips cleanly.
func clone[T any](v T) T {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}

// Products returns the product repository view of the store.
func (s *Store) Products() product.Repository { return &productRepo{s} }

// Sessions returns the checkout session repository view of the store.
func (s *Store) Sessions() checkout.Repository { return &sessionRepo{s} }

// Orders returns the order repository view of the store.
func (s *Store) Orders() order.Repository { return &orderRepo{s} }

type productRepo struct{ s *Store }

func (r *productRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	r.s.rlock(ctx)
	defer r.s.runlock(ctx)
	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "Product with ID '%s' not found", id)
	}
	out := clone(p)
	return &out, nil
}

func (r *productRepo) GetByGTIN(ctx context.Context, gtin string) (*domain.Product, error) {
	r.s.rlock(ctx)
	defer r.s.runlock(ctx)
	for _, p := range r.s.products {
		if p.GTIN == gtin {
			out := clone(p)
			return &out, nil
		}
	}
	return nil, domain.Errorf(domain.ErrNotFound, "Product with GTIN '%s' not found", gtin)
}

func (r *productRepo) Search(ctx context.Context, f product.SearchFilter) ([]domain.Product, error) {
	r.s.rlock(ctx)
	defer r.s.runlock(ctx)

	q := strings.ToLower(strings.TrimSpace(f.Query))
	cat := strings.ToLower(strings.TrimSpace(f.Category))
	var out []domain.Product
	for _, p := range r.s.products {
		if q != "" && !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		if cat != "" && !strings.Contains(strings.ToLower(p.Category), cat) {
			continue
		}
		if f.PriceMin != nil && p.Price.LessThan(f.PriceMin.Decimal) {
			continue
		}
		if f.PriceMax != nil && p.Price.GreaterThan(f.PriceMax.Decimal) {
			continue
		}
		if f.Availability != "" && p.Availability != f.Availability {
			continue
		}
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *productRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	r.s.wlock(ctx)
	defer r.s.wunlock(ctx)
	for id, existing := range r.s.products {
		if existing.GTIN == p.GTIN && id != p.ID {
			return nil, domain.Errorf(domain.ErrAlreadyExists, "GTIN %s already belongs to another product", p.GTIN)
		}
	}
	if p.Availability == "" {
		p.Availability = domain.InStock
	}
	r.s.products[p.ID] = clone(p)
	return &p, nil
}

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Create(ctx context.Context, cs *domain.CheckoutSession) error {
	r.s.wlock(ctx)
	defer r.s.wunlock(ctx)
	if _, ok := r.s.sessions[cs.ID]; ok {
		return domain.Errorf(domain.ErrAlreadyExists, "Session %s already exists", cs.ID)
	}
	cs.Version = 1
	r.s.sessions[cs.ID] = clone(*cs)
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	r.s.rlock(ctx)
	defer r.s.runlock(ctx)
	cs, ok := r.s.sessions[id]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "Session %s not found", id)
	}
	out := clone(cs)
	return &out, nil
}

func (r *sessionRepo) Update(ctx context.Context, cs *domain.CheckoutSession, expectedVersion int) error {
	r.s.wlock(ctx)
	defer r.s.wunlock(ctx)
	current, ok := r.s.sessions[cs.ID]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "Session %s not found", cs.ID)
	}
	if current.Version != expectedVersion {
		return domain.Errorf(domain.ErrConflict, "Session %s was modified concurrently", cs.ID)
	}
	cs.Version = expectedVersion + 1
	r.s.sessions[cs.ID] = clone(*cs)
	return nil
}

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(ctx context.Context, o *domain.Order) error {
	r.s.wlock(ctx)
	defer r.s.wunlock(ctx)
	if _, ok := r.s.orders[o.ID]; ok {
		return domain.Errorf(domain.ErrAlreadyExists, "Order %s already exists", o.ID)
	}
	for _, existing := range r.s.orders {
		if existing.CheckoutSessionID == o.CheckoutSessionID {
			return domain.Errorf(domain.ErrAlreadyExists, "Session %s already has an order", o.CheckoutSessionID)
		}
	}
	r.s.orders[o.ID] = clone(*o)
	return nil
}

func (r *orderRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	r.s.rlock(ctx)
	defer r.s.runlock(ctx)
	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "Order %s not found", id)
	}
	out := clone(o)
	return &out, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, in order.UpdateStatusInput) error {
	r.s.wlock(ctx)
	defer r.s.wunlock(ctx)
	o, ok := r.s.orders[in.OrderID]
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "Order %s not found", in.OrderID)
	}
	if o.Status != in.From {
		return domain.Errorf(domain.ErrConflict, "Order %s is no longer %s", in.OrderID, in.From)
	}
	o.Status = in.To
	if in.TrackingNumber != nil {
		tn := *in.TrackingNumber
		o.TrackingNumber = &tn
	}
	o.UpdatedAt = in.At
	r.s.orders[in.OrderID] = o
	return nil
}

func (r *orderRepo) AppendEvent(ctx context.Context, e *domain.OrderEvent) error {
	r.s.wlock(ctx)
	defer r.s.wunlock(ctx)
	if _, ok := r.s.orders[e.OrderID]; !ok {
		return domain.Errorf(domain.ErrNotFound, "Order %s not found", e.OrderID)
	}
	r.s.events[e.OrderID] = append(r.s.events[e.OrderID], clone(*e))
	return nil
}

func (r *orderRepo) ListEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	r.s.rlock(ctx)
	defer r.s.runlock(ctx)
	return clone(r.s.events[orderID]), nil
}
