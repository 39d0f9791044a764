package order

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
	"github.com/ynachiket/acp-checkout-poc/internal/repository"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, o *domain.Order) error {
	const q = `
INSERT INTO orders (
    id, checkout_session_id, status, line_items, shipping_address, shipping_option,
    totals, buyer_info, payment_id, tracking_number, permalink, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`
	_, err := repository.Conn(ctx, r.pool).Exec(ctx, q,
		o.ID,
		o.CheckoutSessionID,
		string(o.Status),
		o.LineItems,
		o.ShippingAddress,
		o.ShippingOption,
		o.Totals,
		o.BuyerInfo,
		o.PaymentID,
		o.TrackingNumber,
		o.Permalink,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			r.logger.Printf("order repo: create id=%s session=%s duplicate", o.ID, o.CheckoutSessionID)
			return domain.Errorf(domain.ErrAlreadyExists, "Session %s already has an order", o.CheckoutSessionID)
		}
		r.logger.Printf("order repo: create id=%s error=%v", o.ID, err)
		return err
	}
	r.logger.Printf("order repo: created id=%s session=%s total=%s", o.ID, o.CheckoutSessionID, o.Totals.Total.Value)
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	const q = `
SELECT id, checkout_session_id, status, line_items, shipping_address, shipping_option,
       totals, buyer_info, payment_id, tracking_number, permalink, created_at, updated_at
FROM orders
WHERE id = $1
`
	var (
		o      domain.Order
		status string
	)
	err := repository.Conn(ctx, r.pool).QueryRow(ctx, q, id).Scan(
		&o.ID,
		&o.CheckoutSessionID,
		&status,
		&o.LineItems,
		&o.ShippingAddress,
		&o.ShippingOption,
		&o.Totals,
		&o.BuyerInfo,
		&o.PaymentID,
		&o.TrackingNumber,
		&o.Permalink,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("order repo: get id=%s not found", id)
			return nil, domain.Errorf(domain.ErrNotFound, "Order %s not found", id)
		}
		r.logger.Printf("order repo: get id=%s error=%v", id, err)
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, in UpdateStatusInput) error {
	const q = `
UPDATE orders
SET status = $1,
    tracking_number = COALESCE($2, tracking_number),
    updated_at = $3
WHERE id = $4 AND status = $5
`
	tag, err := repository.Conn(ctx, r.pool).Exec(ctx, q, string(in.To), in.TrackingNumber, in.At, in.OrderID, string(in.From))
	if err != nil {
		r.logger.Printf("order repo: update status id=%s error=%v", in.OrderID, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, in.OrderID); err != nil {
			return err
		}
		return domain.Errorf(domain.ErrConflict, "Order %s is no longer %s", in.OrderID, in.From)
	}
	r.logger.Printf("order repo: status id=%s %s->%s", in.OrderID, in.From, in.To)
	return nil
}

func (r *postgresRepo) AppendEvent(ctx context.Context, e *domain.OrderEvent) error {
	const q = `
INSERT INTO order_events (id, order_id, event_type, event_data, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	data := e.EventData
	if data == nil {
		data = map[string]any{}
	}
	if _, err := repository.Conn(ctx, r.pool).Exec(ctx, q, e.ID, e.OrderID, e.EventType, data, e.CreatedAt); err != nil {
		r.logger.Printf("order repo: append event order=%s type=%s error=%v", e.OrderID, e.EventType, err)
		return err
	}
	r.logger.Printf("order repo: event id=%s order=%s type=%s", e.ID, e.OrderID, e.EventType)
	return nil
}

func (r *postgresRepo) ListEvents(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	const q = `
SELECT id, order_id, event_type, event_data, created_at
FROM order_events
WHERE order_id = $1
ORDER BY created_at, id
`
	rows, err := repository.Conn(ctx, r.pool).Query(ctx, q, orderID)
	if err != nil {
		r.logger.Printf("order repo: list events order=%s error=%v", orderID, err)
		return nil, err
	}
	defer rows.Close()

	var events []domain.OrderEvent
	for rows.Next() {
		var e domain.OrderEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.EventType, &e.EventData, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
