package checkout

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

func (r *postgresRepo) Create(ctx context.Context, s *domain.CheckoutSession) error {
	const q = `
INSERT INTO checkout_sessions (
    id, status, currency, line_items, fulfillment_address, fulfillment_options,
    selected_fulfillment_option_id, totals, buyer_info, payment_token_id, order_id,
    version, created_at, updated_at, expires_at
)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, NULLIF($10, ''), NULLIF($11, ''), 1, $12, $13, $14)
`
	_, err := repository.Conn(ctx, r.pool).Exec(ctx, q,
		s.ID,
		string(s.Status),
		s.Currency,
		s.LineItems,
		s.FulfillmentAddress,
		optionsParam(s.FulfillmentOptions),
		s.SelectedFulfillmentOptionID,
		s.Totals,
		s.BuyerInfo,
		s.PaymentTokenID,
		s.OrderID,
		s.CreatedAt,
		s.UpdatedAt,
		s.ExpiresAt,
	)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return domain.Errorf(domain.ErrAlreadyExists, "Session %s already exists", s.ID)
		}
		r.logger.Printf("checkout repo: create id=%s error=%v", s.ID, err)
		return err
	}
	s.Version = 1
	r.logger.Printf("checkout repo: created id=%s status=%s items=%d", s.ID, s.Status, len(s.LineItems))
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	const q = `
SELECT id, status, currency, line_items, fulfillment_address, fulfillment_options,
       COALESCE(selected_fulfillment_option_id, ''), totals, buyer_info,
       COALESCE(payment_token_id, ''), COALESCE(order_id, ''), version, created_at, updated_at, expires_at
FROM checkout_sessions
WHERE id = $1
`
	var (
		s      domain.CheckoutSession
		status string
	)
	err := repository.Conn(ctx, r.pool).QueryRow(ctx, q, id).Scan(
		&s.ID,
		&status,
		&s.Currency,
		&s.LineItems,
		&s.FulfillmentAddress,
		&s.FulfillmentOptions,
		&s.SelectedFulfillmentOptionID,
		&s.Totals,
		&s.BuyerInfo,
		&s.PaymentTokenID,
		&s.OrderID,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("checkout repo: get id=%s not found", id)
			return nil, domain.Errorf(domain.ErrNotFound, "Session %s not found", id)
		}
		r.logger.Printf("checkout repo: get id=%s error=%v", id, err)
		return nil, err
	}
	s.Status = domain.SessionStatus(status)
	return &s, nil
}

func (r *postgresRepo) Update(ctx context.Context, s *domain.CheckoutSession, expectedVersion int) error {
	const q = `
UPDATE checkout_sessions
SET status = $1,
    fulfillment_address = $2,
    fulfillment_options = $3,
    selected_fulfillment_option_id = NULLIF($4, ''),
    totals = $5,
    buyer_info = $6,
    payment_token_id = NULLIF($7, ''),
    order_id = NULLIF($8, ''),
    updated_at = $9,
    version = version + 1
WHERE id = $10 AND version = $11
`
	tag, err := repository.Conn(ctx, r.pool).Exec(ctx, q,
		string(s.Status),
		s.FulfillmentAddress,
		optionsParam(s.FulfillmentOptions),
		s.SelectedFulfillmentOptionID,
		s.Totals,
		s.BuyerInfo,
		s.PaymentTokenID,
		s.OrderID,
		s.UpdatedAt,
		s.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Printf("checkout repo: update id=%s version=%d error=%v", s.ID, expectedVersion, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, s.ID); err != nil {
			return err
		}
		r.logger.Printf("checkout repo: update id=%s version=%d stale", s.ID, expectedVersion)
		return domain.Errorf(domain.ErrConflict, "Session %s was modified concurrently", s.ID)
	}
	s.Version = expectedVersion + 1
	r.logger.Printf("checkout repo: updated id=%s status=%s version=%d", s.ID, s.Status, s.Version)
	return nil
}

// optionsParam keeps "no options yet" as SQL NULL rather than an empty array.
func optionsParam(opts []domain.FulfillmentOption) any {
	if len(opts) == 0 {
		return nil
	}
	return opts
}
