package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
	"github.com/ynachiket/acp-checkout-poc/internal/repository"
)

const productColumns = `id, gtin, COALESCE(mpn, ''), title, COALESCE(description, ''), brand, COALESCE(category, ''),
price::text, currency, availability, images, variants, customizable, created_at, updated_at`

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

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(repository.Conn(ctx, r.pool).QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get id=%s not found", id)
			return nil, domain.Errorf(domain.ErrNotFound, "Product with ID '%s' not found", id)
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) GetByGTIN(ctx context.Context, gtin string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE gtin = $1`
	p, err := scanProduct(repository.Conn(ctx, r.pool).QueryRow(ctx, q, gtin))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get gtin=%s not found", gtin)
			return nil, domain.Errorf(domain.ErrNotFound, "Product with GTIN '%s' not found", gtin)
		}
		r.logger.Printf("product repo: get gtin=%s error=%v", gtin, err)
		return nil, err
	}
	r.logger.Printf("product repo: get gtin=%s id=%s", gtin, p.ID)
	return p, nil
}

func (r *postgresRepo) Search(ctx context.Context, f SearchFilter) ([]domain.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg("%" + q + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		where = append(where, "category ILIKE "+arg("%"+c+"%"))
	}
	if f.PriceMin != nil {
		where = append(where, "price >= "+arg(f.PriceMin.String())+"::numeric")
	}
	if f.PriceMax != nil {
		where = append(where, "price <= "+arg(f.PriceMax.String())+"::numeric")
	}
	if f.Availability != "" {
		where = append(where, "availability = "+arg(string(f.Availability)))
	}

	q := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY title, id LIMIT " + arg(f.Limit)

	rows, err := repository.Conn(ctx, r.pool).Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("product repo: search query=%q error=%v", f.Query, err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: search rows query=%q error=%v", f.Query, err)
		return nil, err
	}
	r.logger.Printf("product repo: search query=%q category=%q count=%d", f.Query, f.Category, len(result))
	return result, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, gtin, mpn, title, description, brand, category, price, currency, availability, images, variants, customizable)
VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8::numeric, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
    gtin = EXCLUDED.gtin,
    mpn = EXCLUDED.mpn,
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    brand = EXCLUDED.brand,
    category = EXCLUDED.category,
    price = EXCLUDED.price,
    currency = EXCLUDED.currency,
    availability = EXCLUDED.availability,
    images = EXCLUDED.images,
    variants = EXCLUDED.variants,
    customizable = EXCLUDED.customizable,
    updated_at = now()
RETURNING created_at, updated_at
`
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Variants == nil {
		p.Variants = []map[string]string{}
	}
	if p.Availability == "" {
		p.Availability = domain.InStock
	}
	err := repository.Conn(ctx, r.pool).QueryRow(ctx, q,
		p.ID,
		p.GTIN,
		p.MPN,
		p.Title,
		p.Description,
		p.Brand,
		p.Category,
		p.Price.String(),
		p.Currency,
		string(p.Availability),
		p.Images,
		p.Variants,
		p.Customizable,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			r.logger.Printf("product repo: upsert id=%s gtin=%s duplicate gtin", p.ID, p.GTIN)
			return nil, domain.Errorf(domain.ErrAlreadyExists, "GTIN %s already belongs to another product", p.GTIN)
		}
		r.logger.Printf("product repo: upsert id=%s gtin=%s error=%v", p.ID, p.GTIN, err)
		return nil, err
	}
	r.logger.Printf("product repo: upserted id=%s gtin=%s", p.ID, p.GTIN)
	return &p, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
		avail string
	)
	if err := row.Scan(
		&p.ID,
		&p.GTIN,
		&p.MPN,
		&p.Title,
		&p.Description,
		&p.Brand,
		&p.Category,
		&price,
		&p.Currency,
		&avail,
		&p.Images,
		&p.Variants,
		&p.Customizable,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	amount, err := domain.NewAmount(price)
	if err != nil {
		return nil, err
	}
	p.Price = amount
	p.Availability = domain.Availability(avail)
	return &p, nil
}
