package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"tanglewood-gallery/internal/domain"
)

const orderColumns = `
id::text, cart_session_id, items, subtotal_cents, shipping_cents, tax_cents, total_cents, currency,
COALESCE(gateway_session, ''), status, customer_email, customer_name, shipping_details,
created_at, updated_at, paid_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, err
	}
	shipJSON, err := json.Marshal(o.ShippingDetails)
	if err != nil {
		return nil, err
	}
	if o.Status == "" {
		o.Status = domain.OrderPending
	}

	q := `
INSERT INTO orders (
    id, cart_session_id, items, subtotal_cents, shipping_cents, tax_cents, total_cents, currency,
    gateway_session, status, customer_email, customer_name, shipping_details
) VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13)
RETURNING ` + orderColumns
	created, err := r.scanOrder(r.pool.QueryRow(ctx, q,
		o.ID,
		o.CartSessionID,
		itemsJSON,
		o.SubtotalCents,
		o.ShippingCents,
		o.TaxCents,
		o.TotalCents,
		o.Currency,
		o.GatewaySession,
		string(o.Status),
		o.CustomerEmail,
		o.CustomerName,
		shipJSON,
	))
	if err != nil {
		r.logger.Printf("order repo: create session=%s error=%v", o.CartSessionID, err)
		return nil, err
	}
	r.logger.Printf("order repo: created id=%s items=%d total=%d", created.ID, len(created.Items), created.TotalCents)
	return created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id::text = $1`, id))
}

func (r *postgresRepo) GetBySessionRef(ctx context.Context, gatewaySession string) (*domain.Order, error) {
	return r.scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_session = $1`, gatewaySession))
}

func (r *postgresRepo) AttachSession(ctx context.Context, id, gatewaySession string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET gateway_session = $1, updated_at = now()
WHERE id::text = $2
`, gatewaySession, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		r.logger.Printf("order repo: attach session id=%s error=%v", id, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetStatus moves an order to status. Moving to processing records paid_at once.
func (r *postgresRepo) SetStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	q := `
UPDATE orders
SET status = $1,
    updated_at = now(),
    paid_at = CASE WHEN $1 = 'processing' AND paid_at IS NULL THEN now() ELSE paid_at END
WHERE id::text = $2
RETURNING ` + orderColumns
	o, err := r.scanOrder(r.pool.QueryRow(ctx, q, string(status), id))
	if err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: status id=%s status=%s", id, status)
	return o, nil
}

func (r *postgresRepo) scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                   domain.Order
		status              string
		itemsJSON, shipJSON []byte
	)
	err := row.Scan(
		&o.ID,
		&o.CartSessionID,
		&itemsJSON,
		&o.SubtotalCents,
		&o.ShippingCents,
		&o.TaxCents,
		&o.TotalCents,
		&o.Currency,
		&o.GatewaySession,
		&status,
		&o.CustomerEmail,
		&o.CustomerName,
		&shipJSON,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("order repo: scan error=%v", err)
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			r.logger.Printf("order repo: decode items id=%s err=%v", o.ID, err)
			return nil, err
		}
	}
	if len(shipJSON) > 0 {
		if err := json.Unmarshal(shipJSON, &o.ShippingDetails); err != nil {
			r.logger.Printf("order repo: decode shipping id=%s err=%v", o.ID, err)
			return nil, err
		}
	}
	return &o, nil
}
