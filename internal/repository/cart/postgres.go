package cart

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"tanglewood-gallery/internal/cartstore"
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

func (r *postgresRepo) For(sessionID string) cartstore.Storage {
	return sessionStorage{sessionID: sessionID, load: r.load, save: r.save}
}

func (r *postgresRepo) load(ctx context.Context, sessionID string) ([]byte, error) {
	const q = `
SELECT payload::text
FROM cart_sessions
WHERE session_id = $1
`
	var payload string
	if err := r.pool.QueryRow(ctx, q, sessionID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Printf("cart repo: load session=%s error=%v", sessionID, err)
		return nil, err
	}
	return []byte(payload), nil
}

func (r *postgresRepo) save(ctx context.Context, sessionID string, data []byte) error {
	const q = `
INSERT INTO cart_sessions (session_id, payload, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (session_id) DO UPDATE SET
    payload = EXCLUDED.payload,
    updated_at = now()
`
	if _, err := r.pool.Exec(ctx, q, sessionID, string(data)); err != nil {
		r.logger.Printf("cart repo: save session=%s error=%v", sessionID, err)
		return err
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_sessions WHERE session_id = $1`, sessionID); err != nil {
		r.logger.Printf("cart repo: delete session=%s error=%v", sessionID, err)
		return err
	}
	return nil
}
