package cart

import (
	"context"

	"tanglewood-gallery/internal/cartstore"
)

// Repository stores one persisted cart record per browser session.
type Repository interface {
	// For returns the storage backing the cart of a single session.
	For(sessionID string) cartstore.Storage
	Delete(ctx context.Context, sessionID string) error
}

// sessionStorage binds a repository to one session id.
type sessionStorage struct {
	sessionID string
	load      func(ctx context.Context, sessionID string) ([]byte, error)
	save      func(ctx context.Context, sessionID string, data []byte) error
}

func (s sessionStorage) Load(ctx context.Context) ([]byte, error) {
	return s.load(ctx, s.sessionID)
}

func (s sessionStorage) Save(ctx context.Context, data []byte) error {
	return s.save(ctx, s.sessionID, data)
}
