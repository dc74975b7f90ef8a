package order

import (
	"context"

	"tanglewood-gallery/internal/domain"
)

// Repository persists orders created at checkout.
type Repository interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetBySessionRef(ctx context.Context, gatewaySession string) (*domain.Order, error)
	AttachSession(ctx context.Context, id, gatewaySession string) error
	SetStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}
