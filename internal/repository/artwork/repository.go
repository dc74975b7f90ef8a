package artwork

import (
	"context"

	"tanglewood-gallery/internal/domain"
)

// Filter narrows a catalog listing. Zero values mean "any".
type Filter struct {
	Category     string
	Availability domain.Availability
	Featured     *bool
	Series       string
	HasPrints    bool
	MinPrice     int64
	MaxPrice     int64
	Query        string
	Limit        int
}

type Repository interface {
	List(ctx context.Context, filter Filter) ([]domain.Artwork, error)
	GetByID(ctx context.Context, id string) (*domain.Artwork, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Artwork, error)
	Upsert(ctx context.Context, artwork domain.Artwork) (*domain.Artwork, error)
}
