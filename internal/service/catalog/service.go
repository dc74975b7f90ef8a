package catalog

import (
	"context"
	"sort"
	"strings"

	"tanglewood-gallery/internal/domain"
	artworkrepo "tanglewood-gallery/internal/repository/artwork"
)

const (
	DefaultFeaturedLimit = 3
	DefaultRelatedLimit  = 3
)

type Service struct {
	repo artworkrepo.Repository
}

func New(repo artworkrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filter artworkrepo.Filter) ([]domain.Artwork, error) {
	if filter.Availability != "" && !filter.Availability.Valid() {
		return nil, domain.Invalidf("invalid availability %q", filter.Availability)
	}
	if filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice {
		return nil, domain.Invalidf("minPrice exceeds maxPrice")
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Featured(ctx context.Context, limit int) ([]domain.Artwork, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	featured := true
	return s.repo.List(ctx, artworkrepo.Filter{Featured: &featured, Limit: limit})
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Artwork, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Artwork, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetBySlug(ctx, slug)
}

// Related returns other artworks from the same series or, failing that, the
// same category, in catalog order.
func (s *Service) Related(ctx context.Context, id string, limit int) ([]domain.Artwork, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	artwork, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx, artworkrepo.Filter{})
	if err != nil {
		return nil, err
	}
	related := make([]domain.Artwork, 0, limit)
	for _, a := range all {
		if len(related) == limit {
			break
		}
		if a.ID == artwork.ID {
			continue
		}
		sameSeries := artwork.Series != "" && a.Series == artwork.Series
		if sameSeries || a.Category == artwork.Category {
			related = append(related, a)
		}
	}
	return related, nil
}

// Facets lists the distinct categories and series, sorted.
func (s *Service) Facets(ctx context.Context) (categories, series []string, err error) {
	all, err := s.repo.List(ctx, artworkrepo.Filter{})
	if err != nil {
		return nil, nil, err
	}
	return distinct(all, func(a domain.Artwork) string { return a.Category }),
		distinct(all, func(a domain.Artwork) string { return a.Series }), nil
}

func distinct(all []domain.Artwork, field func(domain.Artwork) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, a := range all {
		v := field(a)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
