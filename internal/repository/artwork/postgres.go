package artwork

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"tanglewood-gallery/internal/domain"
)

// likeEscaper makes a search term match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const selectColumns = `
SELECT id, slug, title, artist, year, medium, dimensions, category, description,
       COALESCE(story, ''), images, price_cents, availability, featured, COALESCE(series, ''),
       print_variants, created_at, updated_at
FROM artworks`

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

func (r *postgresRepo) List(ctx context.Context, filter Filter) ([]domain.Artwork, error) {
	q, args := buildListQuery(filter)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("artwork repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Artwork
	for rows.Next() {
		a, err := scanArtwork(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("artwork repo: list rows error=%v", err)
		return nil, err
	}
	r.logger.Printf("artwork repo: list count=%d", len(result))
	return result, nil
}

// buildListQuery turns a filter into a parameterised query.
func buildListQuery(filter Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Category != "" {
		add("lower(category) = lower($%d)", filter.Category)
	}
	if filter.Availability != "" {
		add("availability = $%d", string(filter.Availability))
	}
	if filter.Featured != nil {
		add("featured = $%d", *filter.Featured)
	}
	if filter.Series != "" {
		add("lower(series) = lower($%d)", filter.Series)
	}
	if filter.HasPrints {
		where = append(where, "jsonb_array_length(print_variants) > 0")
	}
	if filter.MinPrice > 0 {
		add("price_cents >= $%d", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		add("price_cents <= $%d", filter.MaxPrice)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+likeEscaper.Replace(q)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(title ILIKE $%[1]d ESCAPE '\' OR artist ILIKE $%[1]d ESCAPE '\' OR description ILIKE $%[1]d ESCAPE '\' OR category ILIKE $%[1]d ESCAPE '\')`, n))
	}

	var sb strings.Builder
	sb.WriteString(selectColumns)
	if len(where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString("\nORDER BY featured DESC, created_at DESC, id")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, "\nLIMIT $%d", len(args))
	}
	return sb.String(), args
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Artwork, error) {
	a, err := scanArtwork(r.pool.QueryRow(ctx, selectColumns+"\nWHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("artwork repo: get id=%s not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("artwork repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return a, nil
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Artwork, error) {
	a, err := scanArtwork(r.pool.QueryRow(ctx, selectColumns+"\nWHERE slug = $1", slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("artwork repo: get slug=%s not found", slug)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("artwork repo: get slug=%s error=%v", slug, err)
		return nil, err
	}
	return a, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, artwork domain.Artwork) (*domain.Artwork, error) {
	const q = `
INSERT INTO artworks (id, slug, title, artist, year, medium, dimensions, category, description,
                      story, images, price_cents, availability, featured, series, print_variants)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13, $14, NULLIF($15, ''), $16)
ON CONFLICT (id) DO UPDATE SET
    slug = EXCLUDED.slug,
    title = EXCLUDED.title,
    artist = EXCLUDED.artist,
    year = EXCLUDED.year,
    medium = EXCLUDED.medium,
    dimensions = EXCLUDED.dimensions,
    category = EXCLUDED.category,
    description = EXCLUDED.description,
    story = EXCLUDED.story,
    images = EXCLUDED.images,
    price_cents = EXCLUDED.price_cents,
    availability = EXCLUDED.availability,
    featured = EXCLUDED.featured,
    series = EXCLUDED.series,
    print_variants = EXCLUDED.print_variants,
    updated_at = now()
RETURNING created_at, updated_at
`
	if artwork.ID == "" {
		return nil, errors.New("artwork id required")
	}
	if !artwork.Availability.Valid() {
		return nil, fmt.Errorf("artwork repo: invalid availability %q for id=%s", artwork.Availability, artwork.ID)
	}
	images := artwork.Images
	if images == nil {
		images = []domain.ArtworkImage{}
	}
	variants := artwork.PrintVariants
	if variants == nil {
		variants = []domain.PrintVariant{}
	}
	res := artwork
	err := r.pool.QueryRow(ctx, q,
		artwork.ID,
		artwork.Slug,
		artwork.Title,
		artwork.Artist,
		artwork.Year,
		artwork.Medium,
		artwork.Dimensions,
		artwork.Category,
		artwork.Description,
		artwork.Story,
		images,
		artwork.PriceCents,
		string(artwork.Availability),
		artwork.Featured,
		artwork.Series,
		variants,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		r.logger.Printf("artwork repo: upsert id=%s slug=%s error=%v", artwork.ID, artwork.Slug, err)
		return nil, err
	}
	r.logger.Printf("artwork repo: upserted id=%s slug=%s prints=%d", res.ID, res.Slug, len(res.PrintVariants))
	return &res, nil
}

func scanArtwork(row pgx.Row) (*domain.Artwork, error) {
	var (
		a            domain.Artwork
		availability string
	)
	if err := row.Scan(
		&a.ID,
		&a.Slug,
		&a.Title,
		&a.Artist,
		&a.Year,
		&a.Medium,
		&a.Dimensions,
		&a.Category,
		&a.Description,
		&a.Story,
		&a.Images,
		&a.PriceCents,
		&availability,
		&a.Featured,
		&a.Series,
		&a.PrintVariants,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Availability = domain.Availability(availability)
	return &a, nil
}
