// Package seed loads the demo gallery catalog for manual testing.
package seed

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"tanglewood-gallery/internal/domain"
)

//go:embed data/artworks.json
var dataFS embed.FS

type ArtworkWriter interface {
	Upsert(ctx context.Context, artwork domain.Artwork) (*domain.Artwork, error)
}

type printSeed struct {
	Size     domain.PrintSize     `json:"size"`
	Width    float64              `json:"width"`
	Height   float64              `json:"height"`
	Price    int64                `json:"price"`
	Finishes []domain.PrintFinish `json:"finishes"`
}

type imageSeed struct {
	Main   string `json:"main"`
	Detail string `json:"detail"`
}

type artworkSeed struct {
	ID          string            `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Artist      string            `json:"artist"`
	Year        int               `json:"year"`
	Medium      string            `json:"medium"`
	Dimensions  domain.Dimensions `json:"dimensions"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Story       string            `json:"story"`
	Price       int64             `json:"price"`
	Available   bool              `json:"available"`
	Featured    bool              `json:"featured"`
	Series      string            `json:"series"`
	Images      imageSeed         `json:"images"`
	Prints      []printSeed       `json:"prints"`
}

// Catalog returns the embedded demo artworks.
func Catalog() ([]domain.Artwork, error) {
	raw, err := dataFS.ReadFile("data/artworks.json")
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// Decode parses seed JSON. Each print size expands into one variant per finish.
func Decode(raw []byte) ([]domain.Artwork, error) {
	var seeds []artworkSeed
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}
	out := make([]domain.Artwork, 0, len(seeds))
	for _, s := range seeds {
		a, err := s.artwork()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s artworkSeed) artwork() (domain.Artwork, error) {
	if s.ID == "" || s.Title == "" {
		return domain.Artwork{}, fmt.Errorf("seed artwork missing id or title: %+v", s)
	}
	a := domain.Artwork{
		ID:           s.ID,
		Slug:         s.Slug,
		Title:        s.Title,
		Artist:       s.Artist,
		Year:         s.Year,
		Medium:       s.Medium,
		Dimensions:   s.Dimensions,
		Category:     s.Category,
		Description:  s.Description,
		Story:        s.Story,
		PriceCents:   s.Price,
		Availability: domain.AvailabilitySold,
		Featured:     s.Featured,
		Series:       s.Series,
	}
	if a.Slug == "" {
		a.Slug = s.ID
	}
	if s.Available {
		a.Availability = domain.AvailabilityAvailable
	}
	if s.Images.Main != "" {
		a.Images = append(a.Images, domain.ArtworkImage{URL: s.Images.Main, Alt: s.Title})
	}
	if s.Images.Detail != "" {
		a.Images = append(a.Images, domain.ArtworkImage{URL: s.Images.Detail, Alt: s.Title + " - detail"})
	}
	for _, p := range s.Prints {
		if !p.Size.Valid() {
			return domain.Artwork{}, fmt.Errorf("seed artwork %s: invalid print size %q", s.ID, p.Size)
		}
		dims := domain.Dimensions{Width: p.Width, Height: p.Height, Unit: "cm"}
		for _, f := range p.Finishes {
			if !f.Valid() {
				return domain.Artwork{}, fmt.Errorf("seed artwork %s: invalid finish %q", s.ID, f)
			}
			a.PrintVariants = append(a.PrintVariants, domain.NewPrintVariant(p.Size, f, p.Price, dims))
		}
	}
	return a, nil
}

// Apply upserts the demo catalog. It is idempotent.
func Apply(ctx context.Context, repo ArtworkWriter, logger *log.Logger) (int, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	artworks, err := Catalog()
	if err != nil {
		return 0, err
	}
	for i, a := range artworks {
		if _, err := repo.Upsert(ctx, a); err != nil {
			return i, fmt.Errorf("upsert artwork %s: %w", a.ID, err)
		}
		logger.Printf("seed: artwork id=%s prints=%d", a.ID, len(a.PrintVariants))
	}
	return len(artworks), nil
}
