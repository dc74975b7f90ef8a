// Package importer loads artworks from CSV catalog exports.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tanglewood-gallery/internal/domain"
)

type ArtworkWriter interface {
	Upsert(ctx context.Context, artwork domain.Artwork) (*domain.Artwork, error)
}

// CSVImporter reads artwork CSV exports and inserts or updates artworks.
//
// A row with an id starts a new artwork. Rows with an empty id continue the
// previous artwork and may carry an extra image and/or a print variant.
type CSVImporter struct {
	reader *csv.Reader
	repo   ArtworkWriter
}

func NewCSVImporter(r io.Reader, repo ArtworkWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{reader: csvr, repo: repo}
}

// Run parses CSV rows and upserts artworks grouped by id.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["id"]; !ok {
		return 0, errors.New("csv has no id column")
	}

	var (
		current  *domain.Artwork
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		r := row{record: record, index: index}
		if id := r.get("id"); id != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			a, err := r.artwork()
			if err != nil {
				return imported, fmt.Errorf("line %d: %w", line, err)
			}
			current = &a
		}
		if current == nil {
			continue
		}
		if err := r.extend(current); err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, a *domain.Artwork) error {
	if a.Title == "" || a.PriceCents < 0 {
		return fmt.Errorf("invalid artwork row (missing required fields) for id %q", a.ID)
	}
	if a.Slug == "" {
		a.Slug = a.ID
	}
	if _, err := i.repo.Upsert(ctx, *a); err != nil {
		return fmt.Errorf("upsert artwork %q: %w", a.ID, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

type row struct {
	record []string
	index  map[string]int
}

func (r row) get(key string) string {
	pos, ok := r.index[key]
	if !ok || pos >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[pos])
}

func (r row) artwork() (domain.Artwork, error) {
	a := domain.Artwork{
		ID:          r.get("id"),
		Slug:        r.get("slug"),
		Title:       r.get("title"),
		Artist:      r.get("artist"),
		Medium:      r.get("medium"),
		Category:    r.get("category"),
		Description: r.get("description"),
		Story:       r.get("story"),
		Series:      r.get("series"),
	}
	var err error
	if a.Year, err = intField(r.get("year")); err != nil {
		return a, fmt.Errorf("year: %w", err)
	}
	if a.PriceCents, err = int64Field(r.get("price")); err != nil {
		return a, fmt.Errorf("price: %w", err)
	}
	if a.Dimensions, err = r.dimensions("width", "height", "depth", "unit"); err != nil {
		return a, err
	}
	a.Availability = domain.Availability(strings.ToLower(r.get("availability")))
	if a.Availability == "" {
		a.Availability = domain.AvailabilityAvailable
	}
	if !a.Availability.Valid() {
		return a, fmt.Errorf("invalid availability %q", a.Availability)
	}
	if raw := r.get("featured"); raw != "" {
		if a.Featured, err = strconv.ParseBool(raw); err != nil {
			return a, fmt.Errorf("featured: %w", err)
		}
	}
	return a, nil
}

// extend adds the image and print variant carried by the row, if any.
func (r row) extend(a *domain.Artwork) error {
	if url := r.get("image.url"); url != "" {
		alt := r.get("image.alt")
		if alt == "" {
			alt = a.Title
		}
		a.Images = append(a.Images, domain.ArtworkImage{URL: url, Alt: alt})
	}
	size := domain.PrintSize(strings.ToUpper(r.get("print.size")))
	if size == "" {
		return nil
	}
	finish := domain.PrintFinish(strings.ToLower(r.get("print.finish")))
	if !size.Valid() || !finish.Valid() {
		return fmt.Errorf("invalid print %q/%q for artwork %q", size, finish, a.ID)
	}
	price, err := int64Field(r.get("print.price"))
	if err != nil || price <= 0 {
		return fmt.Errorf("invalid print price for artwork %q", a.ID)
	}
	dims, err := r.dimensions("print.width", "print.height", "", "")
	if err != nil {
		return err
	}
	dims.Unit = "cm"
	v := domain.NewPrintVariant(size, finish, price, dims)
	if _, dup := a.Variant(v.ID); dup {
		return fmt.Errorf("duplicate print %s for artwork %q", v.ID, a.ID)
	}
	a.PrintVariants = append(a.PrintVariants, v)
	return nil
}

func (r row) dimensions(w, h, d, unit string) (domain.Dimensions, error) {
	var (
		dims domain.Dimensions
		err  error
	)
	if dims.Width, err = floatField(r.get(w)); err != nil {
		return dims, fmt.Errorf("%s: %w", w, err)
	}
	if dims.Height, err = floatField(r.get(h)); err != nil {
		return dims, fmt.Errorf("%s: %w", h, err)
	}
	if d != "" {
		if dims.Depth, err = floatField(r.get(d)); err != nil {
			return dims, fmt.Errorf("%s: %w", d, err)
		}
	}
	if unit != "" {
		dims.Unit = r.get(unit)
		if dims.Unit == "" {
			dims.Unit = "cm"
		}
	}
	return dims, nil
}

func intField(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func int64Field(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func floatField(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}
