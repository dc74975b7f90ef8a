package domain

import (
	"strings"
	"time"
)

type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilitySold      Availability = "sold"
	AvailabilityReserved  Availability = "reserved"
)

// Valid reports whether a is one of the known availability states.
func (a Availability) Valid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilitySold, AvailabilityReserved:
		return true
	}
	return false
}

type PrintSize string

const (
	SizeA4 PrintSize = "A4"
	SizeA3 PrintSize = "A3"
	SizeA2 PrintSize = "A2"
	SizeA1 PrintSize = "A1"
	SizeA0 PrintSize = "A0"
)

func (s PrintSize) Valid() bool {
	switch s {
	case SizeA4, SizeA3, SizeA2, SizeA1, SizeA0:
		return true
	}
	return false
}

type PrintFinish string

const (
	FinishMatte  PrintFinish = "matte"
	FinishGlossy PrintFinish = "glossy"
	FinishCanvas PrintFinish = "canvas"
)

func (f PrintFinish) Valid() bool {
	switch f {
	case FinishMatte, FinishGlossy, FinishCanvas:
		return true
	}
	return false
}

type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth,omitempty"`
	Unit   string  `json:"unit"`
}

type ArtworkImage struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// PrintVariant is a reproducible sized and finished print offering.
type PrintVariant struct {
	ID         string      `json:"id"`
	Size       PrintSize   `json:"size"`
	Finish     PrintFinish `json:"finish"`
	PriceCents int64       `json:"price"`
	Dimensions Dimensions  `json:"dimensions"`
}

// VariantID derives the identifier of a variant from its size and finish.
func VariantID(size PrintSize, finish PrintFinish) string {
	return strings.ToLower(string(size)) + "-" + strings.ToLower(string(finish))
}

// NewPrintVariant builds a variant with its derived identifier.
func NewPrintVariant(size PrintSize, finish PrintFinish, priceCents int64, dims Dimensions) PrintVariant {
	return PrintVariant{
		ID:         VariantID(size, finish),
		Size:       size,
		Finish:     finish,
		PriceCents: priceCents,
		Dimensions: dims,
	}
}

type Artwork struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Artist        string         `json:"artist"`
	Year          int            `json:"year"`
	Medium        string         `json:"medium"`
	Dimensions    Dimensions     `json:"dimensions"`
	Category      string         `json:"category"`
	Description   string         `json:"description"`
	Story         string         `json:"story,omitempty"`
	Images        []ArtworkImage `json:"images"`
	PriceCents    int64          `json:"price"`
	Availability  Availability   `json:"availability"`
	Featured      bool           `json:"featured"`
	Series        string         `json:"series,omitempty"`
	PrintVariants []PrintVariant `json:"prints,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// IsAvailable reports whether the original can still be bought.
func (a Artwork) IsAvailable() bool {
	return a.Availability == AvailabilityAvailable
}

// Variant returns the print variant with the given id.
func (a Artwork) Variant(id string) (PrintVariant, bool) {
	for _, v := range a.PrintVariants {
		if v.ID == id {
			return v, true
		}
	}
	return PrintVariant{}, false
}

// PrimaryImage returns the first image of the artwork, if any.
func (a Artwork) PrimaryImage() (ArtworkImage, bool) {
	if len(a.Images) == 0 {
		return ArtworkImage{}, false
	}
	return a.Images[0], true
}
