package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidLineItem is returned when a decoded line item breaks the purchase rules.
var ErrInvalidLineItem = errors.New("invalid line item")

type PurchaseType string

const (
	PurchaseOriginal PurchaseType = "original"
	PurchasePrint    PurchaseType = "print"
)

// ParsePurchaseType accepts the wire names case-insensitively.
func ParsePurchaseType(raw string) (PurchaseType, error) {
	switch PurchaseType(strings.ToLower(strings.TrimSpace(raw))) {
	case PurchaseOriginal:
		return PurchaseOriginal, nil
	case PurchasePrint:
		return PurchasePrint, nil
	}
	return "", Invalidf("unknown purchase type %q", raw)
}

// Purchase is either Original or Print. A print always carries its variant.
type Purchase interface {
	Type() PurchaseType
	isPurchase()
}

// Original buys the unique physical artwork.
type Original struct{}

func (Original) Type() PurchaseType { return PurchaseOriginal }
func (Original) isPurchase()        {}

// Print buys a reproduction in a specific size and finish.
type Print struct {
	Variant PrintVariant
}

func (Print) Type() PurchaseType { return PurchasePrint }
func (Print) isPurchase()        {}

// ItemKey identifies a cart slot: artwork, purchase type and print variant.
type ItemKey struct {
	ArtworkID string
	Type      PurchaseType
	VariantID string
}

func OriginalKey(artworkID string) ItemKey {
	return ItemKey{ArtworkID: artworkID, Type: PurchaseOriginal}
}

func PrintKey(artworkID, variantID string) ItemKey {
	return ItemKey{ArtworkID: artworkID, Type: PurchasePrint, VariantID: variantID}
}

// Normalize drops the variant id from original keys; originals have one slot per artwork.
func (k ItemKey) Normalize() ItemKey {
	if k.Type == PurchaseOriginal {
		k.VariantID = ""
	}
	return k
}

func (k ItemKey) String() string {
	if k.Type == PurchasePrint {
		return k.ArtworkID + "/print/" + k.VariantID
	}
	return k.ArtworkID + "/" + string(k.Type)
}

// ArtworkSnapshot is the display data copied into the cart when an item is added.
// It is never re-synced with the catalog.
type ArtworkSnapshot struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Slug     string `json:"slug,omitempty"`
	Artist   string `json:"artist"`
	ImageURL string `json:"imageUrl,omitempty"`
	ImageAlt string `json:"imageAlt,omitempty"`
}

func SnapshotOf(a Artwork) ArtworkSnapshot {
	snap := ArtworkSnapshot{
		ID:     a.ID,
		Title:  a.Title,
		Slug:   a.Slug,
		Artist: a.Artist,
	}
	if img, ok := a.PrimaryImage(); ok {
		snap.ImageURL = img.URL
		snap.ImageAlt = img.Alt
	}
	return snap
}

// LineItem is one slot of the cart. UnitPrice is locked at add time.
type LineItem struct {
	ArtworkID string
	Artwork   ArtworkSnapshot
	Purchase  Purchase
	Quantity  int
	UnitPrice int64
	AddedAt   time.Time
}

func (l LineItem) Type() PurchaseType {
	if l.Purchase == nil {
		return ""
	}
	return l.Purchase.Type()
}

// PrintVariant returns the variant of a print line.
func (l LineItem) PrintVariant() (PrintVariant, bool) {
	p, ok := l.Purchase.(Print)
	if !ok {
		return PrintVariant{}, false
	}
	return p.Variant, true
}

func (l LineItem) Key() ItemKey {
	key := ItemKey{ArtworkID: l.ArtworkID, Type: l.Type()}
	if v, ok := l.PrintVariant(); ok {
		key.VariantID = v.ID
	}
	return key
}

const (
	// MaxQuantity caps the quantity of a single print line.
	MaxQuantity = 99
	// MaxUnitPrice caps the unit price of a line, in pence.
	MaxUnitPrice int64 = 100_000_000
)

func (l LineItem) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

type lineItemJSON struct {
	ArtworkID    string          `json:"artworkId"`
	Artwork      ArtworkSnapshot `json:"artwork"`
	Type         PurchaseType    `json:"type"`
	PrintVariant *PrintVariant   `json:"printVariant,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        int64           `json:"price"`
	AddedAt      *time.Time      `json:"addedAt,omitempty"`
}

func (l LineItem) MarshalJSON() ([]byte, error) {
	out := lineItemJSON{
		ArtworkID: l.ArtworkID,
		Artwork:   l.Artwork,
		Type:      l.Type(),
		Quantity:  l.Quantity,
		Price:     l.UnitPrice,
	}
	if v, ok := l.PrintVariant(); ok {
		out.PrintVariant = &v
	}
	if !l.AddedAt.IsZero() {
		at := l.AddedAt
		out.AddedAt = &at
	}
	return json.Marshal(out)
}

func (l *LineItem) UnmarshalJSON(data []byte) error {
	var in lineItemJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if strings.TrimSpace(in.ArtworkID) == "" {
		return fmt.Errorf("%w: artworkId required", ErrInvalidLineItem)
	}
	item := LineItem{
		ArtworkID: in.ArtworkID,
		Artwork:   in.Artwork,
		Quantity:  in.Quantity,
		UnitPrice: in.Price,
	}
	if in.AddedAt != nil {
		item.AddedAt = *in.AddedAt
	}
	switch in.Type {
	case PurchaseOriginal:
		item.Purchase = Original{}
	case PurchasePrint:
		if in.PrintVariant == nil || strings.TrimSpace(in.PrintVariant.ID) == "" {
			return fmt.Errorf("%w: print without variant", ErrInvalidLineItem)
		}
		item.Purchase = Print{Variant: *in.PrintVariant}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidLineItem, in.Type)
	}
	*l = item
	return nil
}
