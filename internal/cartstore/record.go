package cartstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"tanglewood-gallery/internal/domain"
	"tanglewood-gallery/internal/pricing"
)

// record is the persisted layout. isOpen is not persisted.
type record struct {
	Items              []domain.LineItem `json:"items"`
	DestinationCountry string            `json:"destinationCountry"`
}

var errCorruptRecord = errors.New("corrupt cart record")

func encodeRecord(items []domain.LineItem, country string) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	return json.Marshal(record{Items: items, DestinationCountry: country})
}

// decodeRecord parses and validates a persisted cart. Any item that breaks the
// cart invariants makes the whole record corrupt.
func decodeRecord(data []byte) ([]domain.LineItem, string, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, "", fmt.Errorf("%w: %v", errCorruptRecord, err)
	}
	seen := make(map[domain.ItemKey]struct{}, len(rec.Items))
	for i, item := range rec.Items {
		if err := validateItem(item); err != nil {
			return nil, "", fmt.Errorf("%w: item %d: %v", errCorruptRecord, i, err)
		}
		key := item.Key()
		if _, dup := seen[key]; dup {
			return nil, "", fmt.Errorf("%w: duplicate item %s", errCorruptRecord, key)
		}
		seen[key] = struct{}{}
	}
	return rec.Items, pricing.NormalizeCountry(rec.DestinationCountry), nil
}

func validateItem(item domain.LineItem) error {
	if item.UnitPrice < 0 {
		return errors.New("negative price")
	}
	if item.UnitPrice > domain.MaxUnitPrice {
		return errors.New("price above limit")
	}
	if item.Quantity < 1 {
		return errors.New("quantity below 1")
	}
	if item.Quantity > domain.MaxQuantity {
		return errors.New("quantity above limit")
	}
	if item.Type() == domain.PurchaseOriginal && item.Quantity != 1 {
		return errors.New("original with quantity other than 1")
	}
	return nil
}
