// Package cartstore holds the shopping cart: line items, the drawer visibility
// flag and the shipping destination, with totals computed on demand.
package cartstore

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"tanglewood-gallery/internal/domain"
	"tanglewood-gallery/internal/pricing"
)

const defaultPersistTimeout = 2 * time.Second

// Snapshot is a consistent read of the cart at one point in time.
type Snapshot struct {
	Items              []domain.LineItem `json:"items"`
	IsOpen             bool              `json:"isOpen"`
	DestinationCountry string            `json:"destinationCountry"`
	Totals             pricing.Totals    `json:"totals"`
}

// Listener is called synchronously after every state change.
type Listener func(Snapshot)

type Option func(*Store)

func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithVATRate sets the VAT rate in percent.
func WithVATRate(rate int64) Option {
	return func(s *Store) {
		if rate >= 0 {
			s.vatRate = rate
		}
	}
}

func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// Store is the single source of truth for a cart. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	items   []domain.LineItem
	isOpen  bool
	country string
	version uint64

	saveMu       sync.Mutex
	savedVersion uint64

	listeners    map[int]Listener
	nextListener int

	storage        Storage
	logger         *log.Logger
	now            func() time.Time
	vatRate        int64
	persistTimeout time.Duration
}

// New builds a store and rehydrates it from storage. A missing, unreadable or
// corrupt record yields an empty cart.
func New(ctx context.Context, storage Storage, opts ...Option) *Store {
	s := &Store{
		country:        pricing.HomeCountry,
		listeners:      make(map[int]Listener),
		storage:        storage,
		logger:         log.New(io.Discard, "", 0),
		now:            time.Now,
		vatRate:        pricing.DefaultVATRate,
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rehydrate(ctx)
	return s
}

func (s *Store) rehydrate(ctx context.Context) {
	if s.storage == nil {
		return
	}
	data, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.Printf("cart store: load error=%v, starting empty", err)
		return
	}
	if len(data) == 0 {
		return
	}
	items, country, err := decodeRecord(data)
	if err != nil {
		s.logger.Printf("cart store: discarding persisted cart: %v", err)
		return
	}
	s.items = items
	s.country = country
}

// AddItem merges or inserts a line for the purchase. Adding an original that
// is already in the cart is a no-op; adding a known print increments its
// quantity by one, up to domain.MaxQuantity. A nil purchase, a print without
// a variant id or a price outside 0..domain.MaxUnitPrice is ignored.
func (s *Store) AddItem(artwork domain.Artwork, purchase domain.Purchase) {
	s.mutate(true, func() bool {
		key, price, ok := keyAndPrice(artwork, purchase)
		if !ok {
			return false
		}
		if idx := s.indexOf(key); idx >= 0 {
			if key.Type == domain.PurchaseOriginal || s.items[idx].Quantity >= domain.MaxQuantity {
				return false
			}
			s.items[idx].Quantity++
			return true
		}
		s.items = append(s.items, domain.LineItem{
			ArtworkID: artwork.ID,
			Artwork:   domain.SnapshotOf(artwork),
			Purchase:  purchase,
			Quantity:  1,
			UnitPrice: price,
			AddedAt:   s.now().UTC(),
		})
		return true
	})
}

func keyAndPrice(artwork domain.Artwork, purchase domain.Purchase) (domain.ItemKey, int64, bool) {
	if artwork.ID == "" {
		return domain.ItemKey{}, 0, false
	}
	var (
		key   domain.ItemKey
		price int64
	)
	switch p := purchase.(type) {
	case domain.Original:
		key, price = domain.OriginalKey(artwork.ID), artwork.PriceCents
	case domain.Print:
		if p.Variant.ID == "" {
			return domain.ItemKey{}, 0, false
		}
		key, price = domain.PrintKey(artwork.ID, p.Variant.ID), p.Variant.PriceCents
	default:
		return domain.ItemKey{}, 0, false
	}
	if price < 0 || price > domain.MaxUnitPrice {
		return domain.ItemKey{}, 0, false
	}
	return key, price, true
}

// RemoveItem deletes the line with the given identity key, if present.
func (s *Store) RemoveItem(key domain.ItemKey) {
	s.mutate(true, func() bool {
		return s.removeLocked(key.Normalize())
	})
}

// UpdateQuantity sets a print's quantity. Quantities below one remove the
// line, quantities above domain.MaxQuantity are capped, and originals stay
// pinned at one.
func (s *Store) UpdateQuantity(key domain.ItemKey, quantity int) {
	key = key.Normalize()
	s.mutate(true, func() bool {
		if quantity < 1 {
			return s.removeLocked(key)
		}
		if key.Type != domain.PurchasePrint {
			return false
		}
		quantity = min(quantity, domain.MaxQuantity)
		idx := s.indexOf(key)
		if idx < 0 || s.items[idx].Quantity == quantity {
			return false
		}
		s.items[idx].Quantity = quantity
		return true
	})
}

func (s *Store) ClearCart() {
	s.mutate(true, func() bool {
		if len(s.items) == 0 {
			return false
		}
		s.items = nil
		return true
	})
}

// Deduct subtracts the quantities of the given lines from the cart and drops
// lines that reach zero. Lines the cart does not hold are ignored.
func (s *Store) Deduct(lines []domain.LineItem) {
	s.mutate(true, func() bool {
		changed := false
		for _, l := range lines {
			key := l.Key()
			idx := s.indexOf(key)
			if idx < 0 {
				continue
			}
			if s.items[idx].Quantity <= l.Quantity {
				s.removeLocked(key)
			} else {
				s.items[idx].Quantity -= l.Quantity
			}
			changed = true
		}
		return changed
	})
}

func (s *Store) OpenCart() {
	s.mutate(false, func() bool {
		changed := !s.isOpen
		s.isOpen = true
		return changed
	})
}

func (s *Store) CloseCart() {
	s.mutate(false, func() bool {
		changed := s.isOpen
		s.isOpen = false
		return changed
	})
}

func (s *Store) ToggleCart() {
	s.mutate(false, func() bool {
		s.isOpen = !s.isOpen
		return true
	})
}

// SetDestinationCountry changes the shipping destination. Empty resets to GB.
func (s *Store) SetDestinationCountry(code string) {
	code = pricing.NormalizeCountry(code)
	s.mutate(true, func() bool {
		if s.country == code {
			return false
		}
		s.country = code
		return true
	})
}

func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

func (s *Store) DestinationCountry() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.country
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyItemsLocked()
}

func (s *Store) Find(key domain.ItemKey) (domain.LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(key.Normalize())
	if idx < 0 {
		return domain.LineItem{}, false
	}
	return s.items[idx], true
}

func (s *Store) Contains(key domain.ItemKey) bool {
	_, ok := s.Find(key)
	return ok
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.ItemCount(s.items)
}

func (s *Store) Subtotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.Subtotal(s.items)
}

func (s *Store) Shipping() int64 {
	return s.Totals().Shipping
}

// VAT is charged on the subtotal only.
func (s *Store) VAT() int64 {
	return s.Totals().VAT
}

func (s *Store) Total() int64 {
	return s.Totals().Total
}

func (s *Store) Totals() pricing.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.Summarize(s.items, s.country, s.vatRate)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// mutate runs fn under the lock. When fn reports a change, the record is saved
// (if persist is set) and listeners are notified before mutate returns.
func (s *Store) mutate(persist bool, fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	var (
		data    []byte
		version uint64
		err     error
	)
	if persist {
		s.version++
		version = s.version
		data, err = encodeRecord(snap.Items, snap.DestinationCountry)
	}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if persist {
		if err != nil {
			s.logger.Printf("cart store: encode error=%v", err)
		} else {
			s.save(version, data)
		}
	}
	for _, l := range listeners {
		l(snap)
	}
}

// save writes the record unless a newer version has already been written.
// Failures are logged and never surface to the caller.
func (s *Store) save(version uint64, data []byte) {
	if s.storage == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if version <= s.savedVersion {
		return
	}
	s.savedVersion = version
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()
	if err := s.storage.Save(ctx, data); err != nil {
		s.logger.Printf("cart store: save version=%d error=%v", version, err)
	}
}

func (s *Store) removeLocked(key domain.ItemKey) bool {
	idx := s.indexOf(key)
	if idx < 0 {
		return false
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	return true
}

func (s *Store) indexOf(key domain.ItemKey) int {
	for i, item := range s.items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) copyItemsLocked() []domain.LineItem {
	out := make([]domain.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Items:              s.copyItemsLocked(),
		IsOpen:             s.isOpen,
		DestinationCountry: s.country,
		Totals:             pricing.Summarize(s.items, s.country, s.vatRate),
	}
}
