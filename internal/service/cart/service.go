package cart

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"tanglewood-gallery/internal/cartstore"
	"tanglewood-gallery/internal/domain"
	"tanglewood-gallery/internal/metrics"
	cartrepo "tanglewood-gallery/internal/repository/cart"
)

var (
	ErrVariantRequired = domain.Invalidf("variantId required for print")
	ErrUnknownVariant  = domain.Invalidf("print variant not offered for artwork")
	ErrSessionRequired = domain.Invalidf("cart session required")
	ErrQuantityLimit   = domain.Invalidf("quantity may not exceed %d", domain.MaxQuantity)
	ErrPriceOutOfRange = domain.Invalidf("artwork price out of range")
)

const defaultCacheSize = 1024

type artworkFinder interface {
	Get(ctx context.Context, id string) (*domain.Artwork, error)
}

// Service routes cart operations to the store of each browser session.
// Live stores are kept in an LRU; evicted sessions are rehydrated from the
// repository on next use.
type Service struct {
	repo    cartrepo.Repository
	catalog artworkFinder
	logger  *log.Logger
	metrics *metrics.CartMetrics
	opts    []cartstore.Option

	mu     sync.Mutex
	stores *lru.Cache
}

type Config struct {
	CacheSize int
	StoreOpts []cartstore.Option
	Logger    *log.Logger
	Metrics   *metrics.CartMetrics
}

func New(repo cartrepo.Repository, catalog artworkFinder, cfg Config) (*Service, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Service{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
		metrics: cfg.Metrics,
		opts:    append([]cartstore.Option{cartstore.WithLogger(logger)}, cfg.StoreOpts...),
	}
	cache, err := lru.NewWithEvict(size, func(key, _ interface{}) {
		s.logger.Printf("cart service: evicted session=%v", key)
		if s.metrics != nil {
			s.metrics.LiveSessions.Dec()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("init session cache: %w", err)
	}
	s.stores = cache
	return s, nil
}

type AddInput struct {
	ArtworkID string `json:"artworkId"`
	Type      string `json:"type"`
	VariantID string `json:"variantId,omitempty"`
}

type KeyInput struct {
	ArtworkID string `json:"artworkId"`
	Type      string `json:"type"`
	VariantID string `json:"variantId,omitempty"`
}

// Key validates the input and returns the identity of the addressed slot.
func (in KeyInput) Key() (domain.ItemKey, error) {
	id := strings.TrimSpace(in.ArtworkID)
	if id == "" {
		return domain.ItemKey{}, domain.Invalidf("artworkId required")
	}
	typ, err := domain.ParsePurchaseType(in.Type)
	if err != nil {
		return domain.ItemKey{}, err
	}
	if typ == domain.PurchaseOriginal {
		return domain.OriginalKey(id), nil
	}
	variant := strings.TrimSpace(in.VariantID)
	if variant == "" {
		return domain.ItemKey{}, ErrVariantRequired
	}
	return domain.PrintKey(id, variant), nil
}

// Store returns the live store of a session, rehydrating it when needed.
//
// A store evicted from the cache while a request still holds it keeps writing
// through to the session record, and the next lookup rehydrates a second store
// from that record. Writes made by both in the same moment resolve as last
// writer wins, so CacheSize should exceed the number of sessions active at once.
func (s *Service) Store(ctx context.Context, sessionID string) (*cartstore.Store, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.stores.Get(sessionID); ok {
		return v.(*cartstore.Store), nil
	}
	store := cartstore.New(ctx, s.repo.For(sessionID), s.opts...)
	s.stores.Add(sessionID, store)
	if s.metrics != nil {
		s.metrics.LiveSessions.Inc()
	}
	return store, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (cartstore.Snapshot, error) {
	store, err := s.Store(ctx, sessionID)
	if err != nil {
		return cartstore.Snapshot{}, err
	}
	return store.Snapshot(), nil
}

// AddItem resolves the artwork through the catalog so prices and snapshots
// come from the current listing, never from the client.
func (s *Service) AddItem(ctx context.Context, sessionID string, in AddInput) (cartstore.Snapshot, error) {
	key, err := KeyInput(in).Key()
	if err != nil {
		s.count("add", "invalid")
		return cartstore.Snapshot{}, err
	}
	artwork, err := s.catalog.Get(ctx, key.ArtworkID)
	if err != nil {
		s.count("add", "not_found")
		return cartstore.Snapshot{}, err
	}

	var (
		purchase domain.Purchase
		price    int64
	)
	switch key.Type {
	case domain.PurchaseOriginal:
		if !artwork.IsAvailable() {
			s.count("add", "unavailable")
			return cartstore.Snapshot{}, fmt.Errorf("%w: artwork %s is %s", domain.ErrUnavailable, artwork.ID, artwork.Availability)
		}
		purchase, price = domain.Original{}, artwork.PriceCents
	case domain.PurchasePrint:
		variant, ok := artwork.Variant(key.VariantID)
		if !ok {
			s.count("add", "invalid")
			return cartstore.Snapshot{}, ErrUnknownVariant
		}
		purchase, price = domain.Print{Variant: variant}, variant.PriceCents
	}
	if price < 0 || price > domain.MaxUnitPrice {
		s.count("add", "invalid")
		return cartstore.Snapshot{}, ErrPriceOutOfRange
	}

	store, err := s.Store(ctx, sessionID)
	if err != nil {
		return cartstore.Snapshot{}, err
	}
	if line, ok := store.Find(key); ok && key.Type == domain.PurchasePrint && line.Quantity >= domain.MaxQuantity {
		s.count("add", "invalid")
		return cartstore.Snapshot{}, ErrQuantityLimit
	}
	store.AddItem(*artwork, purchase)
	s.count("add", "ok")
	s.logger.Printf("cart service: add session=%s item=%s", sessionID, key)
	return store.Snapshot(), nil
}

func (s *Service) RemoveItem(ctx context.Context, sessionID string, in KeyInput) (cartstore.Snapshot, error) {
	key, err := in.Key()
	if err != nil {
		s.count("remove", "invalid")
		return cartstore.Snapshot{}, err
	}
	return s.apply(ctx, sessionID, "remove", func(store *cartstore.Store) {
		store.RemoveItem(key)
	})
}

func (s *Service) UpdateQuantity(ctx context.Context, sessionID string, in KeyInput, quantity int) (cartstore.Snapshot, error) {
	key, err := in.Key()
	if err != nil {
		s.count("update_quantity", "invalid")
		return cartstore.Snapshot{}, err
	}
	if quantity > domain.MaxQuantity {
		s.count("update_quantity", "invalid")
		return cartstore.Snapshot{}, ErrQuantityLimit
	}
	return s.apply(ctx, sessionID, "update_quantity", func(store *cartstore.Store) {
		store.UpdateQuantity(key, quantity)
	})
}

func (s *Service) Clear(ctx context.Context, sessionID string) (cartstore.Snapshot, error) {
	return s.apply(ctx, sessionID, "clear", (*cartstore.Store).ClearCart)
}

func (s *Service) Open(ctx context.Context, sessionID string) (cartstore.Snapshot, error) {
	return s.apply(ctx, sessionID, "open", (*cartstore.Store).OpenCart)
}

func (s *Service) Close(ctx context.Context, sessionID string) (cartstore.Snapshot, error) {
	return s.apply(ctx, sessionID, "close", (*cartstore.Store).CloseCart)
}

func (s *Service) Toggle(ctx context.Context, sessionID string) (cartstore.Snapshot, error) {
	return s.apply(ctx, sessionID, "toggle", (*cartstore.Store).ToggleCart)
}

func (s *Service) SetDestination(ctx context.Context, sessionID, country string) (cartstore.Snapshot, error) {
	return s.apply(ctx, sessionID, "destination", func(store *cartstore.Store) {
		store.SetDestinationCountry(country)
	})
}

// Forget drops a session entirely: the live store and its persisted record.
func (s *Service) Forget(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	s.stores.Remove(sessionID)
	s.mu.Unlock()
	return s.repo.Delete(ctx, sessionID)
}

func (s *Service) apply(ctx context.Context, sessionID, op string, fn func(*cartstore.Store)) (cartstore.Snapshot, error) {
	store, err := s.Store(ctx, sessionID)
	if err != nil {
		s.count(op, "invalid")
		return cartstore.Snapshot{}, err
	}
	fn(store)
	s.count(op, "ok")
	return store.Snapshot(), nil
}

func (s *Service) count(op, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Mutations.WithLabelValues(op, outcome).Inc()
}
