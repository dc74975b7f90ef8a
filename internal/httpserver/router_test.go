package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"tanglewood-gallery/internal/domain"
	"tanglewood-gallery/internal/metrics"
	"tanglewood-gallery/internal/payment"
	artworkrepo "tanglewood-gallery/internal/repository/artwork"
	cartrepo "tanglewood-gallery/internal/repository/cart"
	cartsvc "tanglewood-gallery/internal/service/cart"
	"tanglewood-gallery/internal/service/catalog"
	"tanglewood-gallery/internal/service/checkout"
)

type stubArtworks struct {
	list []domain.Artwork
}

func (s *stubArtworks) List(_ context.Context, f artworkrepo.Filter) ([]domain.Artwork, error) {
	var out []domain.Artwork
	for _, a := range s.list {
		if f.Featured != nil && a.Featured != *f.Featured {
			continue
		}
		if f.Category != "" && !strings.EqualFold(a.Category, f.Category) {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *stubArtworks) GetByID(_ context.Context, id string) (*domain.Artwork, error) {
	for _, a := range s.list {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubArtworks) GetBySlug(_ context.Context, slug string) (*domain.Artwork, error) {
	for _, a := range s.list {
		if a.Slug == slug {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubArtworks) Upsert(_ context.Context, a domain.Artwork) (*domain.Artwork, error) {
	return &a, nil
}

type stubOrders struct {
	orders map[string]*domain.Order
	err    error
}

func (s *stubOrders) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.orders[o.ID] = &o
	return &o, nil
}

func (s *stubOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	if o, ok := s.orders[id]; ok {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubOrders) GetBySessionRef(_ context.Context, ref string) (*domain.Order, error) {
	for _, o := range s.orders {
		if o.GatewaySession == ref {
			return o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubOrders) AttachSession(_ context.Context, id, ref string) error {
	s.orders[id].GatewaySession = ref
	return nil
}

func (s *stubOrders) SetStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Status = status
	return o, nil
}

type stubGateway struct{}

func (stubGateway) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	return &payment.Session{ID: "cs_" + req.OrderID, URL: "https://pay.example/" + req.OrderID}, nil
}

func (stubGateway) RetrieveSession(_ context.Context, id string) (*payment.Session, error) {
	return &payment.Session{ID: id, Paid: true}, nil
}

func galleryFixtures() []domain.Artwork {
	return []domain.Artwork{
		{
			ID: "low-tide", Slug: "low-tide", Title: "Low Tide", Artist: "Mara Quinn", Category: "seascape",
			PriceCents: 20000, Availability: domain.AvailabilityAvailable, Featured: true,
			PrintVariants: []domain.PrintVariant{
				domain.NewPrintVariant(domain.SizeA3, domain.FinishMatte, 4500, domain.Dimensions{}),
			},
		},
		{ID: "sold", Slug: "sold", Title: "Sold", Category: "portrait", PriceCents: 90000, Availability: domain.AvailabilitySold},
		{ID: "harbour", Slug: "harbour", Title: "Harbour", Category: "seascape", PriceCents: 70000, Availability: domain.AvailabilityAvailable},
	}
}

type testEnv struct {
	router *gin.Engine
	orders *stubOrders
}

func newTestEnv(t *testing.T, checkoutPerMinute int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	cat := catalog.New(&stubArtworks{list: galleryFixtures()})
	carts, err := cartsvc.New(cartrepo.NewMemory(), cat, cartsvc.Config{Metrics: metrics.NewCartMetrics(reg)})
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	orders := &stubOrders{orders: make(map[string]*domain.Order)}
	co := checkout.New(carts, orders, stubGateway{}, checkout.Config{AppURL: "https://gallery.example", VATRate: 20})
	router, err := buildRouter(nil, Deps{
		Catalog:           cat,
		Carts:             carts,
		Checkout:          co,
		Metrics:           metrics.NewServerMetrics(reg),
		Gatherer:          reg,
		CheckoutPerMinute: checkoutPerMinute,
	})
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}
	return &testEnv{router: router, orders: orders}
}

func (e *testEnv) do(t *testing.T, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(sessionHeader, session)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartView {
	t.Helper()
	var view cartView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode cart: %v (%s)", err, rec.Body.String())
	}
	return view
}

func TestBuildRouterRequiresServices(t *testing.T) {
	if _, err := buildRouter(nil, Deps{}); err == nil {
		t.Fatalf("expected error without services")
	}
}

func TestSessionMiddlewareIssuesSession(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/cart", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	issued := rec.Header().Get(sessionHeader)
	if _, err := uuid.Parse(issued); err != nil {
		t.Fatalf("expected issued uuid session, got %q", issued)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), sessionCookie+"="+issued) {
		t.Fatalf("expected session cookie, got %q", rec.Header().Get("Set-Cookie"))
	}

	rec = env.do(t, http.MethodGet, "/cart", "not-a-uuid", nil)
	if rec.Header().Get(sessionHeader) == "not-a-uuid" {
		t.Fatalf("malformed session must be replaced")
	}
}

func TestSessionFromCookie(t *testing.T) {
	env := newTestEnv(t, 0)
	session := uuid.NewString()
	env.do(t, http.MethodPost, "/cart/items", session, gin.H{"artworkId": "low-tide", "type": "original"})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: session})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if view := decodeCart(t, rec); len(view.Items) != 1 {
		t.Fatalf("expected cart restored via cookie, got %+v", view)
	}
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t, 0)
	session := uuid.NewString()

	rec := env.do(t, http.MethodPost, "/cart/items", session, gin.H{"artworkId": "low-tide", "type": "original"})
	if rec.Code != http.StatusOK {
		t.Fatalf("add original: %d %s", rec.Code, rec.Body.String())
	}
	view := decodeCart(t, rec)
	if view.Totals.Total.Amount != 25500 || view.Totals.Total.Formatted != "£255.00" {
		t.Fatalf("unexpected totals %+v", view.Totals)
	}
	if view.Totals.ShippingTier != "domestic" || view.Totals.FreeShippingRemaining.Amount != 30000 {
		t.Fatalf("unexpected shipping info %+v", view.Totals)
	}

	for i := 0; i < 3; i++ {
		env.do(t, http.MethodPost, "/cart/items", session, gin.H{"artworkId": "low-tide", "type": "print", "variantId": "a3-matte"})
	}
	rec = env.do(t, http.MethodPatch, "/cart/items", session, gin.H{"artworkId": "low-tide", "type": "print", "variantId": "a3-matte", "quantity": 5})
	view = decodeCart(t, rec)
	if len(view.Items) != 2 || view.Items[1].Quantity != 5 || view.Items[1].LineTotal.Amount != 22500 {
		t.Fatalf("unexpected items after update %+v", view.Items)
	}

	rec = env.do(t, http.MethodPatch, "/cart/items", session, gin.H{"artworkId": "low-tide", "type": "original", "quantity": 4})
	view = decodeCart(t, rec)
	if view.Items[0].Quantity != 1 {
		t.Fatalf("original quantity must stay 1, got %d", view.Items[0].Quantity)
	}

	rec = env.do(t, http.MethodPut, "/cart/destination", session, gin.H{"country": "fr"})
	view = decodeCart(t, rec)
	if view.DestinationCountry != "FR" || view.Totals.ShippingTier != "regional" {
		t.Fatalf("unexpected destination %+v", view)
	}

	rec = env.do(t, http.MethodDelete, "/cart/items", session, gin.H{"artworkId": "low-tide", "type": "original"})
	view = decodeCart(t, rec)
	if len(view.Items) != 1 || view.Items[0].Type != domain.PurchasePrint {
		t.Fatalf("unexpected items after remove %+v", view.Items)
	}

	rec = env.do(t, http.MethodPost, "/cart/toggle", session, nil)
	if !decodeCart(t, rec).IsOpen {
		t.Fatalf("expected open cart after toggle")
	}

	rec = env.do(t, http.MethodDelete, "/cart", session, nil)
	view = decodeCart(t, rec)
	if len(view.Items) != 0 || view.Totals.Total.Amount != 0 {
		t.Fatalf("expected empty cart, got %+v", view)
	}
}

func TestAddItemErrors(t *testing.T) {
	env := newTestEnv(t, 0)
	session := uuid.NewString()
	cases := []struct {
		name string
		body any
		want int
	}{
		{"print without variant", gin.H{"artworkId": "low-tide", "type": "print"}, http.StatusBadRequest},
		{"unknown type", gin.H{"artworkId": "low-tide", "type": "poster"}, http.StatusBadRequest},
		{"unknown artwork", gin.H{"artworkId": "missing", "type": "original"}, http.StatusNotFound},
		{"sold original", gin.H{"artworkId": "sold", "type": "original"}, http.StatusConflict},
		{"bad body", "nope", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/cart/items", session, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}

	rec := env.do(t, http.MethodPatch, "/cart/items", session, gin.H{"artworkId": "low-tide", "type": "original"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing quantity, got %d", rec.Code)
	}

	env.do(t, http.MethodPost, "/cart/items", session, gin.H{"artworkId": "low-tide", "type": "print", "variantId": "a3-matte"})
	rec = env.do(t, http.MethodPatch, "/cart/items", session, gin.H{"artworkId": "low-tide", "type": "print", "variantId": "a3-matte", "quantity": 9223372036854775})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "may not exceed") {
		t.Fatalf("expected 400 for oversized quantity, got %d %s", rec.Code, rec.Body.String())
	}
	if view := decodeCart(t, env.do(t, http.MethodGet, "/cart", session, nil)); view.Items[0].Quantity != 1 {
		t.Fatalf("oversized quantity must not reach the cart, got %+v", view.Items)
	}
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/artworks/featured", "", nil)
	var list struct {
		Results []artworkView `json:"results"`
		Count   int           `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || list.Count != 1 {
		t.Fatalf("unexpected featured %s", rec.Body.String())
	}
	if list.Results[0].PriceFormatted != "£200.00" {
		t.Fatalf("unexpected formatted price %q", list.Results[0].PriceFormatted)
	}

	rec = env.do(t, http.MethodGet, "/artworks/slug/harbour", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 by slug, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/artworks/missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/artworks/low-tide/related", "", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || list.Count != 1 || list.Results[0].ID != "harbour" {
		t.Fatalf("unexpected related %s", rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/artworks?category=Seascape", "", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || list.Count != 2 {
		t.Fatalf("unexpected category listing %s", rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/artworks?minPrice=-1", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative price, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/artworks?availability=lost", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown availability, got %d", rec.Code)
	}
}

func TestCheckoutAndComplete(t *testing.T) {
	env := newTestEnv(t, 0)
	session := uuid.NewString()
	customer := gin.H{
		"email": "buyer@example.com", "name": "Ada", "addressLine1": "1 High St",
		"city": "Bath", "postalCode": "BA1 1AA", "country": "GB",
	}

	rec := env.do(t, http.MethodPost, "/checkout", session, customer)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "cart is empty") {
		t.Fatalf("expected empty cart 400, got %d %s", rec.Code, rec.Body.String())
	}

	env.do(t, http.MethodPost, "/cart/items", session, gin.H{"artworkId": "low-tide", "type": "original"})
	rec = env.do(t, http.MethodPost, "/checkout", session, customer)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var res checkout.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || res.URL == "" {
		t.Fatalf("unexpected checkout result %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/orders/complete?session_id="+res.SessionID, "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"processing"`) {
		t.Fatalf("unexpected complete response %d %s", rec.Code, rec.Body.String())
	}
	if view := decodeCart(t, env.do(t, http.MethodGet, "/cart", session, nil)); len(view.Items) != 0 {
		t.Fatalf("expected cart cleared after completion, got %+v", view.Items)
	}

	rec = env.do(t, http.MethodGet, "/orders/"+res.OrderID, "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"formatted":"£255.00"`) {
		t.Fatalf("unexpected order response %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/orders/complete", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without session_id, got %d", rec.Code)
	}
}

func TestCheckoutInternalErrorIsHidden(t *testing.T) {
	env := newTestEnv(t, 0)
	env.orders.err = errors.New("connection reset by peer")
	session := uuid.NewString()
	env.do(t, http.MethodPost, "/cart/items", session, gin.H{"artworkId": "low-tide", "type": "original"})

	rec := env.do(t, http.MethodPost, "/checkout", session, gin.H{
		"email": "buyer@example.com", "name": "Ada", "addressLine1": "1 High St",
		"city": "Bath", "postalCode": "BA1 1AA", "country": "GB",
	})
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "connection reset") {
		t.Fatalf("expected opaque 500, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutRateLimit(t *testing.T) {
	env := newTestEnv(t, 2)
	session := uuid.NewString()
	var codes []int
	for i := 0; i < 3; i++ {
		codes = append(codes, env.do(t, http.MethodPost, "/checkout", session, gin.H{}).Code)
	}
	if codes[0] == http.StatusTooManyRequests || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected rate limit codes %v", codes)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, 0)
	if rec := env.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected readyz 503 without db, got %d", rec.Code)
	}
	env.do(t, http.MethodGet, "/cart", "", nil)
	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	if !strings.Contains(rec.Body.String(), "tanglewood_api_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}
