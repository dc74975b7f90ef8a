package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"tanglewood-gallery/internal/cartstore"
	"tanglewood-gallery/internal/domain"
	"tanglewood-gallery/internal/payment"
	"tanglewood-gallery/internal/pricing"
)

type stubCarts struct {
	stores map[string]*cartstore.Store
}

func (s *stubCarts) Store(ctx context.Context, id string) (*cartstore.Store, error) {
	if st, ok := s.stores[id]; ok {
		return st, nil
	}
	st := cartstore.New(ctx, cartstore.NewMemoryStorage(nil))
	s.stores[id] = st
	return st, nil
}

type stubOrders struct {
	orders   map[string]*domain.Order
	created  []domain.Order
	statuses []domain.OrderStatus
}

func newStubOrders() *stubOrders {
	return &stubOrders{orders: make(map[string]*domain.Order)}
}

func (s *stubOrders) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	s.created = append(s.created, o)
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
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.GatewaySession = ref
	return nil
}

func (s *stubOrders) SetStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	s.statuses = append(s.statuses, status)
	o.Status = status
	return o, nil
}

type stubGateway struct {
	req         payment.SessionRequest
	err         error
	unpaid      bool
	retrieveErr error
	retrieved   []string
}

func (g *stubGateway) RetrieveSession(_ context.Context, id string) (*payment.Session, error) {
	g.retrieved = append(g.retrieved, id)
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	return &payment.Session{ID: id, Paid: !g.unpaid}, nil
}

func (g *stubGateway) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.req = req
	if g.err != nil {
		return nil, g.err
	}
	return &payment.Session{ID: "cs_test_123", URL: "https://pay.example/cs_test_123"}, nil
}

func validCustomer() CustomerInfo {
	return CustomerInfo{
		Email:        "buyer@example.com",
		Name:         "Ada Buyer",
		AddressLine1: "1 High Street",
		City:         "Bath",
		PostalCode:   "BA1 1AA",
		Country:      "gb",
	}
}

func artwork(id string, price int64) domain.Artwork {
	return domain.Artwork{
		ID:           id,
		Title:        "Work " + id,
		Artist:       "Mara Quinn",
		PriceCents:   price,
		Availability: domain.AvailabilityAvailable,
		Images:       []domain.ArtworkImage{{URL: "/images/" + id + ".jpg"}},
	}
}

func setup(t *testing.T) (*Service, *stubCarts, *stubOrders, *stubGateway) {
	t.Helper()
	carts := &stubCarts{stores: make(map[string]*cartstore.Store)}
	orders := newStubOrders()
	gw := &stubGateway{}
	svc := New(carts, orders, gw, Config{AppURL: "https://gallery.example/", VATRate: pricing.DefaultVATRate})
	return svc, carts, orders, gw
}

func TestStartCreatesOrderAndSession(t *testing.T) {
	svc, carts, orders, gw := setup(t)
	ctx := context.Background()
	store, _ := carts.Store(ctx, "sess")
	store.AddItem(artwork("a", 20000), domain.Original{})

	res, err := svc.Start(ctx, "sess", validCustomer())
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/cs_test_123", res.URL)
	require.Len(t, orders.created, 1)

	order := orders.orders[res.OrderID]
	require.Equal(t, domain.OrderPending, order.Status)
	require.Equal(t, "cs_test_123", order.GatewaySession)
	require.Equal(t, int64(25500), order.TotalCents)
	require.Equal(t, "GBP", order.Currency)

	require.Len(t, gw.req.LineItems, 3)
	require.Equal(t, int64(20000), gw.req.LineItems[0].UnitAmount)
	require.Equal(t, "Original Artwork by Mara Quinn", gw.req.LineItems[0].Description)
	require.Equal(t, "https://gallery.example/images/a.jpg", gw.req.LineItems[0].ImageURL)
	require.Equal(t, "VAT (20%)", gw.req.LineItems[1].Name)
	require.Equal(t, int64(4000), gw.req.LineItems[1].UnitAmount)
	require.Equal(t, "Shipping", gw.req.LineItems[2].Name)
	require.Equal(t, int64(1500), gw.req.LineItems[2].UnitAmount)
	require.Equal(t, "https://gallery.example/order/success?session_id={CHECKOUT_SESSION_ID}", gw.req.SuccessURL)
	require.Equal(t, "1", gw.req.Metadata["itemCount"])
	require.Equal(t, "GB", gw.req.Metadata["country"])
}

func TestStartUsesCustomerCountry(t *testing.T) {
	svc, carts, orders, _ := setup(t)
	ctx := context.Background()
	store, _ := carts.Store(ctx, "sess")
	store.AddItem(artwork("a", 1000), domain.Original{})

	info := validCustomer()
	info.Country = "us"
	res, err := svc.Start(ctx, "sess", info)
	require.NoError(t, err)
	require.Equal(t, "US", store.DestinationCountry())
	require.Equal(t, int64(6000), orders.orders[res.OrderID].ShippingCents)
}

func TestStartOmitsShippingLineWhenFree(t *testing.T) {
	svc, carts, _, gw := setup(t)
	ctx := context.Background()
	store, _ := carts.Store(ctx, "sess")
	store.AddItem(artwork("a", 60000), domain.Original{})

	_, err := svc.Start(ctx, "sess", validCustomer())
	require.NoError(t, err)
	require.Len(t, gw.req.LineItems, 2)
	require.Equal(t, "VAT (20%)", gw.req.LineItems[1].Name)
}

func TestStartEmptyCart(t *testing.T) {
	svc, _, orders, _ := setup(t)
	_, err := svc.Start(context.Background(), "sess", validCustomer())
	require.ErrorIs(t, err, ErrEmptyCart)
	require.Empty(t, orders.created)
}

func TestStartValidation(t *testing.T) {
	svc, _, _, _ := setup(t)
	cases := map[string]func(*CustomerInfo){
		"missing email":    func(c *CustomerInfo) { c.Email = "" },
		"bad email":        func(c *CustomerInfo) { c.Email = "not-an-email" },
		"missing name":     func(c *CustomerInfo) { c.Name = " " },
		"missing address":  func(c *CustomerInfo) { c.AddressLine1 = "" },
		"missing city":     func(c *CustomerInfo) { c.City = "" },
		"missing postcode": func(c *CustomerInfo) { c.PostalCode = "" },
		"unsupported":      func(c *CustomerInfo) { c.Country = "JP" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			info := validCustomer()
			mutate(&info)
			_, err := svc.Start(context.Background(), "sess", info)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrEmptyCart)
		})
	}
}

func TestStartGatewayFailureCancelsOrder(t *testing.T) {
	svc, carts, orders, gw := setup(t)
	gw.err = errors.New("card network down")
	ctx := context.Background()
	store, _ := carts.Store(ctx, "sess")
	store.AddItem(artwork("a", 1000), domain.Original{})

	_, err := svc.Start(ctx, "sess", validCustomer())
	require.Error(t, err)
	require.Equal(t, []domain.OrderStatus{domain.OrderCancelled}, orders.statuses)
	require.Len(t, store.Items(), 1)
}

func TestCompleteClearsCartOnce(t *testing.T) {
	svc, carts, orders, gw := setup(t)
	ctx := context.Background()
	store, _ := carts.Store(ctx, "sess")
	store.AddItem(artwork("a", 1000), domain.Original{})

	res, err := svc.Start(ctx, "sess", validCustomer())
	require.NoError(t, err)

	order, err := svc.Complete(ctx, res.SessionID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderProcessing, order.Status)
	require.Empty(t, store.Items())
	require.Equal(t, []string{res.SessionID}, gw.retrieved)

	store.AddItem(artwork("b", 1000), domain.Original{})
	_, err = svc.Complete(ctx, res.SessionID)
	require.NoError(t, err)
	require.Len(t, store.Items(), 1)
	require.Equal(t, []domain.OrderStatus{domain.OrderProcessing}, orders.statuses)

	_, err = svc.Complete(ctx, "cs_unknown")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRejectsMalformedID(t *testing.T) {
	svc, _, _, _ := setup(t)
	_, err := svc.Order(context.Background(), "../etc")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBuildLineItemsDescribesPrints(t *testing.T) {
	v := domain.NewPrintVariant(domain.SizeA3, domain.FinishMatte, 4500, domain.Dimensions{})
	items := []domain.LineItem{{
		ArtworkID: "a",
		Artwork:   domain.ArtworkSnapshot{Title: "Low Tide", Artist: "Mara Quinn", ImageURL: "https://cdn.example/a.jpg"},
		Purchase:  domain.Print{Variant: v},
		Quantity:  2,
		UnitPrice: 4500,
	}}
	totals := pricing.Summarize(items, "GB", pricing.DefaultVATRate)
	lines := BuildLineItems(items, totals, pricing.DefaultVATRate, "")

	require.Equal(t, "Print - A3 matte by Mara Quinn", lines[0].Description)
	require.Equal(t, int64(2), lines[0].Quantity)
	require.Equal(t, "https://cdn.example/a.jpg", lines[0].ImageURL)
	require.Equal(t, int64(1800), lines[1].UnitAmount)
	require.Equal(t, int64(2500), lines[2].UnitAmount)
}

func TestCompleteLeavesUnpaidOrderPending(t *testing.T) {
	svc, carts, orders, gw := setup(t)
	gw.unpaid = true
	ctx := context.Background()
	store, _ := carts.Store(ctx, "sess")
	store.AddItem(artwork("a", 1000), domain.Original{})

	res, err := svc.Start(ctx, "sess", validCustomer())
	require.NoError(t, err)

	order, err := svc.Complete(ctx, res.SessionID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderPending, order.Status)
	require.Nil(t, order.PaidAt)
	require.Empty(t, orders.statuses)
	require.Len(t, store.Items(), 1)

	gw.unpaid = false
	order, err = svc.Complete(ctx, res.SessionID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderProcessing, order.Status)
}

func TestCompleteGatewayErrorKeepsOrderPending(t *testing.T) {
	svc, carts, orders, gw := setup(t)
	ctx := context.Background()
	store, _ := carts.Store(ctx, "sess")
	store.AddItem(artwork("a", 1000), domain.Original{})
	res, err := svc.Start(ctx, "sess", validCustomer())
	require.NoError(t, err)

	gw.retrieveErr = payment.ErrNotConfigured
	_, err = svc.Complete(ctx, res.SessionID)
	require.ErrorIs(t, err, payment.ErrNotConfigured)
	require.Empty(t, orders.statuses)
	require.Len(t, store.Items(), 1)
}

func TestCompleteKeepsLinesAddedAfterCheckout(t *testing.T) {
	svc, carts, _, _ := setup(t)
	ctx := context.Background()
	store, _ := carts.Store(ctx, "sess")
	v := domain.NewPrintVariant(domain.SizeA3, domain.FinishMatte, 4500, domain.Dimensions{})
	printed := domain.Artwork{ID: "p", Title: "Print", PriceCents: 50000, Availability: domain.AvailabilityAvailable, PrintVariants: []domain.PrintVariant{v}}
	store.AddItem(artwork("a", 1000), domain.Original{})
	store.AddItem(printed, domain.Print{Variant: v})

	res, err := svc.Start(ctx, "sess", validCustomer())
	require.NoError(t, err)

	store.AddItem(printed, domain.Print{Variant: v})
	store.AddItem(artwork("later", 2000), domain.Original{})

	_, err = svc.Complete(ctx, res.SessionID)
	require.NoError(t, err)
	items := store.Items()
	require.Len(t, items, 2)
	require.Equal(t, domain.PrintKey("p", v.ID), items[0].Key())
	require.Equal(t, 1, items[0].Quantity)
	require.Equal(t, domain.OriginalKey("later"), items[1].Key())
}
