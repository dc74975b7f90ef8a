package checkout

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/mail"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"tanglewood-gallery/internal/cartstore"
	"tanglewood-gallery/internal/domain"
	"tanglewood-gallery/internal/metrics"
	"tanglewood-gallery/internal/payment"
	"tanglewood-gallery/internal/pricing"
	orderrepo "tanglewood-gallery/internal/repository/order"
)

var ErrEmptyCart = domain.Invalidf("cart is empty")

type cartSessions interface {
	Store(ctx context.Context, sessionID string) (*cartstore.Store, error)
}

type Config struct {
	AppURL  string
	VATRate int64
	Logger  *log.Logger
	Metrics *metrics.CartMetrics
}

type Service struct {
	carts   cartSessions
	orders  orderrepo.Repository
	gateway payment.Gateway
	appURL  string
	vatRate int64
	logger  *log.Logger
	metrics *metrics.CartMetrics
	tracer  trace.Tracer
}

func New(carts cartSessions, orders orderrepo.Repository, gateway payment.Gateway, cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		carts:   carts,
		orders:  orders,
		gateway: gateway,
		appURL:  strings.TrimRight(cfg.AppURL, "/"),
		vatRate: cfg.VATRate,
		logger:  logger,
		metrics: cfg.Metrics,
		tracer:  otel.Tracer("tanglewood/checkout"),
	}
}

type CustomerInfo struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
}

// Normalize trims every field and upper-cases the country code.
func (c CustomerInfo) Normalize() CustomerInfo {
	c.Email = strings.TrimSpace(c.Email)
	c.Name = strings.TrimSpace(c.Name)
	c.AddressLine1 = strings.TrimSpace(c.AddressLine1)
	c.AddressLine2 = strings.TrimSpace(c.AddressLine2)
	c.City = strings.TrimSpace(c.City)
	c.PostalCode = strings.TrimSpace(c.PostalCode)
	c.Country = pricing.NormalizeCountry(c.Country)
	c.Phone = strings.TrimSpace(c.Phone)
	return c
}

func (c CustomerInfo) Validate() error {
	if c.Email == "" {
		return domain.Invalidf("email required")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return domain.Invalidf("email invalid")
	}
	if c.Name == "" {
		return domain.Invalidf("name required")
	}
	if c.AddressLine1 == "" {
		return domain.Invalidf("addressLine1 required")
	}
	if c.City == "" {
		return domain.Invalidf("city required")
	}
	if c.PostalCode == "" {
		return domain.Invalidf("postalCode required")
	}
	if !slices.Contains(payment.AllowedShippingCountries, c.Country) {
		return domain.Invalidf("shipping to %s is not supported", c.Country)
	}
	return nil
}

func (c CustomerInfo) shippingDetails() domain.ShippingDetails {
	return domain.ShippingDetails{
		Name:         c.Name,
		AddressLine1: c.AddressLine1,
		AddressLine2: c.AddressLine2,
		City:         c.City,
		PostalCode:   c.PostalCode,
		Country:      c.Country,
		Phone:        c.Phone,
	}
}

type Result struct {
	OrderID   string `json:"orderId"`
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// Start prices the session's cart for the customer's destination, records a
// pending order and opens a hosted payment session for it.
func (s *Service) Start(ctx context.Context, cartSession string, info CustomerInfo) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.start")
	defer span.End()

	info = info.Normalize()
	if err := info.Validate(); err != nil {
		s.count("invalid")
		return nil, err
	}
	store, err := s.carts.Store(ctx, cartSession)
	if err != nil {
		s.count("invalid")
		return nil, err
	}
	store.SetDestinationCountry(info.Country)
	snap := store.Snapshot()
	if len(snap.Items) == 0 {
		s.count("empty")
		return nil, ErrEmptyCart
	}
	totals := snap.Totals
	span.SetAttributes(
		attribute.Int("cart.item_count", totals.ItemCount),
		attribute.Int64("cart.subtotal", totals.Subtotal),
		attribute.Int64("cart.total", totals.Total),
		attribute.String("cart.destination", snap.DestinationCountry),
	)

	order, err := s.orders.Create(ctx, domain.Order{
		ID:              uuid.NewString(),
		CartSessionID:   cartSession,
		Items:           snap.Items,
		SubtotalCents:   totals.Subtotal,
		ShippingCents:   totals.Shipping,
		TaxCents:        totals.VAT,
		TotalCents:      totals.Total,
		Currency:        strings.ToUpper(payment.Currency),
		Status:          domain.OrderPending,
		CustomerEmail:   info.Email,
		CustomerName:    info.Name,
		ShippingDetails: info.shippingDetails(),
	})
	if err != nil {
		s.fail(span, "order", err)
		return nil, fmt.Errorf("create order: %w", err)
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	sess, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		OrderID:       order.ID,
		CustomerEmail: info.Email,
		LineItems:     BuildLineItems(snap.Items, totals, s.vatRate, s.appURL),
		SuccessURL:    s.appURL + "/order/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.appURL + "/checkout",
		Metadata:      metadata(info, order.ID, totals.ItemCount),
	})
	if err != nil {
		s.fail(span, "gateway", err)
		if _, cerr := s.orders.SetStatus(ctx, order.ID, domain.OrderCancelled); cerr != nil {
			s.logger.Printf("checkout: cancel order=%s err=%v", order.ID, cerr)
		}
		return nil, err
	}
	if err := s.orders.AttachSession(ctx, order.ID, sess.ID); err != nil {
		s.fail(span, "attach", err)
		return nil, fmt.Errorf("attach session: %w", err)
	}

	s.count("ok")
	s.logger.Printf("checkout: order=%s session=%s items=%d total=%d", order.ID, sess.ID, totals.ItemCount, totals.Total)
	return &Result{OrderID: order.ID, SessionID: sess.ID, URL: sess.URL}, nil
}

// Complete handles the return from the payment page. Once the gateway reports
// the session paid, the first call moves the order to processing and takes the
// ordered lines out of the cart; later calls return the order as is. An unpaid
// session leaves the order pending.
func (s *Service) Complete(ctx context.Context, gatewaySession string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.complete",
		trace.WithAttributes(attribute.String("gateway.session", gatewaySession)),
	)
	defer span.End()

	if strings.TrimSpace(gatewaySession) == "" {
		return nil, domain.Invalidf("session_id required")
	}
	order, err := s.orders.GetBySessionRef(ctx, gatewaySession)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderPending {
		return order, nil
	}
	sess, err := s.gateway.RetrieveSession(ctx, gatewaySession)
	if err != nil {
		s.fail(span, "retrieve", err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("gateway.paid", sess.Paid))
	if !sess.Paid {
		s.logger.Printf("checkout: session=%s order=%s not paid yet", gatewaySession, order.ID)
		return order, nil
	}
	order, err = s.orders.SetStatus(ctx, order.ID, domain.OrderProcessing)
	if err != nil {
		s.fail(span, "status", err)
		return nil, err
	}
	store, err := s.carts.Store(ctx, order.CartSessionID)
	if err != nil {
		s.logger.Printf("checkout: clear cart order=%s err=%v", order.ID, err)
		return order, nil
	}
	store.Deduct(order.Items)
	s.logger.Printf("checkout: completed order=%s", order.ID)
	return order, nil
}

func (s *Service) Order(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return s.orders.GetByID(ctx, id)
}

// BuildLineItems turns cart items into payment lines: one per item, a VAT
// line, and a shipping line when shipping is charged.
func BuildLineItems(items []domain.LineItem, totals pricing.Totals, vatRate int64, appURL string) []payment.LineItem {
	lines := make([]payment.LineItem, 0, len(items)+2)
	for _, item := range items {
		name := item.Artwork.Title
		if name == "" {
			name = "Artwork"
		}
		lines = append(lines, payment.LineItem{
			Name:        name,
			Description: describe(item),
			ImageURL:    absoluteURL(appURL, item.Artwork.ImageURL),
			UnitAmount:  item.UnitPrice,
			Quantity:    int64(item.Quantity),
		})
	}
	lines = append(lines, payment.LineItem{
		Name:       fmt.Sprintf("VAT (%d%%)", vatRate),
		UnitAmount: totals.VAT,
		Quantity:   1,
	})
	if totals.Shipping > 0 {
		lines = append(lines, payment.LineItem{
			Name:       "Shipping",
			UnitAmount: totals.Shipping,
			Quantity:   1,
		})
	}
	return lines
}

func describe(item domain.LineItem) string {
	kind := "Original Artwork"
	if v, ok := item.PrintVariant(); ok {
		kind = fmt.Sprintf("Print - %s %s", v.Size, v.Finish)
	}
	if item.Artwork.Artist == "" {
		return kind
	}
	return kind + " by " + item.Artwork.Artist
}

func absoluteURL(base, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if base == "" {
		return ""
	}
	return base + "/" + strings.TrimLeft(ref, "/")
}

func metadata(info CustomerInfo, orderID string, itemCount int) map[string]string {
	return map[string]string{
		"orderId":       orderID,
		"customerEmail": info.Email,
		"customerName":  info.Name,
		"addressLine1":  info.AddressLine1,
		"addressLine2":  info.AddressLine2,
		"city":          info.City,
		"postalCode":    info.PostalCode,
		"country":       info.Country,
		"phone":         info.Phone,
		"itemCount":     strconv.Itoa(itemCount),
	}
}

func (s *Service) fail(span trace.Span, stage string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	s.count("error")
	s.logger.Printf("checkout: stage=%s err=%v", stage, err)
}

func (s *Service) count(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Checkouts.WithLabelValues(outcome).Inc()
}
