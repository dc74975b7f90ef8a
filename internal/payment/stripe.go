package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

type stripeGateway struct {
	sessions session.Client
	logger   *log.Logger
}

// NewStripe returns a Gateway backed by Stripe Checkout.
func NewStripe(secretKey string, logger *log.Logger) Gateway {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if secretKey == "" {
		return Unconfigured()
	}
	return &stripeGateway{
		sessions: session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		logger:   logger,
	}
}

func (g *stripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if len(req.LineItems) == 0 {
		return nil, errors.New("line items required")
	}
	params := buildSessionParams(req)
	params.Context = ctx

	s, err := g.sessions.New(params)
	if err != nil {
		g.logger.Printf("stripe: create session order=%s error=%v", req.OrderID, err)
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	g.logger.Printf("stripe: created session id=%s order=%s", s.ID, req.OrderID)
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func (g *stripeGateway) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.New("session id required")
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.sessions.Get(id, params)
	if err != nil {
		g.logger.Printf("stripe: retrieve session id=%s error=%v", id, err)
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	return toSession(s), nil
}

func toSession(s *stripe.CheckoutSession) *Session {
	return &Session{
		ID:   s.ID,
		URL:  s.URL,
		Paid: s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
}

func buildSessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(AllowedShippingCountries),
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.OrderID != "" {
		params.ClientReferenceID = stripe.String(req.OrderID)
	}
	for _, li := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		if li.Description != "" {
			product.Description = stripe.String(li.Description)
		}
		if li.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{li.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}
