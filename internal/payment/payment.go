// Package payment hands a priced cart to the hosted payment page.
package payment

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no payment provider credentials are set.
var ErrNotConfigured = errors.New("payment gateway not configured")

// AllowedShippingCountries are the destinations the payment page accepts.
var AllowedShippingCountries = []string{"GB", "US", "FR", "DE", "IT", "ES", "NL", "BE", "IE"}

const Currency = "gbp"

type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Quantity    int64
}

type SessionRequest struct {
	OrderID       string
	CustomerEmail string
	LineItems     []LineItem
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

type Session struct {
	ID  string
	URL string
	// Paid is set on retrieved sessions once the provider has captured payment.
	Paid bool
}

// Gateway creates hosted checkout sessions and reports their payment state.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}

type unconfigured struct{}

// Unconfigured is used when the server runs without payment credentials.
func Unconfigured() Gateway { return unconfigured{} }

func (unconfigured) CreateSession(context.Context, SessionRequest) (*Session, error) {
	return nil, ErrNotConfigured
}

func (unconfigured) RetrieveSession(context.Context, string) (*Session, error) {
	return nil, ErrNotConfigured
}
