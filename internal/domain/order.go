package domain

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

type ShippingDetails struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
}

// Order is the frozen result of a checkout: items and totals as they were handed to the gateway.
type Order struct {
	ID              string          `json:"id"`
	CartSessionID   string          `json:"-"`
	Items           []LineItem      `json:"items"`
	SubtotalCents   int64           `json:"subtotal"`
	ShippingCents   int64           `json:"shipping"`
	TaxCents        int64           `json:"tax"`
	TotalCents      int64           `json:"total"`
	Currency        string          `json:"currency"`
	GatewaySession  string          `json:"gatewaySessionId,omitempty"`
	Status          OrderStatus     `json:"status"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerName    string          `json:"customerName,omitempty"`
	ShippingDetails ShippingDetails `json:"shippingDetails"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
}
