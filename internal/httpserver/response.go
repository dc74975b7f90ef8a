package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"tanglewood-gallery/internal/cartstore"
	"tanglewood-gallery/internal/domain"
	"tanglewood-gallery/internal/payment"
	"tanglewood-gallery/internal/pricing"
)

type money struct {
	Amount    int64  `json:"amount"`
	Formatted string `json:"formatted"`
}

func moneyOf(pence int64) money {
	return money{Amount: pence, Formatted: pricing.FormatPrice(pence)}
}

type totalsView struct {
	ItemCount             int    `json:"itemCount"`
	Subtotal              money  `json:"subtotal"`
	Shipping              money  `json:"shipping"`
	VAT                   money  `json:"vat"`
	Total                 money  `json:"total"`
	ShippingTier          string `json:"shippingTier"`
	FreeShippingRemaining money  `json:"freeShippingRemaining"`
}

func toTotalsView(t pricing.Totals, country string) totalsView {
	remaining := pricing.FreeShippingThreshold - t.Subtotal
	if remaining < 0 {
		remaining = 0
	}
	return totalsView{
		ItemCount:             t.ItemCount,
		Subtotal:              moneyOf(t.Subtotal),
		Shipping:              moneyOf(t.Shipping),
		VAT:                   moneyOf(t.VAT),
		Total:                 moneyOf(t.Total),
		ShippingTier:          string(pricing.TierFor(country)),
		FreeShippingRemaining: moneyOf(remaining),
	}
}

type lineItemView struct {
	Key          string                 `json:"key"`
	ArtworkID    string                 `json:"artworkId"`
	Artwork      domain.ArtworkSnapshot `json:"artwork"`
	Type         domain.PurchaseType    `json:"type"`
	PrintVariant *domain.PrintVariant   `json:"printVariant,omitempty"`
	Quantity     int                    `json:"quantity"`
	Price        money                  `json:"price"`
	LineTotal    money                  `json:"lineTotal"`
	AddedAt      *time.Time             `json:"addedAt,omitempty"`
}

func toLineItemView(item domain.LineItem) lineItemView {
	v := lineItemView{
		Key:       item.Key().String(),
		ArtworkID: item.ArtworkID,
		Artwork:   item.Artwork,
		Type:      item.Type(),
		Quantity:  item.Quantity,
		Price:     moneyOf(item.UnitPrice),
		LineTotal: moneyOf(item.LineTotal()),
	}
	if pv, ok := item.PrintVariant(); ok {
		v.PrintVariant = &pv
	}
	if !item.AddedAt.IsZero() {
		at := item.AddedAt
		v.AddedAt = &at
	}
	return v
}

func toLineItemViews(items []domain.LineItem) []lineItemView {
	out := make([]lineItemView, 0, len(items))
	for _, item := range items {
		out = append(out, toLineItemView(item))
	}
	return out
}

type cartView struct {
	Items              []lineItemView `json:"items"`
	IsOpen             bool           `json:"isOpen"`
	DestinationCountry string         `json:"destinationCountry"`
	Totals             totalsView     `json:"totals"`
}

func toCartView(s cartstore.Snapshot) cartView {
	return cartView{
		Items:              toLineItemViews(s.Items),
		IsOpen:             s.IsOpen,
		DestinationCountry: s.DestinationCountry,
		Totals:             toTotalsView(s.Totals, s.DestinationCountry),
	}
}

type artworkView struct {
	domain.Artwork
	PriceFormatted      string `json:"priceFormatted"`
	DimensionsFormatted string `json:"dimensionsFormatted"`
}

func toArtworkView(a domain.Artwork) artworkView {
	return artworkView{
		Artwork:             a,
		PriceFormatted:      pricing.FormatPrice(a.PriceCents),
		DimensionsFormatted: pricing.FormatDimensions(a.Dimensions),
	}
}

func toArtworkViews(list []domain.Artwork) []artworkView {
	out := make([]artworkView, 0, len(list))
	for _, a := range list {
		out = append(out, toArtworkView(a))
	}
	return out
}

type orderView struct {
	ID              string                 `json:"id"`
	Status          domain.OrderStatus     `json:"status"`
	Items           []lineItemView         `json:"items"`
	Subtotal        money                  `json:"subtotal"`
	Shipping        money                  `json:"shipping"`
	Tax             money                  `json:"tax"`
	Total           money                  `json:"total"`
	Currency        string                 `json:"currency"`
	CustomerEmail   string                 `json:"customerEmail"`
	CustomerName    string                 `json:"customerName,omitempty"`
	ShippingDetails domain.ShippingDetails `json:"shippingDetails"`
	CreatedAt       time.Time              `json:"createdAt"`
	PaidAt          *time.Time             `json:"paidAt,omitempty"`
}

func toOrderView(o domain.Order) orderView {
	return orderView{
		ID:              o.ID,
		Status:          o.Status,
		Items:           toLineItemViews(o.Items),
		Subtotal:        moneyOf(o.SubtotalCents),
		Shipping:        moneyOf(o.ShippingCents),
		Tax:             moneyOf(o.TaxCents),
		Total:           moneyOf(o.TotalCents),
		Currency:        o.Currency,
		CustomerEmail:   o.CustomerEmail,
		CustomerName:    o.CustomerName,
		ShippingDetails: o.ShippingDetails,
		CreatedAt:       o.CreatedAt,
		PaidAt:          o.PaidAt,
	}
}

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

// writeError maps service errors to status codes. Unknown errors are logged
// and reported as 500 without detail.
func (h *handlers) writeError(c *gin.Context, err error) {
	var (
		status int
		msg    = err.Error()
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, payment.ErrNotConfigured):
		status, msg = http.StatusServiceUnavailable, "payments are not available"
	default:
		h.logger.Printf("http: %s %s error=%v", c.Request.Method, c.FullPath(), err)
		status, msg = http.StatusInternalServerError, "internal error"
	}
	c.JSON(status, errorBody(msg))
}
