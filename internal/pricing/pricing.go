// Package pricing computes VAT, shipping and cart totals. All amounts are
// integer pence; nothing in this package touches floating point money.
package pricing

import (
	"strings"

	"tanglewood-gallery/internal/domain"
)

const (
	// DefaultVATRate is the UK standard rate in percent.
	DefaultVATRate int64 = 20
	// FreeShippingThreshold waives shipping for subtotals of £500 and above.
	FreeShippingThreshold int64 = 50000
	// HomeCountry is the seller's country and the default destination.
	HomeCountry = "GB"
)

type Tier string

const (
	TierDomestic      Tier = "domestic"
	TierRegional      Tier = "regional"
	TierInternational Tier = "international"
)

// rates[n] is the charge for n+1 items; the last rate covers 3 or more.
type tierRates [3]int64

var (
	tierTable = map[Tier]tierRates{
		TierDomestic:      {1500, 2500, 3500},
		TierRegional:      {3500, 5000, 7500},
		TierInternational: {6000, 9000, 12000},
	}
	regionalCountries = map[string]struct{}{
		"FR": {}, "DE": {}, "IT": {}, "ES": {}, "NL": {}, "BE": {}, "IE": {},
	}
)

// NormalizeCountry upper-cases a country code; empty input means the home country.
func NormalizeCountry(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return HomeCountry
	}
	return code
}

// TierFor returns the shipping tier of a destination country.
func TierFor(country string) Tier {
	country = NormalizeCountry(country)
	if country == HomeCountry {
		return TierDomestic
	}
	if _, ok := regionalCountries[country]; ok {
		return TierRegional
	}
	return TierInternational
}

// CalculateShipping looks up the flat-rate shipping charge.
// An empty cart ships for free, then the free-shipping threshold applies
// regardless of destination, then the country tier by item count.
func CalculateShipping(itemCount int, subtotal int64, country string) int64 {
	if itemCount <= 0 {
		return 0
	}
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	rates := tierTable[TierFor(country)]
	switch itemCount {
	case 1:
		return rates[0]
	case 2:
		return rates[1]
	default:
		return rates[2]
	}
}

// CalculateVAT returns round(amount * ratePercent / 100) with halves rounded up.
func CalculateVAT(amount, ratePercent int64) int64 {
	if ratePercent == 0 || amount == 0 {
		return 0
	}
	return floorDiv(amount*ratePercent+50, 100)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Totals is the priced view of a cart.
type Totals struct {
	ItemCount int   `json:"itemCount"`
	Subtotal  int64 `json:"subtotal"`
	Shipping  int64 `json:"shipping"`
	VAT       int64 `json:"vat"`
	Total     int64 `json:"total"`
}

// ItemCount sums quantities.
func ItemCount(items []domain.LineItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// Subtotal sums unit price times quantity.
func Subtotal(items []domain.LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// Summarize prices a list of line items for a destination. VAT is charged on
// the subtotal only; shipping is not part of the taxable amount.
func Summarize(items []domain.LineItem, country string, vatRate int64) Totals {
	count := ItemCount(items)
	subtotal := Subtotal(items)
	shipping := CalculateShipping(count, subtotal, country)
	vat := CalculateVAT(subtotal, vatRate)
	return Totals{
		ItemCount: count,
		Subtotal:  subtotal,
		Shipping:  shipping,
		VAT:       vat,
		Total:     subtotal + shipping + vat,
	}
}
