package pricing

import (
	"regexp"
	"strconv"
	"strings"

	"tanglewood-gallery/internal/domain"
)

// FormatPrice renders pence as a GBP string, e.g. 123456 -> "£1,234.56".
func FormatPrice(pence int64) string {
	sign := ""
	if pence < 0 {
		sign = "-"
		pence = -pence
	}
	pounds := strconv.FormatInt(pence/100, 10)
	var b strings.Builder
	b.WriteString(sign)
	b.WriteString("£")
	for i, r := range pounds {
		if i > 0 && (len(pounds)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	frac := pence % 100
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	return b.String()
}

var (
	slugStrip  = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces = regexp.MustCompile(`\s+`)
	slugDashes = regexp.MustCompile(`-+`)
)

// Slugify turns a title into a URL-friendly slug.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// FormatDimensions renders "60 × 80 cm", adding the depth when present.
func FormatDimensions(d domain.Dimensions) string {
	unit := d.Unit
	if unit == "" {
		unit = "cm"
	}
	parts := []string{formatNumber(d.Width), formatNumber(d.Height)}
	if d.Depth > 0 {
		parts = append(parts, formatNumber(d.Depth))
	}
	return strings.Join(parts, " × ") + " " + unit
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
