package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"tanglewood-gallery/internal/domain"
	artworkrepo "tanglewood-gallery/internal/repository/artwork"
)

// parseFilter reads catalog filters from the query string. The gallery's
// "prints" availability option selects artworks that offer prints.
func parseFilter(c *gin.Context) (artworkrepo.Filter, error) {
	f := artworkrepo.Filter{
		Category: strings.TrimSpace(c.Query("category")),
		Series:   strings.TrimSpace(c.Query("series")),
		Query:    strings.TrimSpace(c.Query("q")),
	}
	if f.Category == "all" {
		f.Category = ""
	}
	switch availability := strings.ToLower(strings.TrimSpace(c.Query("availability"))); availability {
	case "", "all":
	case "prints":
		f.HasPrints = true
	case "originals":
		f.Availability = domain.AvailabilityAvailable
	default:
		f.Availability = domain.Availability(availability)
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return f, domain.Invalidf("featured must be true or false")
		}
		f.Featured = &featured
	}
	var err error
	if f.MinPrice, err = queryInt64(c, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryInt64(c, "maxPrice"); err != nil {
		return f, err
	}
	limit, err := queryInt64(c, "limit")
	if err != nil {
		return f, err
	}
	f.Limit = int(limit)
	return f, nil
}

func queryInt64(c *gin.Context, key string) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, domain.Invalidf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func (h *handlers) listArtworks(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	list, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": toArtworkViews(list), "count": len(list)})
}

func (h *handlers) featuredArtworks(c *gin.Context) {
	limit, err := queryInt64(c, "limit")
	if err != nil {
		h.writeError(c, err)
		return
	}
	list, err := h.catalog.Featured(c.Request.Context(), int(limit))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": toArtworkViews(list), "count": len(list)})
}

func (h *handlers) facets(c *gin.Context) {
	categories, series, err := h.catalog.Facets(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories, "series": series})
}

func (h *handlers) artworkByID(c *gin.Context) {
	a, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toArtworkView(*a))
}

func (h *handlers) artworkBySlug(c *gin.Context) {
	a, err := h.catalog.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toArtworkView(*a))
}

func (h *handlers) relatedArtworks(c *gin.Context) {
	limit, err := queryInt64(c, "limit")
	if err != nil {
		h.writeError(c, err)
		return
	}
	list, err := h.catalog.Related(c.Request.Context(), c.Param("id"), int(limit))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": toArtworkViews(list), "count": len(list)})
}
