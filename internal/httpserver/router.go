package httpserver

import (
	"errors"
	"io"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"tanglewood-gallery/internal/metrics"
	cartsvc "tanglewood-gallery/internal/service/cart"
	"tanglewood-gallery/internal/service/catalog"
	"tanglewood-gallery/internal/service/checkout"
)

// Deps carries the services the router exposes.
type Deps struct {
	Catalog  *catalog.Service
	Carts    *cartsvc.Service
	Checkout *checkout.Service

	DB          Pinger
	Metrics     *metrics.ServerMetrics
	Gatherer    prometheus.Gatherer
	CORSOrigins []string

	// CheckoutPerMinute bounds checkout attempts per client address. Zero disables the limit.
	CheckoutPerMinute int
	SecureCookies     bool
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Catalog == nil || deps.Carts == nil || deps.Checkout == nil {
		return nil, errors.New("catalog, cart and checkout services required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if deps.Metrics != nil {
		router.Use(metricsMiddleware(deps.Metrics))
	}
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", sessionHeader},
			ExposeHeaders:    []string{sessionHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))
	}

	h := &handlers{catalog: deps.Catalog, carts: deps.Carts, checkout: deps.Checkout, logger: logger}

	art := router.Group("/artworks")
	art.GET("", h.listArtworks)
	art.GET("/featured", h.featuredArtworks)
	art.GET("/facets", h.facets)
	art.GET("/slug/:slug", h.artworkBySlug)
	art.GET("/:id", h.artworkByID)
	art.GET("/:id/related", h.relatedArtworks)

	session := router.Group("", sessionMiddleware(deps.SecureCookies))
	session.GET("/cart", h.getCart)
	session.POST("/cart/items", h.addItem)
	session.PATCH("/cart/items", h.updateQuantity)
	session.DELETE("/cart/items", h.removeItem)
	session.DELETE("/cart", h.clearCart)
	session.POST("/cart/open", h.openCart)
	session.POST("/cart/close", h.closeCart)
	session.POST("/cart/toggle", h.toggleCart)
	session.PUT("/cart/destination", h.setDestination)
	session.POST("/checkout", rateLimitMiddleware(deps.CheckoutPerMinute), h.startCheckout)

	router.POST("/orders/complete", h.completeOrder)
	router.GET("/orders/:id", h.getOrder)

	return router, nil
}
