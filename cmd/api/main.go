package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"tanglewood-gallery/internal/cartstore"
	"tanglewood-gallery/internal/config"
	"tanglewood-gallery/internal/db"
	"tanglewood-gallery/internal/httpserver"
	"tanglewood-gallery/internal/metrics"
	"tanglewood-gallery/internal/payment"
	artworkrepo "tanglewood-gallery/internal/repository/artwork"
	cartrepo "tanglewood-gallery/internal/repository/cart"
	orderrepo "tanglewood-gallery/internal/repository/order"
	cartsvc "tanglewood-gallery/internal/service/cart"
	"tanglewood-gallery/internal/service/catalog"
	"tanglewood-gallery/internal/service/checkout"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cartRepo, closeCarts := newCartRepo(ctx, cfg, dbpool, logger)
	defer closeCarts()

	catalogService := catalog.New(artworkrepo.NewPostgres(dbpool, logger))
	cartMetrics := metrics.NewCartMetrics(reg)
	cartService, err := cartsvc.New(cartRepo, catalogService, cartsvc.Config{
		CacheSize: cfg.CartCacheSize,
		Logger:    logger,
		Metrics:   cartMetrics,
		StoreOpts: []cartstore.Option{
			cartstore.WithVATRate(cfg.VATRate),
			cartstore.WithPersistTimeout(cfg.PersistTimeout),
		},
	})
	if err != nil {
		logger.Fatalf("init cart service: %v", err)
	}
	checkoutService := checkout.New(cartService, orderrepo.NewPostgres(dbpool, logger), payment.NewStripe(cfg.StripeSecretKey, logger), checkout.Config{
		AppURL:  cfg.AppURL,
		VATRate: cfg.VATRate,
		Logger:  logger,
		Metrics: cartMetrics,
	})

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Catalog:           catalogService,
		Carts:             cartService,
		Checkout:          checkoutService,
		DB:                dbpool,
		Metrics:           metrics.NewServerMetrics(reg),
		Gatherer:          reg,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		CheckoutPerMinute: cfg.CheckoutPerMinute,
		SecureCookies:     strings.HasPrefix(cfg.AppURL, "https://"),
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s (cart storage %s)", cfg.HTTPAddr, cfg.CartStorage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

func newCartRepo(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *log.Logger) (cartrepo.Repository, func()) {
	switch cfg.CartStorage {
	case config.CartStorageRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatalf("connect to redis: %v", err)
		}
		return cartrepo.NewRedis(client, cfg.CartTTL, logger), func() { client.Close() }
	case config.CartStorageMemory:
		logger.Printf("cart storage is in memory; carts are lost on restart")
		return cartrepo.NewMemory(), func() {}
	case config.CartStoragePostgres:
		return cartrepo.NewPostgres(pool, logger), func() {}
	default:
		logger.Fatalf("unknown CART_STORAGE %q", cfg.CartStorage)
		return nil, nil
	}
}
