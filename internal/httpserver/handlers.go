package httpserver

import (
	"log"

	cartsvc "tanglewood-gallery/internal/service/cart"
	"tanglewood-gallery/internal/service/catalog"
	"tanglewood-gallery/internal/service/checkout"
)

type handlers struct {
	catalog  *catalog.Service
	carts    *cartsvc.Service
	checkout *checkout.Service
	logger   *log.Logger
}
