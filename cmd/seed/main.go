package main

import (
	"context"
	"log"
	"os"

	"tanglewood-gallery/internal/config"
	"tanglewood-gallery/internal/db"
	artworkrepo "tanglewood-gallery/internal/repository/artwork"
	"tanglewood-gallery/internal/seed"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	n, err := seed.Apply(ctx, artworkrepo.NewPostgres(pool, logger), logger)
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Printf("seed applied: %d artworks", n)
}
