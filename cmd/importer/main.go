package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tanglewood-gallery/internal/config"
	"tanglewood-gallery/internal/db"
	"tanglewood-gallery/internal/importer"
	artworkrepo "tanglewood-gallery/internal/repository/artwork"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to artwork CSV export")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, artworkrepo.NewPostgres(pool, nil))

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	fmt.Printf("Imported %d artworks in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}
