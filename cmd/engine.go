package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/faceid/internal/config"
	"github.com/kozaktomas/faceid/internal/database"
	"github.com/kozaktomas/faceid/internal/database/local"
	"github.com/kozaktomas/faceid/internal/database/postgres"
	"github.com/kozaktomas/faceid/internal/detector"
	"github.com/kozaktomas/faceid/internal/faceid"
)

// startupProbeTimeout bounds the startup connectivity report.
const startupProbeTimeout = 5 * time.Second

// openStore builds the tiered store. With DATABASE_URL set the PostgreSQL tier
// is always wired; while it is unreachable each call falls back to the local file.
func openStore(ctx context.Context, cfg *config.Config) (*database.Store, func()) {
	fileStore := local.NewFileStore(cfg.Local.Path)
	if cfg.Database.URL == "" {
		fmt.Fprintf(os.Stderr, "DATABASE_URL not set, using local embeddings file %s\n", fileStore.Path())
		return database.NewStore(nil, fileStore), func() {}
	}

	pool, err := postgres.Open(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid PostgreSQL configuration (%v), using local embeddings file %s\n", err, fileStore.Path())
		return database.NewStore(nil, fileStore), func() {}
	}

	repo := postgres.NewEmbeddingRepository(pool)
	countCtx, cancel := context.WithTimeout(ctx, startupProbeTimeout)
	defer cancel()
	if n, err := repo.Count(countCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: PostgreSQL unreachable (%v), falling back to %s until it recovers\n", err, fileStore.Path())
	} else {
		fmt.Fprintf(os.Stderr, "Using PostgreSQL backend (%d embeddings), fallback %s\n", n, fileStore.Path())
	}
	return database.NewStore(repo, fileStore), func() { pool.Close() }
}

// newService wires the detector client and store into the engine.
func newService(ctx context.Context, cfg *config.Config) (*faceid.Service, func()) {
	store, closeStore := openStore(ctx, cfg)
	det := detector.NewClient(&cfg.Detector)
	return faceid.NewService(det, store, cfg.Matching, cfg.Enroll.Concurrency), closeStore
}

func readImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", path, err)
	}
	return data, nil
}

// outputJSON writes data to stdout as indented JSON.
func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
