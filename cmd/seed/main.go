// Package main provides a CLI tool for bulk-loading test data: customers
// go through the allocator-backed create path (so they receive sequential
// IDs like production traffic), products are written as reference data.
//
// Fixture files are JSON arrays, optionally zstd-compressed (.json.zst).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/Masaki-Miyazawa/erp/internal/docstore"
	fsstore "github.com/Masaki-Miyazawa/erp/internal/docstore/firestore"
	"github.com/Masaki-Miyazawa/erp/internal/docstore/memory"
	pgstore "github.com/Masaki-Miyazawa/erp/internal/docstore/postgres"
	"github.com/Masaki-Miyazawa/erp/internal/domain/customer"
	"github.com/Masaki-Miyazawa/erp/internal/domain/product"
	"github.com/Masaki-Miyazawa/erp/internal/sequence"
	"github.com/Masaki-Miyazawa/erp/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	store, err := newStore(ctx)
	if err != nil {
		log.Fatalw("failed to initialize document store", "error", err)
	}
	defer store.Close()

	seedDir := os.Getenv("SEED_DIR")
	if seedDir == "" {
		seedDir = "testdata"
	}

	allocator := sequence.New(store, 0)
	customerService := customer.NewService(store, allocator)
	productService := product.NewService(store)

	if n, err := seedCustomers(ctx, customerService, seedDir); err != nil {
		log.Fatalw("failed to seed customers", "error", err)
	} else {
		log.Infow("customers seeded", "count", n)
	}

	if n, err := seedProducts(ctx, productService, seedDir); err != nil {
		log.Fatalw("failed to seed products", "error", err)
	} else {
		log.Infow("products seeded", "count", n)
	}

	log.Info("seeding completed successfully")
}

func seedCustomers(ctx context.Context, svc *customer.Service, dir string) (int, error) {
	var fixtures []struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	found, err := loadFixture(dir, "customers", &fixtures)
	if err != nil || !found {
		return 0, err
	}

	for i, f := range fixtures {
		_, err := svc.Create(ctx, customer.Fields{
			Name:    f.Name,
			Email:   f.Email,
			Phone:   f.Phone,
			Address: f.Address,
		})
		if err != nil {
			return i, fmt.Errorf("customer %d (%s): %w", i, f.Name, err)
		}
	}
	return len(fixtures), nil
}

func seedProducts(ctx context.Context, svc *product.Service, dir string) (int, error) {
	var fixtures []product.Product
	found, err := loadFixture(dir, "products", &fixtures)
	if err != nil || !found {
		return 0, err
	}

	for i := range fixtures {
		if err := svc.Save(ctx, &fixtures[i]); err != nil {
			return i, fmt.Errorf("product %d (%s): %w", i, fixtures[i].ProductID, err)
		}
	}
	return len(fixtures), nil
}

// loadFixture reads <dir>/<name>.json or <dir>/<name>.json.zst.
// Returns found=false when neither file exists.
func loadFixture(dir, name string, out any) (bool, error) {
	for _, candidate := range []string{name + ".json.zst", name + ".json"} {
		path := filepath.Join(dir, candidate)
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return false, err
		}
		defer f.Close()

		var r io.Reader = f
		if strings.HasSuffix(candidate, ".zst") {
			zr, err := zstd.NewReader(f)
			if err != nil {
				return false, fmt.Errorf("open zstd %s: %w", path, err)
			}
			defer zr.Close()
			r = zr
		}

		if err := json.NewDecoder(r).Decode(out); err != nil {
			return false, fmt.Errorf("decode %s: %w", path, err)
		}
		return true, nil
	}
	return false, nil
}

// newStore builds the document store selected by DOCSTORE_BACKEND.
func newStore(ctx context.Context) (docstore.Store, error) {
	switch backend := os.Getenv("DOCSTORE_BACKEND"); backend {
	case "", "memory":
		return memory.New(), nil

	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		pool, err := pgstore.NewPool(ctx, pgstore.DefaultPoolConfig(dsn))
		if err != nil {
			return nil, err
		}
		store := pgstore.New(pool)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil

	case "firestore":
		projectID := os.Getenv("FIRESTORE_PROJECT")
		if projectID == "" {
			return nil, fmt.Errorf("FIRESTORE_PROJECT is required for the firestore backend")
		}
		return fsstore.New(ctx, projectID)

	default:
		return nil, fmt.Errorf("unknown docstore backend %q", backend)
	}
}
