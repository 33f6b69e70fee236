// Package main is the entry point for the back-office API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Masaki-Miyazawa/erp/internal/docstore"
	fsstore "github.com/Masaki-Miyazawa/erp/internal/docstore/firestore"
	"github.com/Masaki-Miyazawa/erp/internal/docstore/memory"
	pgstore "github.com/Masaki-Miyazawa/erp/internal/docstore/postgres"
	"github.com/Masaki-Miyazawa/erp/internal/domain/customer"
	"github.com/Masaki-Miyazawa/erp/internal/domain/order"
	"github.com/Masaki-Miyazawa/erp/internal/domain/product"
	v1 "github.com/Masaki-Miyazawa/erp/internal/infrastructure/http/v1"
	"github.com/Masaki-Miyazawa/erp/internal/sequence"
	"github.com/Masaki-Miyazawa/erp/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	backend := getEnv("DOCSTORE_BACKEND", "memory")
	log.Infow("starting erp server", "docstore", backend)

	store, err := newStore(ctx, backend)
	if err != nil {
		log.Fatalw("failed to initialize document store", "backend", backend, "error", err)
	}
	defer store.Close()

	allocator := sequence.New(store, getEnvInt("SEQUENCE_MAX_ATTEMPTS", sequence.DefaultMaxAttempts))

	customerService := customer.NewService(store, allocator)
	orderService := order.NewService(store, allocator, customerService)
	productService := product.NewService(store)

	router := v1.NewRouter(v1.RouterConfig{
		Logger:    log,
		Store:     store,
		Orders:    orderService,
		Customers: customerService,
		Products:  productService,
	})

	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("forced shutdown", "error", err)
	}
	log.Info("server stopped")
}

// newStore builds the document store selected by DOCSTORE_BACKEND.
func newStore(ctx context.Context, backend string) (docstore.Store, error) {
	switch backend {
	case "memory":
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

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}
