// Package product provides read access to the product catalog. Products
// are reference data loaded by the seed tool; the order form looks them up
// for current unit prices.
package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Masaki-Miyazawa/erp/internal/core/apperror"
	"github.com/Masaki-Miyazawa/erp/internal/core/types"
	"github.com/Masaki-Miyazawa/erp/internal/docstore"
)

const collection = "products"

// Path returns the document path for a product ID.
func Path(id string) string {
	return docstore.Join(collection, id)
}

// Product describes a catalog entry.
type Product struct {
	ProductID   string      `json:"productId"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Price       types.Money `json:"price"`
	Categories  []string    `json:"categories,omitempty"`
	Stock       int64       `json:"stock"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Service provides product lookups.
type Service struct {
	store docstore.Store
}

// NewService creates the product service.
func NewService(store docstore.Store) *Service {
	return &Service{store: store}
}

// Get retrieves a product by ID.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := s.store.Get(ctx, Path(id), &p); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, apperror.NewNotFound("product", id)
		}
		return nil, apperror.NewInternal(err)
	}
	return &p, nil
}

// List returns the catalog sorted by product ID.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	products := make([]Product, 0)
	err := s.store.List(ctx, collection, func(path string, data []byte) error {
		var p Product
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		products = append(products, p)
		return nil
	})
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].ProductID < products[j].ProductID
	})
	return products, nil
}

// Save writes a product record. Used by the seed tool; product IDs come
// from the fixture data, not the allocator.
func (s *Service) Save(ctx context.Context, p *Product) error {
	if p.ProductID == "" {
		return apperror.NewInvalidInput("product id is required").
			WithDetail("field", "productId")
	}
	if p.Name == "" {
		return apperror.NewInvalidInput("product name is required").
			WithDetail("field", "name")
	}
	if err := s.store.Put(ctx, Path(p.ProductID), p); err != nil {
		return apperror.NewInternal(fmt.Errorf("save product %s: %w", p.ProductID, err))
	}
	return nil
}
