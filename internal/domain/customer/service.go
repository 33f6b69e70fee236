package customer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Masaki-Miyazawa/erp/internal/core/apperror"
	"github.com/Masaki-Miyazawa/erp/internal/docstore"
	"github.com/Masaki-Miyazawa/erp/internal/sequence"
	"github.com/Masaki-Miyazawa/erp/pkg/logger"
)

const (
	collection = "customers"

	// sequenceKey names the customer-number sequence. It is unscoped:
	// customer numbers never reset.
	sequenceKey = "customers"
)

// Path returns the document path for a customer ID.
func Path(id string) string {
	return docstore.Join(collection, id)
}

// Service provides customer operations. Create is the sole path for
// minting customer identifiers.
type Service struct {
	store     docstore.Store
	allocator *sequence.Allocator

	now func() time.Time
}

// NewService creates the customer service.
func NewService(store docstore.Store, allocator *sequence.Allocator) *Service {
	return &Service{
		store:     store,
		allocator: allocator,
		now:       time.Now,
	}
}

// Create allocates the next customer number and writes the record keyed by
// it. An allocation failure leaves nothing written; a write failure after
// allocation burns the number, and retrying mints a fresh one.
func (s *Service) Create(ctx context.Context, fields Fields) (*Customer, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	id, err := s.allocator.Next(ctx, sequenceKey, "")
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &Customer{
		ID:        id,
		Name:      fields.Name,
		Email:     fields.Email,
		Phone:     fields.Phone,
		Address:   fields.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Put(ctx, Path(id), c); err != nil {
		logger.Error(ctx, "customer write failed",
			"customer_id", id,
			"error", err)
		return nil, apperror.NewPersistFailure("customer", id).WithCause(err)
	}

	logger.Info(ctx, "customer created", "customer_id", id)
	return c, nil
}

// Get retrieves a customer by ID.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	var c Customer
	if err := s.store.Get(ctx, Path(id), &c); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, apperror.NewNotFound("customer", id)
		}
		return nil, apperror.NewInternal(err)
	}
	return &c, nil
}

// Exists reports whether a customer record exists.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	var raw json.RawMessage
	err := s.store.Get(ctx, Path(id), &raw)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update applies a profile update and bumps updatedAt. Identifiers and
// createdAt never change.
func (s *Service) Update(ctx context.Context, id string, upd ProfileUpdate) (*Customer, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Email != nil {
		c.Email = *upd.Email
	}
	if upd.Phone != nil {
		c.Phone = *upd.Phone
	}
	if upd.Address != nil {
		c.Address = *upd.Address
	}

	if err := (Fields{Name: c.Name, Email: c.Email}).Validate(); err != nil {
		return nil, err
	}

	c.UpdatedAt = s.now()
	if err := s.store.Put(ctx, Path(id), c); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("update customer %s: %w", id, err))
	}
	return c, nil
}

// SearchByName returns customers whose name starts with the query, sorted
// by name. An empty query returns all customers.
func (s *Service) SearchByName(ctx context.Context, query string) ([]Customer, error) {
	matches := make([]Customer, 0)
	err := s.store.List(ctx, collection, func(path string, data []byte) error {
		var c Customer
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if strings.HasPrefix(c.Name, query) {
			matches = append(matches, c)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}
