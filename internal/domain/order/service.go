package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Masaki-Miyazawa/erp/internal/core/apperror"
	"github.com/Masaki-Miyazawa/erp/internal/core/types"
	"github.com/Masaki-Miyazawa/erp/internal/docstore"
	"github.com/Masaki-Miyazawa/erp/internal/sequence"
	"github.com/Masaki-Miyazawa/erp/pkg/logger"
)

const (
	collection      = "orders"
	itemsCollection = "orderItems"

	// sequenceKey names the order-number sequence, scoped by calendar year.
	sequenceKey = "orders"
)

func headerPath(orderID string) string {
	return docstore.Join(collection, orderID)
}

func itemPath(orderID string, lineNo int) string {
	return docstore.Join(collection, orderID, itemsCollection, strconv.Itoa(lineNo))
}

func itemsPrefix(orderID string) string {
	return docstore.Join(collection, orderID, itemsCollection)
}

// CustomerDirectory answers whether a referenced customer exists.
// Implemented by the customer service.
type CustomerDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Service orchestrates order submission: validate, compute totals, obtain
// an identifier from the allocator, persist the aggregate.
type Service struct {
	store     docstore.Store
	allocator *sequence.Allocator
	customers CustomerDirectory

	// now is swapped in tests to pin the year scope
	now func() time.Time
}

// NewService creates the order service.
func NewService(store docstore.Store, allocator *sequence.Allocator, customers CustomerDirectory) *Service {
	return &Service{
		store:     store,
		allocator: allocator,
		customers: customers,
		now:       time.Now,
	}
}

// Submit creates an order aggregate for the customer.
//
// Preconditions are checked before any store interaction; subtotals and the
// order total are computed here from unit price and quantity. The order
// number is allocated first, then the header and every line are committed
// as a single transactional batch so no observer can see a header without
// its items.
//
// An allocation failure means nothing was written and the operation may be
// retried freely. A persist failure means the allocated number is burned:
// resubmission consumes a fresh identifier, never reusing the failed one.
func (s *Service) Submit(ctx context.Context, customerID string, inputs []ItemInput) (*Order, error) {
	if err := validateSubmit(customerID, inputs); err != nil {
		return nil, err
	}

	exists, err := s.customers.Exists(ctx, customerID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("check customer: %w", err))
	}
	if !exists {
		return nil, apperror.NewNotFound("customer", customerID)
	}

	items := make([]Item, len(inputs))
	total := types.Zero()
	for i, in := range inputs {
		subtotal := in.UnitPrice.Mul(decimal.NewFromInt(in.Quantity))
		items[i] = Item{
			ItemID:    strconv.Itoa(i + 1),
			ProductID: in.ProductID,
			Name:      in.Name,
			Price:     in.UnitPrice,
			Quantity:  in.Quantity,
			Subtotal:  subtotal,
		}
		total = total.Add(subtotal)
	}

	now := s.now()
	orderID, err := s.allocator.Next(ctx, sequenceKey, sequence.YearScope(now))
	if err != nil {
		// No writes attempted: the number was never consumed.
		return nil, err
	}

	ord := &Order{
		OrderID:     orderID,
		CustomerID:  customerID,
		OrderDate:   now,
		TotalAmount: total,
		Items:       items,
	}

	err = s.store.Transact(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Set(headerPath(orderID), ord); err != nil {
			return err
		}
		for i, item := range items {
			if err := tx.Set(itemPath(orderID, i+1), item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error(ctx, "order aggregate write failed",
			"order_id", orderID,
			"error", err)
		return nil, apperror.NewPersistFailure("order", orderID).WithCause(err)
	}

	logger.Info(ctx, "order submitted",
		"order_id", orderID,
		"customer_id", customerID,
		"total_amount", total.String(),
		"items", len(items))

	return ord, nil
}

// Get retrieves an order header with its items.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	var ord Order
	if err := s.store.Get(ctx, headerPath(orderID), &ord); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, apperror.NewNotFound("order", orderID)
		}
		return nil, apperror.NewInternal(err)
	}

	err := s.store.List(ctx, itemsPrefix(orderID), func(path string, data []byte) error {
		var item Item
		if err := json.Unmarshal(data, &item); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		ord.Items = append(ord.Items, item)
		return nil
	})
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	// Item IDs are positional; store listing order is lexicographic.
	sort.Slice(ord.Items, func(i, j int) bool {
		a, _ := strconv.Atoi(ord.Items[i].ItemID)
		b, _ := strconv.Atoi(ord.Items[j].ItemID)
		return a < b
	})

	return &ord, nil
}

// List retrieves order headers, newest identifier first. limit <= 0 means
// no limit.
func (s *Service) List(ctx context.Context, limit int) ([]Order, error) {
	orders := make([]Order, 0)
	err := s.store.List(ctx, collection, func(path string, data []byte) error {
		var ord Order
		if err := json.Unmarshal(data, &ord); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		orders = append(orders, ord)
		return nil
	})
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].OrderID > orders[j].OrderID
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}
