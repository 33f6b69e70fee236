// Package order provides the sales order aggregate: an order header that
// owns its line items. The aggregate is created once at submission and is
// immutable afterwards.
package order

import (
	"time"

	"github.com/Masaki-Miyazawa/erp/internal/core/apperror"
	"github.com/Masaki-Miyazawa/erp/internal/core/types"
)

// Order is the order header. Items are persisted as owned child documents
// and are excluded from the header document itself.
type Order struct {
	// OrderID is the allocator-issued identifier, "<year>-<count padded to 8>"
	OrderID string `json:"orderId"`

	// CustomerID references the customer that placed the order
	CustomerID string `json:"customerId"`

	// OrderDate is assigned at submission time
	OrderDate time.Time `json:"orderDate"`

	// TotalAmount equals the sum of all item subtotals
	TotalAmount types.Money `json:"totalAmount"`

	// Items is the owned line collection (loaded separately)
	Items []Item `json:"-"`
}

// Item is a single order line. Subtotal is computed server-side from price
// and quantity, never trusted from caller input.
type Item struct {
	// ItemID is the 1-based position within the order, as a string
	ItemID string `json:"itemId"`

	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	Price     types.Money `json:"price"`
	Quantity  int64       `json:"quantity"`
	Subtotal  types.Money `json:"subtotal"`
}

// ItemInput is a caller-supplied order line. Subtotals are not accepted
// from callers.
type ItemInput struct {
	ProductID string
	Name      string
	UnitPrice types.Money
	Quantity  int64
}

// validateSubmit checks the Submit preconditions. A violation means no
// store interaction has happened yet.
func validateSubmit(customerID string, items []ItemInput) error {
	if customerID == "" {
		return apperror.NewInvalidInput("customer is required").
			WithDetail("field", "customerId")
	}
	if len(items) == 0 {
		return apperror.NewInvalidInput("at least one item is required").
			WithDetail("field", "items")
	}
	for i, item := range items {
		if item.ProductID == "" {
			return apperror.NewInvalidInput("product is required").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if item.Quantity <= 0 {
			return apperror.NewInvalidInput("quantity must be positive").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return apperror.NewInvalidInput("unit price must not be negative").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}
