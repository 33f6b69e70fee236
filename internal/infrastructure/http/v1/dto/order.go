// Package dto defines the JSON shapes of API v1.
package dto

import (
	"time"

	"github.com/Masaki-Miyazawa/erp/internal/core/types"
	"github.com/Masaki-Miyazawa/erp/internal/domain/order"
)

// CreateOrderRequest is the order submission payload. Subtotals and totals
// are never accepted from the client.
type CreateOrderRequest struct {
	CustomerID string            `json:"customerId"`
	Items      []CreateOrderItem `json:"items"`
}

// CreateOrderItem is a single requested line.
type CreateOrderItem struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	UnitPrice types.Money `json:"unitPrice"`
	Quantity  int64       `json:"quantity"`
}

// ToInputs maps the request lines to the domain input type.
func (r CreateOrderRequest) ToInputs() []order.ItemInput {
	inputs := make([]order.ItemInput, len(r.Items))
	for i, item := range r.Items {
		inputs[i] = order.ItemInput{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	return inputs
}

// OrderItemResponse mirrors a persisted order line.
type OrderItemResponse struct {
	ItemID    string      `json:"itemId"`
	ProductID string      `json:"productId"`
	Name      string      `json:"name,omitempty"`
	Price     types.Money `json:"price"`
	Quantity  int64       `json:"quantity"`
	Subtotal  types.Money `json:"subtotal"`
}

// OrderResponse mirrors an order header with its lines.
type OrderResponse struct {
	OrderID     string              `json:"orderId"`
	CustomerID  string              `json:"customerId"`
	OrderDate   time.Time           `json:"orderDate"`
	TotalAmount types.Money         `json:"totalAmount"`
	Items       []OrderItemResponse `json:"items,omitempty"`
}

// FromOrder maps a domain order to its response shape.
func FromOrder(o *order.Order) OrderResponse {
	resp := OrderResponse{
		OrderID:     o.OrderID,
		CustomerID:  o.CustomerID,
		OrderDate:   o.OrderDate,
		TotalAmount: o.TotalAmount,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ItemID:    item.ItemID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		})
	}
	return resp
}

// FromOrders maps order headers (no lines) for list responses.
func FromOrders(orders []order.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = FromOrder(&orders[i])
	}
	return out
}
