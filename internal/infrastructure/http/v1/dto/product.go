package dto

import (
	"github.com/Masaki-Miyazawa/erp/internal/core/types"
	"github.com/Masaki-Miyazawa/erp/internal/domain/product"
)

// ProductResponse mirrors a catalog entry.
type ProductResponse struct {
	ProductID   string      `json:"productId"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Price       types.Money `json:"price"`
	Categories  []string    `json:"categories,omitempty"`
	Stock       int64       `json:"stock"`
}

// FromProduct maps a domain product to its response shape.
func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		ProductID:   p.ProductID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Categories:  p.Categories,
		Stock:       p.Stock,
	}
}

// FromProducts maps a product list.
func FromProducts(products []product.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = FromProduct(&products[i])
	}
	return out
}
