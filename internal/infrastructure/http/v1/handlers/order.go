package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Masaki-Miyazawa/erp/internal/domain/order"
	"github.com/Masaki-Miyazawa/erp/internal/infrastructure/http/v1/dto"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	*BaseHandler
	service *order.Service
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service *order.Service) *OrderHandler {
	return &OrderHandler{BaseHandler: base, service: service}
}

// Submit handles POST /orders.
func (h *OrderHandler) Submit(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ord, err := h.service.Submit(c.Request.Context(), req.CustomerID, req.ToInputs())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromOrder(ord))
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	ord, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromOrder(ord))
}

// List handles GET /orders.
func (h *OrderHandler) List(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 50)
	orders, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromOrders(orders))
}
