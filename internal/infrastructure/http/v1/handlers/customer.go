package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Masaki-Miyazawa/erp/internal/domain/customer"
	"github.com/Masaki-Miyazawa/erp/internal/infrastructure/http/v1/dto"
)

// CustomerHandler handles HTTP requests for customers.
type CustomerHandler struct {
	*BaseHandler
	service *customer.Service
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(base *BaseHandler, service *customer.Service) *CustomerHandler {
	return &CustomerHandler{BaseHandler: base, service: service}
}

// Create handles POST /customers.
func (h *CustomerHandler) Create(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cust, err := h.service.Create(c.Request.Context(), req.ToFields())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromCustomer(cust))
}

// Get handles GET /customers/:id.
func (h *CustomerHandler) Get(c *gin.Context) {
	cust, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromCustomer(cust))
}

// Update handles PATCH /customers/:id.
func (h *CustomerHandler) Update(c *gin.Context) {
	var req dto.UpdateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cust, err := h.service.Update(c.Request.Context(), c.Param("id"), req.ToUpdate())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromCustomer(cust))
}

// List handles GET /customers with an optional ?search= name prefix.
func (h *CustomerHandler) List(c *gin.Context) {
	customers, err := h.service.SearchByName(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromCustomers(customers))
}
