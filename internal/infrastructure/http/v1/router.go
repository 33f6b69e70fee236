// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/Masaki-Miyazawa/erp/internal/docstore"
	"github.com/Masaki-Miyazawa/erp/internal/domain/customer"
	"github.com/Masaki-Miyazawa/erp/internal/domain/order"
	"github.com/Masaki-Miyazawa/erp/internal/domain/product"
	"github.com/Masaki-Miyazawa/erp/internal/infrastructure/http/v1/handlers"
	"github.com/Masaki-Miyazawa/erp/internal/infrastructure/http/v1/middleware"
	"github.com/Masaki-Miyazawa/erp/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Store backs the readiness probe
	Store docstore.Store

	Orders    *order.Service
	Customers *customer.Service
	Products  *product.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Store)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	base := handlers.NewBaseHandler()
	orderHandler := handlers.NewOrderHandler(base, cfg.Orders)
	customerHandler := handlers.NewCustomerHandler(base, cfg.Customers)
	productHandler := handlers.NewProductHandler(base, cfg.Products)

	api := router.Group("/api/v1")
	{
		orders := api.Group("/orders")
		{
			orders.POST("", orderHandler.Submit)
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
		}

		customers := api.Group("/customers")
		{
			customers.POST("", customerHandler.Create)
			customers.GET("", customerHandler.List)
			customers.GET("/:id", customerHandler.Get)
			customers.PATCH("/:id", customerHandler.Update)
		}

		products := api.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
		}
	}

	return router
}
