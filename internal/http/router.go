package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/northwind-slim-backend/internal/http/handlers"
	httpMW "github.com/yungbote/northwind-slim-backend/internal/http/middleware"
	"github.com/yungbote/northwind-slim-backend/internal/observability"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AllowedOrigins []string
	ServiceName    string

	AuthMiddleware *httpMW.AuthMiddleware

	CustomerHandler *httpH.CustomerHandler
	CategoryHandler *httpH.CategoryHandler
	ProductHandler  *httpH.ProductHandler
	OrderHandler    *httpH.OrderHandler
	ChangeHandler   *httpH.ChangeHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		if cfg.CustomerHandler != nil {
			api.GET("/customers", cfg.CustomerHandler.ListCustomers)
			api.GET("/customers/:id", cfg.CustomerHandler.GetCustomer)
		}
		if cfg.OrderHandler != nil {
			api.GET("/customers/:id/orders", cfg.OrderHandler.ListCustomerOrders)
			api.GET("/orders", cfg.OrderHandler.ListOrders)
			api.GET("/orders/:id", cfg.OrderHandler.GetOrder)
		}
		if cfg.CategoryHandler != nil {
			api.GET("/categories", cfg.CategoryHandler.ListCategories)
			api.GET("/categories/:id", cfg.CategoryHandler.GetCategory)
		}
		if cfg.ProductHandler != nil {
			api.GET("/products", cfg.ProductHandler.ListProducts)
			api.GET("/products/:id", cfg.ProductHandler.GetProduct)
		}
		if cfg.ChangeHandler != nil {
			api.GET("/changes", cfg.ChangeHandler.ListChanges)
		}
	}

	// Writes
	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.ProductHandler != nil {
			protected.POST("/products", cfg.ProductHandler.CreateProduct)
			protected.PUT("/products", cfg.ProductHandler.UpdateProduct)
			protected.DELETE("/products/:id", cfg.ProductHandler.DeleteProduct)
		}
		if cfg.OrderHandler != nil {
			protected.POST("/orders", cfg.OrderHandler.CreateOrder)
			protected.PUT("/orders", cfg.OrderHandler.UpdateOrder)
			protected.DELETE("/orders/:id", cfg.OrderHandler.DeleteOrder)
		}
	}

	return r
}
