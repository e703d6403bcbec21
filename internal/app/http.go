package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/http"
	httpH "github.com/yungbote/northwind-slim-backend/internal/http/handlers"
	httpMW "github.com/yungbote/northwind-slim-backend/internal/http/middleware"
	"github.com/yungbote/northwind-slim-backend/internal/observability"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Customers  *httpH.CustomerHandler
	Categories *httpH.CategoryHandler
	Products   *httpH.ProductHandler
	Orders     *httpH.OrderHandler
	Changes    *httpH.ChangeHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(db),
		Customers:  httpH.NewCustomerHandler(services.Customers),
		Categories: httpH.NewCategoryHandler(services.Categories),
		Products:   httpH.NewProductHandler(services.Products, metrics),
		Orders:     httpH.NewOrderHandler(services.Orders, metrics),
		Changes:    httpH.NewChangeHandler(services.ChangeLog),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		ServiceName:     observability.DefaultServiceName,
		AuthMiddleware:  middleware.Auth,
		HealthHandler:   handlers.Health,
		CustomerHandler: handlers.Customers,
		CategoryHandler: handlers.Categories,
		ProductHandler:  handlers.Products,
		OrderHandler:    handlers.Orders,
		ChangeHandler:   handlers.Changes,
	})
}
