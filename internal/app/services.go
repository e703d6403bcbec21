package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/northwind-slim-backend/internal/domain/aggregates"
	"github.com/yungbote/northwind-slim-backend/internal/observability"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
	"github.com/yungbote/northwind-slim-backend/internal/services"
)

type Services struct {
	// Storage
	Graph domainagg.GraphAggregate

	// Auth
	Auth services.AuthService

	// Catalog + sales
	Customers  services.CustomerService
	Categories services.CategoryService
	Products   services.ProductService
	Orders     services.OrderService

	// Change tracking
	ChangeLog services.ChangeLogService
	Notifier  services.ChangeNotifier
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	graph := aggregates.NewGraphAggregate(aggregates.GraphAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Entities: repos.Entities,
		Changes:  repos.ChangeLog,
	})
	notifier := services.NewChangeNotifier(log, clients.ChangeBus, metrics)

	return Services{
		Graph:      graph,
		Auth:       services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		Customers:  services.NewCustomerService(db, log, repos.Customer),
		Categories: services.NewCategoryService(db, log, repos.Category),
		Products:   services.NewProductService(db, log, repos.Product, repos.Category, graph, notifier),
		Orders:     services.NewOrderService(db, log, repos.Order, repos.Customer, repos.Product, graph, notifier),
		ChangeLog:  services.NewChangeLogService(db, log, repos.ChangeLog),
		Notifier:   notifier,
	}
}
