package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/repos"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type Repos struct {
	Category    repos.CategoryRepo
	Product     repos.ProductRepo
	Customer    repos.CustomerRepo
	Order       repos.OrderRepo
	OrderDetail repos.OrderDetailRepo
	ChangeLog   repos.ChangeLogRepo
	Entities    repos.EntityStore
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Category:    repos.NewCategoryRepo(db, log),
		Product:     repos.NewProductRepo(db, log),
		Customer:    repos.NewCustomerRepo(db, log),
		Order:       repos.NewOrderRepo(db, log),
		OrderDetail: repos.NewOrderDetailRepo(db, log),
		ChangeLog:   repos.NewChangeLogRepo(db, log),
		Entities:    repos.NewEntityStore(db, log),
	}
}
