package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/repos/audit"
	"github.com/yungbote/northwind-slim-backend/internal/data/repos/catalog"
	"github.com/yungbote/northwind-slim-backend/internal/data/repos/entitystore"
	"github.com/yungbote/northwind-slim-backend/internal/data/repos/sales"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type CategoryRepo = catalog.CategoryRepo
type ProductRepo = catalog.ProductRepo

type CustomerRepo = sales.CustomerRepo
type OrderRepo = sales.OrderRepo
type OrderDetailRepo = sales.OrderDetailRepo

type ChangeLogRepo = audit.ChangeLogRepo
type ChangeLogFilter = audit.ChangeLogFilter

type EntityStore = entitystore.EntityStore

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return catalog.NewCategoryRepo(db, baseLog)
}
func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return catalog.NewProductRepo(db, baseLog)
}

func NewCustomerRepo(db *gorm.DB, baseLog *logger.Logger) CustomerRepo {
	return sales.NewCustomerRepo(db, baseLog)
}
func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	return sales.NewOrderRepo(db, baseLog)
}
func NewOrderDetailRepo(db *gorm.DB, baseLog *logger.Logger) OrderDetailRepo {
	return sales.NewOrderDetailRepo(db, baseLog)
}

func NewChangeLogRepo(db *gorm.DB, baseLog *logger.Logger) ChangeLogRepo {
	return audit.NewChangeLogRepo(db, baseLog)
}

func NewEntityStore(db *gorm.DB, baseLog *logger.Logger) EntityStore {
	return entitystore.NewEntityStore(db, baseLog)
}
