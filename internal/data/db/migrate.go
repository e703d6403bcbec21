package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/changes"
	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
)

// Models lists every persisted type, parents before children.
func Models() []any {
	return []any{
		&northwind.Category{},
		&northwind.Customer{},
		&northwind.Product{},
		&northwind.Order{},
		&northwind.OrderDetail{},
		&changes.LogEntry{},
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
