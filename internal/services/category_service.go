package services

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/repos"
	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type CategoryService interface {
	ListCategories(ctx context.Context, tx *gorm.DB) ([]*northwind.Category, error)
	// GetCategory returns the category with its products.
	GetCategory(ctx context.Context, tx *gorm.DB, categoryID int) (*northwind.Category, error)
}

type categoryService struct {
	db           *gorm.DB
	log          *logger.Logger
	categoryRepo repos.CategoryRepo
}

func NewCategoryService(db *gorm.DB, baseLog *logger.Logger, categoryRepo repos.CategoryRepo) CategoryService {
	serviceLog := baseLog.With("service", "CategoryService")
	return &categoryService{db: db, log: serviceLog, categoryRepo: categoryRepo}
}

func (s *categoryService) ListCategories(ctx context.Context, tx *gorm.DB) ([]*northwind.Category, error) {
	out, err := s.categoryRepo.List(ctx, tx)
	if err != nil {
		s.log.Error("ListCategories failed", "error", err)
		return nil, err
	}
	return out, nil
}

func (s *categoryService) GetCategory(ctx context.Context, tx *gorm.DB, categoryID int) (*northwind.Category, error) {
	const op = "Northwind.Category.Get"
	if categoryID <= 0 {
		return nil, invalid(op, "category id must be positive")
	}
	c, err := s.categoryRepo.GetWithProducts(ctx, tx, categoryID)
	if err != nil {
		return nil, lookupError(op, "Category", strconv.Itoa(categoryID), err)
	}
	return c, nil
}
