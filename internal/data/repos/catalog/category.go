package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type CategoryRepo interface {
	List(ctx context.Context, tx *gorm.DB) ([]*northwind.Category, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, categoryIDs []int) ([]*northwind.Category, error)
	GetWithProducts(ctx context.Context, tx *gorm.DB, categoryID int) (*northwind.Category, error)
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	repoLog := baseLog.With("repo", "CategoryRepo")
	return &categoryRepo{db: db, log: repoLog}
}

func (r *categoryRepo) List(ctx context.Context, tx *gorm.DB) ([]*northwind.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*northwind.Category{}
	if err := transaction.WithContext(ctx).
		Order("category_name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *categoryRepo) GetByIDs(ctx context.Context, tx *gorm.DB, categoryIDs []int) ([]*northwind.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*northwind.Category{}
	if len(categoryIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("category_id IN ?", categoryIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetWithProducts returns gorm.ErrRecordNotFound when the category is absent.
func (r *categoryRepo) GetWithProducts(ctx context.Context, tx *gorm.DB, categoryID int) (*northwind.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var out northwind.Category
	if err := transaction.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("product_name ASC") }).
		Where("category_id = ?", categoryID).
		First(&out).Error; err != nil {
		return nil, err
	}
	for _, p := range out.Products {
		p.Category = &out
	}
	return &out, nil
}
