package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type ProductRepo interface {
	List(ctx context.Context, tx *gorm.DB) ([]*northwind.Product, error)
	GetByID(ctx context.Context, tx *gorm.DB, productID int) (*northwind.Product, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, productIDs []int) ([]*northwind.Product, error)
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	repoLog := baseLog.With("repo", "ProductRepo")
	return &productRepo{db: db, log: repoLog}
}

// List returns every product ordered by name, each with its category.
func (r *productRepo) List(ctx context.Context, tx *gorm.DB) ([]*northwind.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*northwind.Product{}
	if err := transaction.WithContext(ctx).
		Preload("Category").
		Order("product_name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	shareCategories(results)
	return results, nil
}

// GetByID returns gorm.ErrRecordNotFound when the product is absent.
func (r *productRepo) GetByID(ctx context.Context, tx *gorm.DB, productID int) (*northwind.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var out northwind.Product
	if err := transaction.WithContext(ctx).
		Preload("Category").
		Where("product_id = ?", productID).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *productRepo) GetByIDs(ctx context.Context, tx *gorm.DB, productIDs []int) ([]*northwind.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*northwind.Product{}
	if len(productIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Preload("Category").
		Where("product_id IN ?", productIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	shareCategories(results)
	return results, nil
}

// shareCategories makes products of the same category point at one
// instance and lists them in that category's Products, so encoded graphs
// carry each category once.
func shareCategories(products []*northwind.Product) {
	byID := make(map[int]*northwind.Category)
	for _, p := range products {
		if p.Category == nil {
			continue
		}
		c, ok := byID[p.Category.CategoryID]
		if !ok {
			c = p.Category
			c.Products = []*northwind.Product{}
			byID[c.CategoryID] = c
		}
		p.Category = c
		c.Products = append(c.Products, p)
	}
}
