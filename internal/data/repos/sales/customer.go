package sales

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type CustomerRepo interface {
	List(ctx context.Context, tx *gorm.DB) ([]*northwind.Customer, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, customerIDs []string) ([]*northwind.Customer, error)
	GetWithOrders(ctx context.Context, tx *gorm.DB, customerID string) (*northwind.Customer, error)
}

type customerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCustomerRepo(db *gorm.DB, baseLog *logger.Logger) CustomerRepo {
	repoLog := baseLog.With("repo", "CustomerRepo")
	return &customerRepo{db: db, log: repoLog}
}

func (r *customerRepo) List(ctx context.Context, tx *gorm.DB) ([]*northwind.Customer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*northwind.Customer{}
	if err := transaction.WithContext(ctx).
		Order("company_name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *customerRepo) GetByIDs(ctx context.Context, tx *gorm.DB, customerIDs []string) ([]*northwind.Customer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*northwind.Customer{}
	if len(customerIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("customer_id IN ?", customerIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetWithOrders returns gorm.ErrRecordNotFound when the customer is absent.
func (r *customerRepo) GetWithOrders(ctx context.Context, tx *gorm.DB, customerID string) (*northwind.Customer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var out northwind.Customer
	if err := transaction.WithContext(ctx).
		Preload("Orders", func(db *gorm.DB) *gorm.DB { return db.Order("order_date ASC, order_id ASC") }).
		Where("customer_id = ?", customerID).
		First(&out).Error; err != nil {
		return nil, err
	}
	for _, o := range out.Orders {
		o.Customer = &out
	}
	return &out, nil
}
