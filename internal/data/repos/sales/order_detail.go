package sales

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type OrderDetailRepo interface {
	GetByOrderIDs(ctx context.Context, tx *gorm.DB, orderIDs []int) ([]*northwind.OrderDetail, error)
	CountByOrderIDs(ctx context.Context, tx *gorm.DB, orderIDs []int) (int64, error)
}

type orderDetailRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderDetailRepo(db *gorm.DB, baseLog *logger.Logger) OrderDetailRepo {
	repoLog := baseLog.With("repo", "OrderDetailRepo")
	return &orderDetailRepo{db: db, log: repoLog}
}

func (r *orderDetailRepo) GetByOrderIDs(ctx context.Context, tx *gorm.DB, orderIDs []int) ([]*northwind.OrderDetail, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*northwind.OrderDetail{}
	if len(orderIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Preload("Product").
		Where("order_id IN ?", orderIDs).
		Order("order_detail_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *orderDetailRepo) CountByOrderIDs(ctx context.Context, tx *gorm.DB, orderIDs []int) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if len(orderIDs) == 0 {
		return 0, nil
	}
	if err := transaction.WithContext(ctx).
		Model(&northwind.OrderDetail{}).
		Where("order_id IN ?", orderIDs).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
