package sales

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type OrderRepo interface {
	List(ctx context.Context, tx *gorm.DB) ([]*northwind.Order, error)
	ListByCustomer(ctx context.Context, tx *gorm.DB, customerID string) ([]*northwind.Order, error)
	GetByID(ctx context.Context, tx *gorm.DB, orderID int) (*northwind.Order, error)
	Exists(ctx context.Context, tx *gorm.DB, orderID int) (bool, error)
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	repoLog := baseLog.With("repo", "OrderRepo")
	return &orderRepo{db: db, log: repoLog}
}

// withGraph loads the customer plus details with their products.
func withGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer").
		Preload("OrderDetails", func(db *gorm.DB) *gorm.DB { return db.Order("order_detail_id ASC") }).
		Preload("OrderDetails.Product")
}

func (r *orderRepo) List(ctx context.Context, tx *gorm.DB) ([]*northwind.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*northwind.Order{}
	if err := withGraph(transaction.WithContext(ctx)).
		Order("order_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	LinkOrders(results...)
	return results, nil
}

func (r *orderRepo) ListByCustomer(ctx context.Context, tx *gorm.DB, customerID string) ([]*northwind.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*northwind.Order{}
	if err := withGraph(transaction.WithContext(ctx)).
		Where("customer_id = ?", customerID).
		Order("order_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	LinkOrders(results...)
	return results, nil
}

// GetByID returns gorm.ErrRecordNotFound when the order is absent.
func (r *orderRepo) GetByID(ctx context.Context, tx *gorm.DB, orderID int) (*northwind.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var out northwind.Order
	if err := withGraph(transaction.WithContext(ctx)).
		Where("order_id = ?", orderID).
		First(&out).Error; err != nil {
		return nil, err
	}
	LinkOrders(&out)
	return &out, nil
}

func (r *orderRepo) Exists(ctx context.Context, tx *gorm.DB, orderID int) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&northwind.Order{}).
		Where("order_id = ?", orderID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LinkOrders fills the back references that preloading leaves empty: each
// detail points at its order, and each order is listed in its customer's
// Orders. Customers and products shared between orders become one instance.
func LinkOrders(orders ...*northwind.Order) {
	customers := make(map[string]*northwind.Customer)
	products := make(map[int]*northwind.Product)
	for _, o := range orders {
		if o == nil {
			continue
		}
		if o.Customer != nil {
			c, ok := customers[o.Customer.CustomerID]
			if !ok {
				c = o.Customer
				c.Orders = []*northwind.Order{}
				customers[c.CustomerID] = c
			}
			o.Customer = c
			c.Orders = append(c.Orders, o)
		}
		for _, d := range o.OrderDetails {
			d.Order = o
			if d.Product == nil {
				continue
			}
			if p, ok := products[d.Product.ProductID]; ok {
				d.Product = p
			} else {
				products[d.Product.ProductID] = d.Product
			}
		}
	}
}
