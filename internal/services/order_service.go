package services

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/repos"
	domainagg "github.com/yungbote/northwind-slim-backend/internal/domain/aggregates"
	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type OrderService interface {
	ListOrders(ctx context.Context, tx *gorm.DB) ([]*northwind.Order, error)
	ListCustomerOrders(ctx context.Context, tx *gorm.DB, customerID string) ([]*northwind.Order, error)
	// GetOrder returns the order with customer, details and products.
	GetOrder(ctx context.Context, tx *gorm.DB, orderID int) (*northwind.Order, error)
	CreateOrder(ctx context.Context, o *northwind.Order) (*northwind.Order, error)
	// UpdateOrder applies a graph with mixed states: the order itself may be
	// Unchanged or Modified while its details are added, modified or deleted.
	UpdateOrder(ctx context.Context, o *northwind.Order) (*northwind.Order, error)
	DeleteOrder(ctx context.Context, orderID int) error
}

type orderService struct {
	db           *gorm.DB
	log          *logger.Logger
	orderRepo    repos.OrderRepo
	customerRepo repos.CustomerRepo
	productRepo  repos.ProductRepo
	graphCommitter
}

func NewOrderService(
	db *gorm.DB,
	baseLog *logger.Logger,
	orderRepo repos.OrderRepo,
	customerRepo repos.CustomerRepo,
	productRepo repos.ProductRepo,
	graph domainagg.GraphAggregate,
	notifier ChangeNotifier,
) OrderService {
	serviceLog := baseLog.With("service", "OrderService")
	return &orderService{
		db:             db,
		log:            serviceLog,
		orderRepo:      orderRepo,
		customerRepo:   customerRepo,
		productRepo:    productRepo,
		graphCommitter: graphCommitter{graph: graph, notifier: notifier},
	}
}

func (s *orderService) ListOrders(ctx context.Context, tx *gorm.DB) ([]*northwind.Order, error) {
	out, err := s.orderRepo.List(ctx, tx)
	if err != nil {
		s.log.Error("ListOrders failed", "error", err)
		return nil, err
	}
	return out, nil
}

func (s *orderService) ListCustomerOrders(ctx context.Context, tx *gorm.DB, customerID string) ([]*northwind.Order, error) {
	const op = "Northwind.Order.ListByCustomer"
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, invalid(op, "customer id is required")
	}
	out, err := s.orderRepo.ListByCustomer(ctx, tx, customerID)
	if err != nil {
		s.log.Error("ListCustomerOrders failed", "customer_id", customerID, "error", err)
		return nil, err
	}
	return out, nil
}

func (s *orderService) GetOrder(ctx context.Context, tx *gorm.DB, orderID int) (*northwind.Order, error) {
	const op = "Northwind.Order.Get"
	if orderID <= 0 {
		return nil, invalid(op, "order id must be positive")
	}
	o, err := s.orderRepo.GetByID(ctx, tx, orderID)
	if err != nil {
		return nil, lookupError(op, "Order", strconv.Itoa(orderID), err)
	}
	return o, nil
}

func (s *orderService) CreateOrder(ctx context.Context, o *northwind.Order) (*northwind.Order, error) {
	const op = "Northwind.Order.Create"
	if o == nil {
		return nil, invalid(op, "order is required")
	}
	if o.OrderID != 0 {
		return nil, invalid(op, "new orders must not carry an order id")
	}
	o.InitDefaults()
	o.MarkAdded()
	for _, d := range o.OrderDetails {
		if d == nil {
			continue
		}
		switch d.TrackingState {
		case tracking.Unchanged, tracking.Modified:
			d.MarkAdded()
		case tracking.Deleted:
			return nil, invalid(op, "a new order cannot delete details")
		}
	}
	if _, err := s.commit(ctx, op, o); err != nil {
		return nil, err
	}
	if err := s.loadRelated(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, o *northwind.Order) (*northwind.Order, error) {
	const op = "Northwind.Order.Update"
	if o == nil {
		return nil, invalid(op, "order is required")
	}
	if o.OrderID <= 0 {
		return nil, invalid(op, "order id must be positive")
	}
	o.InitDefaults()
	switch o.TrackingState {
	case tracking.Added, tracking.Deleted:
		return nil, invalid(op, "order update must be Unchanged or Modified, got "+o.TrackingState.String())
	}
	if _, err := s.commit(ctx, op, o); err != nil {
		return nil, err
	}
	if err := s.loadRelated(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID int) error {
	const op = "Northwind.Order.Delete"
	o, err := s.GetOrder(ctx, nil, orderID)
	if err != nil {
		return err
	}
	o.MarkDeleted()
	for _, d := range o.OrderDetails {
		d.MarkDeleted()
	}
	_, err = s.commit(ctx, op, o)
	return err
}

// loadRelated fills customer and product references the client left out,
// in place, so the returned graph keeps the client's own instances.
func (s *orderService) loadRelated(ctx context.Context, o *northwind.Order) error {
	if o.Customer == nil && o.CustomerID != nil {
		found, err := s.customerRepo.GetByIDs(ctx, nil, []string{*o.CustomerID})
		if err != nil {
			return err
		}
		if len(found) > 0 {
			o.Customer = found[0]
			o.Customer.Orders = append(o.Customer.Orders, o)
		}
	}

	var missing []int
	for _, d := range o.OrderDetails {
		if d == nil {
			continue
		}
		d.Order = o
		if d.Product == nil && d.ProductID != 0 {
			missing = append(missing, d.ProductID)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	products, err := s.productRepo.GetByIDs(ctx, nil, missing)
	if err != nil {
		return err
	}
	byID := make(map[int]*northwind.Product, len(products))
	for _, p := range products {
		byID[p.ProductID] = p
	}
	for _, d := range o.OrderDetails {
		if d != nil && d.Product == nil {
			d.Product = byID[d.ProductID]
		}
	}
	return nil
}
