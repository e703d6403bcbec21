package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/repos"
	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type CustomerService interface {
	ListCustomers(ctx context.Context, tx *gorm.DB) ([]*northwind.Customer, error)
	// GetCustomer returns the customer with its orders.
	GetCustomer(ctx context.Context, tx *gorm.DB, customerID string) (*northwind.Customer, error)
}

type customerService struct {
	db           *gorm.DB
	log          *logger.Logger
	customerRepo repos.CustomerRepo
}

func NewCustomerService(db *gorm.DB, baseLog *logger.Logger, customerRepo repos.CustomerRepo) CustomerService {
	serviceLog := baseLog.With("service", "CustomerService")
	return &customerService{db: db, log: serviceLog, customerRepo: customerRepo}
}

func (s *customerService) ListCustomers(ctx context.Context, tx *gorm.DB) ([]*northwind.Customer, error) {
	out, err := s.customerRepo.List(ctx, tx)
	if err != nil {
		s.log.Error("ListCustomers failed", "error", err)
		return nil, err
	}
	return out, nil
}

func (s *customerService) GetCustomer(ctx context.Context, tx *gorm.DB, customerID string) (*northwind.Customer, error) {
	const op = "Northwind.Customer.Get"
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, invalid(op, "customer id is required")
	}
	c, err := s.customerRepo.GetWithOrders(ctx, tx, customerID)
	if err != nil {
		return nil, lookupError(op, "Customer", customerID, err)
	}
	return c, nil
}
