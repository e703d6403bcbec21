package services

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/repos"
	domainagg "github.com/yungbote/northwind-slim-backend/internal/domain/aggregates"
	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type ProductService interface {
	// ListProducts returns products ordered by name with categories loaded.
	ListProducts(ctx context.Context, tx *gorm.DB) ([]*northwind.Product, error)
	GetProduct(ctx context.Context, tx *gorm.DB, productID int) (*northwind.Product, error)
	CreateProduct(ctx context.Context, p *northwind.Product) (*northwind.Product, error)
	// UpdateProduct writes the product's modified properties (all when none
	// are listed) guarded by its row version.
	UpdateProduct(ctx context.Context, p *northwind.Product) (*northwind.Product, error)
	DeleteProduct(ctx context.Context, productID int, rowVersion []byte) error
}

type productService struct {
	db           *gorm.DB
	log          *logger.Logger
	productRepo  repos.ProductRepo
	categoryRepo repos.CategoryRepo
	graphCommitter
}

func NewProductService(
	db *gorm.DB,
	baseLog *logger.Logger,
	productRepo repos.ProductRepo,
	categoryRepo repos.CategoryRepo,
	graph domainagg.GraphAggregate,
	notifier ChangeNotifier,
) ProductService {
	serviceLog := baseLog.With("service", "ProductService")
	return &productService{
		db:             db,
		log:            serviceLog,
		productRepo:    productRepo,
		categoryRepo:   categoryRepo,
		graphCommitter: graphCommitter{graph: graph, notifier: notifier},
	}
}

func (s *productService) ListProducts(ctx context.Context, tx *gorm.DB) ([]*northwind.Product, error) {
	out, err := s.productRepo.List(ctx, tx)
	if err != nil {
		s.log.Error("ListProducts failed", "error", err)
		return nil, err
	}
	return out, nil
}

func (s *productService) GetProduct(ctx context.Context, tx *gorm.DB, productID int) (*northwind.Product, error) {
	const op = "Northwind.Product.Get"
	if productID <= 0 {
		return nil, invalid(op, "product id must be positive")
	}
	p, err := s.productRepo.GetByID(ctx, tx, productID)
	if err != nil {
		return nil, lookupError(op, "Product", strconv.Itoa(productID), err)
	}
	return p, nil
}

func (s *productService) CreateProduct(ctx context.Context, p *northwind.Product) (*northwind.Product, error) {
	const op = "Northwind.Product.Create"
	if p == nil {
		return nil, invalid(op, "product is required")
	}
	if p.ProductID != 0 {
		return nil, invalid(op, "new products must not carry a product id")
	}
	p.InitDefaults()
	p.MarkAdded()
	if _, err := s.commit(ctx, op, p); err != nil {
		return nil, err
	}
	if err := s.attachCategory(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productService) UpdateProduct(ctx context.Context, p *northwind.Product) (*northwind.Product, error) {
	const op = "Northwind.Product.Update"
	if p == nil {
		return nil, invalid(op, "product is required")
	}
	if p.ProductID <= 0 {
		return nil, invalid(op, "product id must be positive")
	}
	p.InitDefaults()
	switch p.TrackingState {
	case tracking.Unchanged:
		p.MarkModified()
	case tracking.Added, tracking.Deleted:
		return nil, invalid(op, "product update must be Modified, got "+p.TrackingState.String())
	}
	if _, err := s.commit(ctx, op, p); err != nil {
		return nil, err
	}
	if err := s.attachCategory(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productService) DeleteProduct(ctx context.Context, productID int, rowVersion []byte) error {
	const op = "Northwind.Product.Delete"
	if productID <= 0 {
		return invalid(op, "product id must be positive")
	}
	p := northwind.NewProduct()
	p.ProductID = productID
	p.RowVersion = rowVersion
	p.MarkDeleted()
	_, err := s.commit(ctx, op, p)
	return err
}

// attachCategory loads the referenced category in place so the response
// carries it without replacing the client's instances.
func (s *productService) attachCategory(ctx context.Context, p *northwind.Product) error {
	if p.CategoryID == nil || (p.Category != nil && p.Category.CategoryID == *p.CategoryID) {
		return nil
	}
	cats, err := s.categoryRepo.GetByIDs(ctx, nil, []int{*p.CategoryID})
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return nil
	}
	p.Category = cats[0]
	p.Category.Products = append(p.Category.Products, p)
	return nil
}
