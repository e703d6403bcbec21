package db

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Categories []struct {
		ID   int    `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"categories"`
	Customers []struct {
		ID      string `yaml:"id"`
		Company string `yaml:"company"`
		Contact string `yaml:"contact"`
		City    string `yaml:"city"`
		Country string `yaml:"country"`
	} `yaml:"customers"`
	Products []struct {
		ID           int    `yaml:"id"`
		Name         string `yaml:"name"`
		Category     *int   `yaml:"category"`
		UnitPrice    string `yaml:"unitPrice"`
		Discontinued bool   `yaml:"discontinued"`
	} `yaml:"products"`
	Orders []struct {
		ID          int    `yaml:"id"`
		Customer    string `yaml:"customer"`
		OrderDate   string `yaml:"orderDate"`
		ShippedDate string `yaml:"shippedDate"`
		ShipVia     *int   `yaml:"shipVia"`
		Freight     string `yaml:"freight"`
		Details     []struct {
			ID        int     `yaml:"id"`
			Product   int     `yaml:"product"`
			UnitPrice string  `yaml:"unitPrice"`
			Quantity  int16   `yaml:"quantity"`
			Discount  float32 `yaml:"discount"`
		} `yaml:"details"`
	} `yaml:"orders"`
}

// SeedData is the decoded fixture set shipped with the binary.
type SeedData struct {
	Categories   []*northwind.Category
	Customers    []*northwind.Customer
	Products     []*northwind.Product
	Orders       []*northwind.Order
	OrderDetails []*northwind.OrderDetail
}

// LoadSeed parses the embedded fixtures.
func LoadSeed() (*SeedData, error) {
	return parseSeed(seedYAML)
}

func parseSeed(raw []byte) (*SeedData, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	out := &SeedData{}
	for _, c := range f.Categories {
		cat := northwind.NewCategory()
		cat.CategoryID = c.ID
		cat.CategoryName = c.Name
		out.Categories = append(out.Categories, cat)
	}
	for _, c := range f.Customers {
		cust := northwind.NewCustomer()
		cust.CustomerID = c.ID
		cust.CompanyName = c.Company
		cust.ContactName = c.Contact
		cust.City = c.City
		cust.Country = c.Country
		out.Customers = append(out.Customers, cust)
	}
	for _, p := range f.Products {
		prod := northwind.NewProduct()
		prod.ProductID = p.ID
		prod.ProductName = p.Name
		prod.CategoryID = p.Category
		price, err := parseNullDecimal(p.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("product %d unitPrice: %w", p.ID, err)
		}
		prod.UnitPrice = price
		prod.Discontinued = p.Discontinued
		out.Products = append(out.Products, prod)
	}
	for _, o := range f.Orders {
		ord := northwind.NewOrder()
		ord.OrderID = o.ID
		if o.Customer != "" {
			id := o.Customer
			ord.CustomerID = &id
		}
		var err error
		if ord.OrderDate, err = parseDate(o.OrderDate); err != nil {
			return nil, fmt.Errorf("order %d orderDate: %w", o.ID, err)
		}
		if ord.ShippedDate, err = parseDate(o.ShippedDate); err != nil {
			return nil, fmt.Errorf("order %d shippedDate: %w", o.ID, err)
		}
		ord.ShipVia = o.ShipVia
		if ord.Freight, err = parseNullDecimal(o.Freight); err != nil {
			return nil, fmt.Errorf("order %d freight: %w", o.ID, err)
		}
		out.Orders = append(out.Orders, ord)

		for _, d := range o.Details {
			det := northwind.NewOrderDetail()
			det.OrderDetailID = d.ID
			det.OrderID = o.ID
			det.ProductID = d.Product
			price, err := decimal.NewFromString(strings.TrimSpace(d.UnitPrice))
			if err != nil {
				return nil, fmt.Errorf("order detail %d unitPrice: %w", d.ID, err)
			}
			det.UnitPrice = price
			det.Quantity = d.Quantity
			det.Discount = d.Discount
			out.OrderDetails = append(out.OrderDetails, det)
		}
	}
	return out, nil
}

// Seed inserts the embedded fixtures when the customers table is empty.
// It reports whether anything was written.
func Seed(db *gorm.DB, log *logger.Logger) (bool, error) {
	var count int64
	if err := db.Model(&northwind.Customer{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("seed count: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	data, err := LoadSeed()
	if err != nil {
		return false, err
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			name  string
			value any
			n     int
		}{
			{"categories", data.Categories, len(data.Categories)},
			{"customers", data.Customers, len(data.Customers)},
			{"products", data.Products, len(data.Products)},
			{"orders", data.Orders, len(data.Orders)},
			{"order_details", data.OrderDetails, len(data.OrderDetails)},
		}
		for _, s := range steps {
			if s.n == 0 {
				continue
			}
			if err := tx.Omit(clause.Associations).Create(s.value).Error; err != nil {
				return fmt.Errorf("seed %s: %w", s.name, err)
			}
		}
		return resetSequences(tx)
	})
	if err != nil {
		return false, err
	}
	if log != nil {
		log.Info("Seeded database",
			"categories", len(data.Categories),
			"customers", len(data.Customers),
			"products", len(data.Products),
			"orders", len(data.Orders),
			"order_details", len(data.OrderDetails),
		)
	}
	return true, nil
}

// resetSequences moves Postgres identity sequences past the explicit seed
// keys. SQLite picks max(rowid)+1 on its own.
func resetSequences(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	for _, t := range []struct{ table, column string }{
		{"categories", "category_id"},
		{"products", "product_id"},
		{"orders", "order_id"},
		{"order_details", "order_detail_id"},
	} {
		stmt := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE((SELECT MAX(%s) FROM %s), 1))",
			t.table, t.column, t.column, t.table,
		)
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("reset sequence %s.%s: %w", t.table, t.column, err)
		}
	}
	return nil
}

func parseNullDecimal(raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
