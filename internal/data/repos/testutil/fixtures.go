package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
)

func SeedCategory(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *northwind.Category {
	tb.Helper()
	c := northwind.NewCategory()
	c.CategoryName = name
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}

func SeedCustomer(tb testing.TB, ctx context.Context, tx *gorm.DB, id, company string) *northwind.Customer {
	tb.Helper()
	c := northwind.NewCustomer()
	c.CustomerID = id
	c.CompanyName = company
	c.ContactName = "Contact " + id
	c.City = "Berlin"
	c.Country = "Germany"
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		tb.Fatalf("seed customer: %v", err)
	}
	return c
}

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, categoryID *int, price string) *northwind.Product {
	tb.Helper()
	p := northwind.NewProduct()
	p.ProductName = name
	p.CategoryID = categoryID
	if price != "" {
		p.UnitPrice = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedOrder(tb testing.TB, ctx context.Context, tx *gorm.DB, customerID *string, freight string) *northwind.Order {
	tb.Helper()
	o := northwind.NewOrder()
	o.CustomerID = customerID
	o.OrderDate = PtrTime(time.Date(1996, 7, 4, 0, 0, 0, 0, time.UTC))
	if freight != "" {
		o.Freight = decimal.NewNullDecimal(decimal.RequireFromString(freight))
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(o).Error; err != nil {
		tb.Fatalf("seed order: %v", err)
	}
	return o
}

func SeedOrderDetail(tb testing.TB, ctx context.Context, tx *gorm.DB, orderID, productID int, qty int16) *northwind.OrderDetail {
	tb.Helper()
	d := northwind.NewOrderDetail()
	d.OrderID = orderID
	d.ProductID = productID
	d.UnitPrice = decimal.RequireFromString("10.00")
	d.Quantity = qty
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(d).Error; err != nil {
		tb.Fatalf("seed order detail: %v", err)
	}
	return d
}

func PtrInt(v int) *int { return &v }

func PtrString(v string) *string { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
