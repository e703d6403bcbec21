package sales

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/repos/testutil"
	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
)

func TestCustomerRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewCustomerRepo(db, testutil.Logger(t))

	alfki := testutil.SeedCustomer(t, ctx, tx, "ALFKI", "Alfreds Futterkiste")
	testutil.SeedCustomer(t, ctx, tx, "ANATR", "Ana Trujillo")
	testutil.SeedOrder(t, ctx, tx, testutil.PtrString(alfki.CustomerID), "1.50")
	testutil.SeedOrder(t, ctx, tx, testutil.PtrString(alfki.CustomerID), "2.50")

	rows, err := repo.List(ctx, tx)
	if err != nil || len(rows) != 2 {
		t.Fatalf("List: err=%v len=%d", err, len(rows))
	}
	if rows[0].CustomerID != "ALFKI" {
		t.Fatalf("List order: got %q first", rows[0].CustomerID)
	}

	if rows, err := repo.GetByIDs(ctx, tx, []string{"ANATR"}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}

	got, err := repo.GetWithOrders(ctx, tx, "ALFKI")
	if err != nil {
		t.Fatalf("GetWithOrders: %v", err)
	}
	if len(got.Orders) != 2 {
		t.Fatalf("GetWithOrders orders: got %d", len(got.Orders))
	}
	if got.Orders[0].Customer != got {
		t.Fatalf("expected order back reference to the loaded customer")
	}
	if _, err := repo.GetWithOrders(ctx, tx, "NOPE"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetWithOrders missing: want ErrRecordNotFound got %v", err)
	}
}

func TestOrderRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewOrderRepo(db, testutil.Logger(t))
	details := NewOrderDetailRepo(db, testutil.Logger(t))

	cust := testutil.SeedCustomer(t, ctx, tx, "VINET", "Vins et alcools Chevalier")
	other := testutil.SeedCustomer(t, ctx, tx, "BONAP", "Bon app'")
	prod := testutil.SeedProduct(t, ctx, tx, "Queso Cabrales", nil, "21.00")

	o1 := testutil.SeedOrder(t, ctx, tx, testutil.PtrString(cust.CustomerID), "32.38")
	o2 := testutil.SeedOrder(t, ctx, tx, testutil.PtrString(cust.CustomerID), "11.61")
	o3 := testutil.SeedOrder(t, ctx, tx, testutil.PtrString(other.CustomerID), "")
	testutil.SeedOrderDetail(t, ctx, tx, o1.OrderID, prod.ProductID, 12)
	testutil.SeedOrderDetail(t, ctx, tx, o2.OrderID, prod.ProductID, 5)

	all, err := repo.List(ctx, tx)
	if err != nil || len(all) != 3 {
		t.Fatalf("List: err=%v len=%d", err, len(all))
	}
	if all[0].Customer == nil || all[0].Customer != all[1].Customer {
		t.Fatalf("orders of one customer should share the customer instance")
	}
	if len(all[0].Customer.Orders) != 2 {
		t.Fatalf("customer should list its loaded orders, got %d", len(all[0].Customer.Orders))
	}
	if all[0].OrderDetails[0].Product != all[1].OrderDetails[0].Product {
		t.Fatalf("details should share the product instance")
	}

	mine, err := repo.ListByCustomer(ctx, tx, cust.CustomerID)
	if err != nil || len(mine) != 2 {
		t.Fatalf("ListByCustomer: err=%v len=%d", err, len(mine))
	}

	got, err := repo.GetByID(ctx, tx, o1.OrderID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.OrderDetails) != 1 || got.OrderDetails[0].Order != got || got.OrderDetails[0].Product == nil {
		t.Fatalf("GetByID graph not linked: %+v", got.OrderDetails)
	}
	if !got.OrderDetails[0].LineTotal().Equal(decimal.NewFromInt(120)) {
		t.Fatalf("line total: got %s", got.OrderDetails[0].LineTotal())
	}

	if ok, err := repo.Exists(ctx, tx, o3.OrderID); err != nil || !ok {
		t.Fatalf("Exists: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.Exists(ctx, tx, 9999); err != nil || ok {
		t.Fatalf("Exists missing: ok=%v err=%v", ok, err)
	}
	if _, err := repo.GetByID(ctx, tx, 9999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetByID missing: want ErrRecordNotFound got %v", err)
	}

	rows, err := details.GetByOrderIDs(ctx, tx, []int{o1.OrderID, o2.OrderID})
	if err != nil || len(rows) != 2 {
		t.Fatalf("GetByOrderIDs: err=%v len=%d", err, len(rows))
	}
	if n, err := details.CountByOrderIDs(ctx, tx, []int{o1.OrderID}); err != nil || n != 1 {
		t.Fatalf("CountByOrderIDs: n=%d err=%v", n, err)
	}
}

func TestLinkOrdersSkipsNil(t *testing.T) {
	o := northwind.NewOrder()
	LinkOrders(nil, o)
	if o.Customer != nil {
		t.Fatalf("unexpected customer")
	}
}
