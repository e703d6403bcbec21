package aggregates_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/aggregates"
	aggtestutil "github.com/yungbote/northwind-slim-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/northwind-slim-backend/internal/data/repos"
	"github.com/yungbote/northwind-slim-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/northwind-slim-backend/internal/domain/aggregates"
	"github.com/yungbote/northwind-slim-backend/internal/domain/changes"
	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
)

func newGraphAggregate(t *testing.T, db *gorm.DB, hooks aggregates.Hooks, runner aggregates.TxRunner) domainagg.GraphAggregate {
	t.Helper()
	log := testutil.Logger(t)
	return aggregates.NewGraphAggregate(aggregates.GraphAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:     db,
			Log:    log,
			Runner: runner,
			Hooks:  hooks,
		},
		Entities: repos.NewEntityStore(db, log),
		Changes:  repos.NewChangeLogRepo(db, log),
	})
}

// detachedProduct mimics a product the client read earlier and sent back.
func detachedProduct(src *northwind.Product, rowVersion []byte) *northwind.Product {
	p := northwind.NewProduct()
	p.ProductID = src.ProductID
	p.ProductName = src.ProductName
	p.CategoryID = src.CategoryID
	p.UnitPrice = src.UnitPrice
	p.RowVersion = rowVersion
	return p
}

func loadProduct(t *testing.T, db *gorm.DB, id int) *northwind.Product {
	t.Helper()
	var p northwind.Product
	if err := db.First(&p, "product_id = ?", id).Error; err != nil {
		t.Fatalf("load product %d: %v", id, err)
	}
	return &p
}

func TestSaveGraphInsertsOrderGraph(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	testutil.SeedCustomer(t, ctx, db, "ALFKI", "Alfreds Futterkiste")
	seeded := testutil.SeedProduct(t, ctx, db, "Chai", nil, "18.00")

	customer := northwind.NewCustomer()
	customer.CustomerID = "ALFKI"
	product := detachedProduct(seeded, seeded.RowVersion)

	order := northwind.NewOrder()
	order.MarkAdded()
	order.Customer = customer
	order.Freight = decimal.NewNullDecimal(decimal.RequireFromString("32.38"))
	customer.Orders = append(customer.Orders, order)
	for _, qty := range []int16{12, 5} {
		d := northwind.NewOrderDetail()
		d.MarkAdded()
		d.Order = order
		d.Product = product
		d.UnitPrice = decimal.RequireFromString("14.00")
		d.Quantity = qty
		order.OrderDetails = append(order.OrderDetails, d)
	}

	hooks := &aggtestutil.HooksRecorder{}
	res, err := newGraphAggregate(t, db, hooks, nil).SaveGraph(ctx, order)
	if err != nil {
		t.Fatalf("SaveGraph: %v", err)
	}

	if order.OrderID == 0 {
		t.Fatalf("expected generated order id")
	}
	if order.CustomerID == nil || *order.CustomerID != "ALFKI" {
		t.Fatalf("customer fk not synced: %v", order.CustomerID)
	}
	for _, d := range order.OrderDetails {
		if d.OrderID != order.OrderID || d.ProductID != seeded.ProductID {
			t.Fatalf("detail fks not synced: order=%d product=%d", d.OrderID, d.ProductID)
		}
		if d.TrackingState != tracking.Unchanged {
			t.Fatalf("detail state = %s, want Unchanged", d.TrackingState)
		}
	}
	if order.TrackingState != tracking.Unchanged {
		t.Fatalf("order state = %s, want Unchanged", order.TrackingState)
	}

	if len(res.Entries) != 3 || res.Empty() {
		t.Fatalf("expected 3 change entries, got %d", len(res.Entries))
	}
	if res.Entries[0].EntityType != "Order" {
		t.Fatalf("parents must be written first, got %s", res.Entries[0].EntityType)
	}
	var logged []changes.LogEntry
	if err := db.Where("batch_id = ?", res.BatchID).Find(&logged).Error; err != nil {
		t.Fatalf("load change log: %v", err)
	}
	if len(logged) != 3 {
		t.Fatalf("expected 3 change log rows, got %d", len(logged))
	}

	var details int64
	db.Model(&northwind.OrderDetail{}).Where("order_id = ?", order.OrderID).Count(&details)
	if details != 2 {
		t.Fatalf("expected 2 stored details, got %d", details)
	}
	if got := hooks.LastStatus(); got != "success" {
		t.Fatalf("hook status = %q, want success", got)
	}
}

func TestSaveGraphRejectsStaleProductRowVersion(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	seeded := testutil.SeedProduct(t, ctx, db, "Chai", nil, "18.00")
	if !bytes.Equal(seeded.RowVersion, []byte{0x01}) {
		t.Fatalf("seeded row version = %x, want 01", seeded.RowVersion)
	}

	stale := detachedProduct(seeded, []byte{0x00})
	stale.ProductName = "Chai (stale)"
	stale.MarkModified("ProductName")

	hooks := &aggtestutil.HooksRecorder{}
	_, err := newGraphAggregate(t, db, hooks, nil).SaveGraph(ctx, stale)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict, got %q (%v)", domainagg.CodeOf(err), err)
	}
	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) || aggErr.Entity != "Product" || aggErr.Key != "1" {
		t.Fatalf("expected error to name Product(1), got %#v", aggErr)
	}
	if len(hooks.Conflicts) != 1 || hooks.Conflicts[0] != aggregates.OpSaveGraph {
		t.Fatalf("conflict hooks: %+v", hooks.Conflicts)
	}
	if stale.TrackingState != tracking.Modified {
		t.Fatalf("failed save must keep state, got %s", stale.TrackingState)
	}
	if !bytes.Equal(stale.RowVersion, []byte{0x00}) {
		t.Fatalf("failed save must keep row version, got %x", stale.RowVersion)
	}
	if got := loadProduct(t, db, seeded.ProductID); got.ProductName != "Chai" {
		t.Fatalf("stored name changed to %q", got.ProductName)
	}
}

func TestSaveGraphAdvancesRowVersionAndWritesOnlyModifiedColumns(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	seeded := testutil.SeedProduct(t, ctx, db, "Chai", nil, "18.00")

	p := detachedProduct(seeded, seeded.RowVersion)
	p.ProductName = "Chai Tea"
	p.UnitPrice = decimal.NewNullDecimal(decimal.RequireFromString("99.00"))
	p.MarkModified("productName")

	if _, err := newGraphAggregate(t, db, nil, nil).SaveGraph(ctx, p); err != nil {
		t.Fatalf("SaveGraph: %v", err)
	}
	if !bytes.Equal(p.RowVersion, []byte{0x02}) {
		t.Fatalf("row version = %x, want 02", p.RowVersion)
	}
	if p.TrackingState != tracking.Unchanged || len(p.ModifiedProperties) != 0 {
		t.Fatalf("expected accepted changes, got %s %v", p.TrackingState, p.ModifiedProperties)
	}

	got := loadProduct(t, db, seeded.ProductID)
	if got.ProductName != "Chai Tea" {
		t.Fatalf("name = %q, want Chai Tea", got.ProductName)
	}
	if !got.UnitPrice.Decimal.Equal(decimal.RequireFromString("18.00")) {
		t.Fatalf("unlisted column written: price = %s", got.UnitPrice.Decimal)
	}
	if !bytes.Equal(got.RowVersion, []byte{0x02}) {
		t.Fatalf("stored row version = %x, want 02", got.RowVersion)
	}
}

func TestSaveGraphRequiresProductRowVersion(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	seeded := testutil.SeedProduct(t, ctx, db, "Chai", nil, "18.00")

	p := detachedProduct(seeded, nil)
	p.MarkDeleted()

	_, err := newGraphAggregate(t, db, nil, nil).SaveGraph(ctx, p)
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition_failed, got %q (%v)", domainagg.CodeOf(err), err)
	}
	loadProduct(t, db, seeded.ProductID)
}

func TestSaveGraphRejectsUnknownModifiedProperty(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	seeded := testutil.SeedProduct(t, ctx, db, "Chai", nil, "18.00")

	p := detachedProduct(seeded, seeded.RowVersion)
	p.MarkModified("Colour")

	_, err := newGraphAggregate(t, db, nil, nil).SaveGraph(ctx, p)
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestSaveGraphRequiresCustomerID(t *testing.T) {
	c := northwind.NewCustomer()
	c.CompanyName = "Nameless"
	c.MarkAdded()

	_, err := newGraphAggregate(t, testutil.DB(t), nil, nil).SaveGraph(context.Background(), c)
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestSaveGraphMissingRowIsNotFound(t *testing.T) {
	c := northwind.NewCategory()
	c.CategoryID = 999
	c.CategoryName = "Ghost"
	c.MarkModified("CategoryName")

	_, err := newGraphAggregate(t, testutil.DB(t), nil, nil).SaveGraph(context.Background(), c)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestSaveGraphForeignKeyViolation(t *testing.T) {
	o := northwind.NewOrder()
	o.CustomerID = testutil.PtrString("ZZZZZ")
	o.MarkAdded()

	_, err := newGraphAggregate(t, testutil.DB(t), nil, nil).SaveGraph(context.Background(), o)
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition_failed, got %q (%v)", domainagg.CodeOf(err), err)
	}
	if o.OrderID != 0 || o.TrackingState != tracking.Added {
		t.Fatalf("failed save must leave order untouched: id=%d state=%s", o.OrderID, o.TrackingState)
	}
}

func TestSaveGraphDeleteOrderCascadesDetails(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	cust := testutil.SeedCustomer(t, ctx, db, "VINET", "Vins et alcools Chevalier")
	p := testutil.SeedProduct(t, ctx, db, "Queso Cabrales", nil, "21.00")
	seeded := testutil.SeedOrder(t, ctx, db, &cust.CustomerID, "32.38")
	testutil.SeedOrderDetail(t, ctx, db, seeded.OrderID, p.ProductID, 12)
	testutil.SeedOrderDetail(t, ctx, db, seeded.OrderID, p.ProductID, 10)

	o := northwind.NewOrder()
	o.OrderID = seeded.OrderID
	o.MarkDeleted()

	res, err := newGraphAggregate(t, db, nil, nil).SaveGraph(ctx, o)
	if err != nil {
		t.Fatalf("SaveGraph: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].State != tracking.Deleted {
		t.Fatalf("unexpected entries: %+v", res.Entries)
	}
	var details int64
	db.Model(&northwind.OrderDetail{}).Where("order_id = ?", seeded.OrderID).Count(&details)
	if details != 0 {
		t.Fatalf("expected details to cascade, %d left", details)
	}
}

func TestSaveGraphPrunesDeletedChildren(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	p := testutil.SeedProduct(t, ctx, db, "Chai", nil, "18.00")
	seeded := testutil.SeedOrder(t, ctx, db, nil, "")
	keep := testutil.SeedOrderDetail(t, ctx, db, seeded.OrderID, p.ProductID, 1)
	drop := testutil.SeedOrderDetail(t, ctx, db, seeded.OrderID, p.ProductID, 2)

	o := northwind.NewOrder()
	o.OrderID = seeded.OrderID
	o.OrderDetails = []*northwind.OrderDetail{keep, drop}
	drop.MarkDeleted()

	if _, err := newGraphAggregate(t, db, nil, nil).SaveGraph(ctx, o); err != nil {
		t.Fatalf("SaveGraph: %v", err)
	}
	if len(o.OrderDetails) != 1 || o.OrderDetails[0] != keep {
		t.Fatalf("expected deleted detail pruned, got %d details", len(o.OrderDetails))
	}
	var left int64
	db.Model(&northwind.OrderDetail{}).Where("order_id = ?", seeded.OrderID).Count(&left)
	if left != 1 {
		t.Fatalf("expected 1 stored detail, got %d", left)
	}
}

func TestSaveGraphFailedCommitRestoresGraph(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)

	cat := northwind.NewCategory()
	cat.CategoryName = "Beverages"
	cat.MarkAdded()
	p := northwind.NewProduct()
	p.ProductName = "Chai"
	p.Category = cat
	p.MarkAdded()
	cat.Products = append(cat.Products, p)

	runner := &aggtestutil.InjectedTxRunner{
		Inner:      aggregates.NewGormTxRunner(db),
		FailCommit: errors.New("commit failed"),
	}
	_, err := newGraphAggregate(t, db, nil, runner).SaveGraph(ctx, cat)
	if err == nil {
		t.Fatalf("expected injected commit failure")
	}
	if runner.RollbackCalls != 1 {
		t.Fatalf("expected rollback, got %d", runner.RollbackCalls)
	}
	if cat.CategoryID != 0 || p.ProductID != 0 || p.CategoryID != nil || p.RowVersion != nil {
		t.Fatalf("keys leaked from rolled back tx: cat=%d product=%d fk=%v rv=%x", cat.CategoryID, p.ProductID, p.CategoryID, p.RowVersion)
	}
	if cat.TrackingState != tracking.Added || p.TrackingState != tracking.Added {
		t.Fatalf("states changed: %s %s", cat.TrackingState, p.TrackingState)
	}
	var n int64
	db.Model(&northwind.Product{}).Count(&n)
	if n != 0 {
		t.Fatalf("rolled back insert persisted %d products", n)
	}

	// The same graph saves cleanly once the failure is gone.
	if _, err := newGraphAggregate(t, db, nil, nil).SaveGraph(ctx, cat); err != nil {
		t.Fatalf("retry SaveGraph: %v", err)
	}
	if p.CategoryID == nil || *p.CategoryID != cat.CategoryID {
		t.Fatalf("product fk not synced after retry: %v", p.CategoryID)
	}
}

func TestSaveGraphUnchangedGraphIsNoop(t *testing.T) {
	c := northwind.NewCategory()
	c.CategoryID = 1

	hooks := &aggtestutil.HooksRecorder{}
	res, err := newGraphAggregate(t, testutil.DB(t), hooks, nil).SaveGraph(context.Background(), c)
	if err != nil {
		t.Fatalf("SaveGraph: %v", err)
	}
	if !res.Empty() || len(hooks.Operations) != 0 {
		t.Fatalf("expected no write, got entries=%d ops=%d", len(res.Entries), len(hooks.Operations))
	}
}
