package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/clients/redis"
	"github.com/yungbote/northwind-slim-backend/internal/data/aggregates"
	"github.com/yungbote/northwind-slim-backend/internal/data/repos"
	"github.com/yungbote/northwind-slim-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/northwind-slim-backend/internal/domain/aggregates"
	"github.com/yungbote/northwind-slim-backend/internal/domain/changes"
	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
	"github.com/yungbote/northwind-slim-backend/internal/platform/graphjson"
)

type fakeGraphAggregate struct {
	calls  int
	states []tracking.State
	err    error
}

func (f *fakeGraphAggregate) SaveGraph(_ context.Context, roots ...northwind.Entity) (domainagg.SaveResult, error) {
	f.calls++
	for _, r := range roots {
		f.states = append(f.states, r.TrackingInfo().TrackingState)
	}
	if f.err != nil {
		return domainagg.SaveResult{}, f.err
	}
	entries := make([]*changes.LogEntry, 0, len(roots))
	batch := uuid.New()
	for _, r := range roots {
		e := changes.NewLogEntry(batch, r.EntityName(), r.KeyString(), r.TrackingInfo().EntityIdentifier, r.TrackingInfo().TrackingState, nil)
		entries = append(entries, &e)
	}
	northwind.AcceptChanges(roots...)
	return domainagg.SaveResult{BatchID: batch, Entries: entries}, nil
}

type recordingNotifier struct {
	results []domainagg.SaveResult
}

func (n *recordingNotifier) ChangesCommitted(_ context.Context, res domainagg.SaveResult) {
	n.results = append(n.results, res)
}

type recordingBus struct {
	mu      sync.Mutex
	notices []changes.Notice
	err     error
}

func (b *recordingBus) Publish(_ context.Context, n changes.Notice) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.notices = append(b.notices, n)
	return nil
}
func (b *recordingBus) StartForwarder(context.Context, func(changes.Notice)) error { return nil }
func (b *recordingBus) Client() goredis.UniversalClient                         { return nil }
func (b *recordingBus) Close() error                                            { return nil }

var _ redis.ChangeBus = (*recordingBus)(nil)

type harness struct {
	db       *gorm.DB
	bus      *recordingBus
	products ProductService
	orders   OrderService
	changes  ChangeLogService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	bus := &recordingBus{}
	graph := aggregates.NewGraphAggregate(aggregates.GraphAggregateDeps{
		Base:     aggregates.BaseDeps{DB: db, Log: log},
		Entities: repos.NewEntityStore(db, log),
		Changes:  repos.NewChangeLogRepo(db, log),
	})
	notifier := NewChangeNotifier(log, bus, nil)
	return &harness{
		db:  db,
		bus: bus,
		products: NewProductService(db, log,
			repos.NewProductRepo(db, log), repos.NewCategoryRepo(db, log), graph, notifier),
		orders: NewOrderService(db, log,
			repos.NewOrderRepo(db, log), repos.NewCustomerRepo(db, log), repos.NewProductRepo(db, log), graph, notifier),
		changes: NewChangeLogService(db, log, repos.NewChangeLogRepo(db, log)),
	}
}

func TestProductServiceForcesStates(t *testing.T) {
	log := testutil.Logger(t)
	graph := &fakeGraphAggregate{}
	notifier := &recordingNotifier{}
	svc := NewProductService(nil, log, nil, nil, graph, notifier)

	p := &northwind.Product{ProductName: "Chai"}
	if _, err := svc.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if p.EntityIdentifier == uuid.Nil {
		t.Fatalf("create must assign an identifier")
	}

	existing := northwind.NewProduct()
	existing.ProductID = 7
	existing.RowVersion = []byte{0x01}
	if _, err := svc.UpdateProduct(context.Background(), existing); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	if graph.calls != 2 || graph.states[0] != tracking.Added || graph.states[1] != tracking.Modified {
		t.Fatalf("unexpected saved states: %v", graph.states)
	}
	if len(notifier.results) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifier.results))
	}
}

func TestProductServiceRejectsBadInput(t *testing.T) {
	log := testutil.Logger(t)
	graph := &fakeGraphAggregate{}
	svc := NewProductService(nil, log, nil, nil, graph, nil)
	ctx := context.Background()

	withID := northwind.NewProduct()
	withID.ProductID = 3
	deleted := northwind.NewProduct()
	deleted.ProductID = 3
	deleted.MarkDeleted()

	cases := []struct {
		name string
		run  func() error
	}{
		{"create nil", func() error { _, err := svc.CreateProduct(ctx, nil); return err }},
		{"create with id", func() error { _, err := svc.CreateProduct(ctx, withID); return err }},
		{"update without id", func() error { _, err := svc.UpdateProduct(ctx, northwind.NewProduct()); return err }},
		{"update deleted", func() error { _, err := svc.UpdateProduct(ctx, deleted); return err }},
		{"delete bad id", func() error { return svc.DeleteProduct(ctx, 0, []byte{0x01}) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !domainagg.IsCode(err, domainagg.CodeValidation) {
				t.Fatalf("expected validation, got %q (%v)", domainagg.CodeOf(err), err)
			}
		})
	}
	if graph.calls != 0 {
		t.Fatalf("invalid input must not reach the aggregate, got %d calls", graph.calls)
	}
}

func TestCommitSkipsNotifierOnFailure(t *testing.T) {
	graph := &fakeGraphAggregate{err: domainagg.NewError(domainagg.CodeConflict, "op", "stale", nil)}
	notifier := &recordingNotifier{}
	svc := NewProductService(nil, testutil.Logger(t), nil, nil, graph, notifier)

	err := svc.DeleteProduct(context.Background(), 4, []byte{0x01})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict passthrough, got %v", err)
	}
	if len(notifier.results) != 0 {
		t.Fatalf("failed saves must not notify")
	}
}

func TestChangeNotifierPublishesNotice(t *testing.T) {
	bus := &recordingBus{}
	n := NewChangeNotifier(testutil.Logger(t), bus, nil)

	batch := uuid.New()
	e := changes.NewLogEntry(batch, "Product", "1", uuid.New(), tracking.Modified, []string{"UnitPrice"})
	n.ChangesCommitted(context.Background(), domainagg.SaveResult{BatchID: batch, Entries: []*changes.LogEntry{&e}})
	n.ChangesCommitted(context.Background(), domainagg.SaveResult{})

	if len(bus.notices) != 1 {
		t.Fatalf("expected 1 notice, got %d", len(bus.notices))
	}
	got := bus.notices[0]
	if got.BatchID != batch || got.Changes[0].Properties[0] != "UnitPrice" {
		t.Fatalf("unexpected notice: %+v", got)
	}

	bus.err = errors.New("redis down")
	n.ChangesCommitted(context.Background(), domainagg.SaveResult{BatchID: batch, Entries: []*changes.LogEntry{&e}})
}

func TestOrderServiceCreateLoadsRelated(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	testutil.SeedCustomer(t, ctx, h.db, "ALFKI", "Alfreds Futterkiste")
	p := testutil.SeedProduct(t, ctx, h.db, "Chai", nil, "18.00")

	o := &northwind.Order{CustomerID: testutil.PtrString("ALFKI")}
	d := &northwind.OrderDetail{ProductID: p.ProductID, Quantity: 3}
	o.OrderDetails = []*northwind.OrderDetail{d}
	d.InitDefaults()
	clientID := d.EntityIdentifier

	out, err := h.orders.CreateOrder(ctx, o)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if out != o || out.OrderID == 0 {
		t.Fatalf("expected the client's order back with a generated id")
	}
	if out.Customer == nil || out.Customer.CustomerID != "ALFKI" {
		t.Fatalf("customer not loaded: %+v", out.Customer)
	}
	if d.Product == nil || d.Product.ProductName != "Chai" || d.Order != o {
		t.Fatalf("detail references not loaded")
	}
	if d.EntityIdentifier != clientID {
		t.Fatalf("detail identifier replaced")
	}
	if len(h.bus.notices) != 1 || len(h.bus.notices[0].Changes) != 2 {
		t.Fatalf("expected one notice with 2 changes, got %+v", h.bus.notices)
	}

	got, err := h.orders.GetOrder(ctx, nil, o.OrderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if len(got.OrderDetails) != 1 || got.OrderDetails[0].Quantity != 3 {
		t.Fatalf("unexpected stored details: %+v", got.OrderDetails)
	}
}

func TestOrderServiceDeleteOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := testutil.SeedCustomer(t, ctx, h.db, "VINET", "Vins et alcools Chevalier")
	p := testutil.SeedProduct(t, ctx, h.db, "Tofu", nil, "23.25")
	o := testutil.SeedOrder(t, ctx, h.db, &c.CustomerID, "32.38")
	testutil.SeedOrderDetail(t, ctx, h.db, o.OrderID, p.ProductID, 4)

	if err := h.orders.DeleteOrder(ctx, o.OrderID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	if _, err := h.orders.GetOrder(ctx, nil, o.OrderID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found after delete, got %v", err)
	}
	if err := h.orders.DeleteOrder(ctx, o.OrderID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found deleting twice, got %v", err)
	}

	entries, err := h.changes.ListChanges(ctx, nil, "orderdetail", "", 0)
	if err != nil {
		t.Fatalf("ListChanges: %v", err)
	}
	if len(entries) != 1 || entries[0].State != tracking.Deleted {
		t.Fatalf("expected one deleted detail entry, got %+v", entries)
	}
}

func TestProductServiceUpdateStaleRowVersion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	seeded := testutil.SeedProduct(t, ctx, h.db, "Chai", nil, "18.00")

	fresh, err := h.products.GetProduct(ctx, nil, seeded.ProductID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	fresh.ProductName = "Chai Tea"
	fresh.MarkModified("ProductName")
	if _, err := h.products.UpdateProduct(ctx, fresh); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	stale := northwind.NewProduct()
	stale.ProductID = seeded.ProductID
	stale.RowVersion = seeded.RowVersion
	stale.ProductName = "Lost update"
	stale.MarkModified("ProductName")
	if _, err := h.products.UpdateProduct(ctx, stale); !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict, got %q (%v)", domainagg.CodeOf(err), err)
	}

	if err := h.products.DeleteProduct(ctx, seeded.ProductID, nil); !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition_failed, got %v", err)
	}
	if err := h.products.DeleteProduct(ctx, seeded.ProductID, fresh.RowVersion); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
}

func TestOrderServiceUpdateOrderMixedDetailStates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := testutil.SeedCustomer(t, ctx, h.db, "ALFKI", "Alfreds Futterkiste")
	chai := testutil.SeedProduct(t, ctx, h.db, "Chai", nil, "18.00")
	chang := testutil.SeedProduct(t, ctx, h.db, "Chang", nil, "19.00")
	o := testutil.SeedOrder(t, ctx, h.db, &c.CustomerID, "29.46")
	kept := testutil.SeedOrderDetail(t, ctx, h.db, o.OrderID, chai.ProductID, 21)
	dropped := testutil.SeedOrderDetail(t, ctx, h.db, o.OrderID, chang.ProductID, 2)

	// The modified detail also carries a changed unit price that is not
	// listed, so it must not reach the database.
	body := fmt.Sprintf(`{
		"$id": "1", "orderId": %d, "customerId": "ALFKI", "trackingState": 0,
		"orderDetails": [
			{"$id": "2", "orderDetailId": %d, "orderId": %d, "productId": %d, "unitPrice": 99, "quantity": 9,
			 "trackingState": 2, "modifiedProperties": ["quantity"], "order": {"$ref": "1"}},
			{"$id": "3", "orderDetailId": %d, "orderId": %d, "productId": %d, "unitPrice": 10, "quantity": 2,
			 "trackingState": 3, "order": {"$ref": "1"}},
			{"$id": "4", "productId": %d, "unitPrice": 19, "quantity": 7, "trackingState": 1}
		]
	}`, o.OrderID,
		kept.OrderDetailID, o.OrderID, chai.ProductID,
		dropped.OrderDetailID, o.OrderID, chang.ProductID,
		chang.ProductID)

	var in northwind.Order
	if err := graphjson.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	added := in.OrderDetails[2]
	addedID := added.EntityIdentifier

	out, err := h.orders.UpdateOrder(ctx, &in)
	if err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}

	if len(out.OrderDetails) != 2 {
		t.Fatalf("deleted detail should be pruned, got %d details", len(out.OrderDetails))
	}
	for _, d := range out.OrderDetails {
		if d.TrackingState != tracking.Unchanged || len(d.ModifiedProperties) != 0 {
			t.Fatalf("detail %d not accepted: %s %v", d.OrderDetailID, d.TrackingState, d.ModifiedProperties)
		}
		if d.Order != out {
			t.Fatalf("detail %d lost its order reference", d.OrderDetailID)
		}
	}
	if added.OrderDetailID == 0 || added.OrderID != o.OrderID {
		t.Fatalf("added detail keys: id=%d order=%d", added.OrderDetailID, added.OrderID)
	}
	if added.EntityIdentifier != addedID {
		t.Fatalf("added detail identifier replaced")
	}

	var stored []*northwind.OrderDetail
	if err := h.db.Order("order_detail_id").Find(&stored, "order_id = ?", o.OrderID).Error; err != nil {
		t.Fatalf("load details: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored details: got %d want 2", len(stored))
	}
	if stored[0].OrderDetailID != kept.OrderDetailID || stored[0].Quantity != 9 {
		t.Fatalf("modified detail: %+v", stored[0])
	}
	if !stored[0].UnitPrice.Equal(kept.UnitPrice) {
		t.Fatalf("unlisted column written: unit price %s", stored[0].UnitPrice)
	}
	if stored[1].OrderDetailID != added.OrderDetailID || stored[1].Quantity != 7 || stored[1].ProductID != chang.ProductID {
		t.Fatalf("added detail: %+v", stored[1])
	}
	var gone int64
	if err := h.db.Model(&northwind.OrderDetail{}).Where("order_detail_id = ?", dropped.OrderDetailID).Count(&gone).Error; err != nil {
		t.Fatalf("count deleted: %v", err)
	}
	if gone != 0 {
		t.Fatalf("deleted detail still stored")
	}
}
