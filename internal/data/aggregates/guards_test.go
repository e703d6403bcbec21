package aggregates

import (
	"context"
	"testing"

	"github.com/yungbote/northwind-slim-backend/internal/data/repos/entitystore"
	"github.com/yungbote/northwind-slim-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/northwind-slim-backend/internal/domain/aggregates"
	"github.com/yungbote/northwind-slim-backend/internal/platform/dbctx"
)

func TestRequireRowVersion(t *testing.T) {
	if err := RequireRowVersion([]byte{0x01}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := MapError("op", RequireRowVersion(nil))
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition_failed, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestRequireRowVersionMatch(t *testing.T) {
	if err := RequireRowVersionMatch([]byte{0x00, 0x02}, []byte{0x00, 0x02}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := MapError("op", RequireRowVersionMatch([]byte{0x01}, []byte{0x00}))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "ok"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireCASSuccess(false, "stale"); err == nil {
		t.Fatalf("expected conflict error")
	}
}

func TestCASGuardRowVersion(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	p := testutil.SeedProduct(t, ctx, db, "Chai", nil, "18.00")

	guard := NewCASGuard(db)
	dbc := dbctx.Context{Ctx: ctx}
	d, err := entitystore.Describe(ctx, db, p)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}

	current, found, err := guard.StoredRowVersion(dbc, d)
	if err != nil || !found {
		t.Fatalf("StoredRowVersion: found=%v err=%v", found, err)
	}
	if string(current) != string([]byte{0x01}) {
		t.Fatalf("stored row version = %x, want 01", current)
	}

	ok, err := guard.UpdateByRowVersion(dbc, d, []byte{0x00}, map[string]any{"product_name": "Stale"})
	if err != nil {
		t.Fatalf("stale update: %v", err)
	}
	if ok {
		t.Fatalf("stale update should not match")
	}

	ok, err = guard.UpdateByRowVersion(dbc, d, []byte{0x01}, map[string]any{
		"product_name":   "Chai Tea",
		rowVersionColumn: []byte{0x02},
	})
	if err != nil || !ok {
		t.Fatalf("fresh update: ok=%v err=%v", ok, err)
	}

	if _, err := guard.UpdateByRowVersion(dbc, d, nil, map[string]any{"product_name": "x"}); !domainagg.IsCode(MapError("op", err), domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition error for missing version, got %v", err)
	}

	ok, err = guard.DeleteByRowVersion(dbc, d, []byte{0x01})
	if err != nil || ok {
		t.Fatalf("stale delete: ok=%v err=%v", ok, err)
	}
	ok, err = guard.DeleteByRowVersion(dbc, d, []byte{0x02})
	if err != nil || !ok {
		t.Fatalf("fresh delete: ok=%v err=%v", ok, err)
	}
	if _, found, err := guard.StoredRowVersion(dbc, d); err != nil || found {
		t.Fatalf("row should be gone: found=%v err=%v", found, err)
	}
}
