package aggregates

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/northwind-slim-backend/internal/data/repos"
	"github.com/yungbote/northwind-slim-backend/internal/data/repos/entitystore"
	domainagg "github.com/yungbote/northwind-slim-backend/internal/domain/aggregates"
	"github.com/yungbote/northwind-slim-backend/internal/domain/changes"
	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
	"github.com/yungbote/northwind-slim-backend/internal/observability"
	"github.com/yungbote/northwind-slim-backend/internal/platform/dbctx"
)

const OpSaveGraph = "Northwind.Graph.SaveGraph"

type GraphAggregateDeps struct {
	Base BaseDeps

	Entities repos.EntityStore
	Changes  repos.ChangeLogRepo
}

type graphAggregate struct {
	deps GraphAggregateDeps
}

func NewGraphAggregate(deps GraphAggregateDeps) domainagg.GraphAggregate {
	deps.Base = deps.Base.withDefaults()
	return &graphAggregate{deps: deps}
}

func (a *graphAggregate) SaveGraph(ctx context.Context, roots ...northwind.Entity) (domainagg.SaveResult, error) {
	const op = OpSaveGraph
	var out domainagg.SaveResult

	ctx, span := observability.Tracer().Start(ctx, op)
	defer span.End()

	if a.deps.Entities == nil || a.deps.Changes == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "graph aggregate repos not configured", nil)
	}

	all, pending, err := collectChanges(roots)
	if err != nil {
		mapped := MapError(op, err)
		span.SetStatus(codes.Error, mapped.Error())
		return out, mapped
	}
	span.SetAttributes(attribute.Int("northwind.changes", len(pending)))
	if len(pending) == 0 {
		northwind.AcceptChanges(roots...)
		return out, nil
	}

	for _, e := range all {
		e.SyncForeignKeys()
	}
	restore := snapshot(all)
	batch := uuid.New()
	var entries []*changes.LogEntry

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		entries = entries[:0]
		for _, e := range upsertOrder(pending) {
			entry, err := a.upsert(dbc, e, batch)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		for _, e := range deleteOrder(pending) {
			entry, err := a.delete(dbc, e, batch)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		_, err := a.deps.Changes.Create(dbc.Ctx, dbc.Tx, entries)
		return err
	})
	if err != nil {
		restore()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}

	out = domainagg.SaveResult{
		BatchID:     batch,
		CommittedAt: time.Now().UTC(),
		Entries:     entries,
	}
	northwind.AcceptChanges(roots...)
	span.SetAttributes(attribute.String("northwind.batch_id", batch.String()))
	return out, nil
}

func (a *graphAggregate) upsert(dbc dbctx.Context, e northwind.Entity, batch uuid.UUID) (*changes.LogEntry, error) {
	info := e.TrackingInfo()
	e.SyncForeignKeys()

	switch info.TrackingState {
	case tracking.Added:
		if v, ok := e.(northwind.RowVersioned); ok {
			v.SetRowVersion(northwind.InitialRowVersion())
		}
		if err := a.deps.Entities.Insert(dbc.Ctx, dbc.Tx, e); err != nil {
			return nil, err
		}
	case tracking.Modified:
		if v, ok := e.(northwind.RowVersioned); ok {
			if err := a.updateVersioned(dbc, v, info.ModifiedProperties); err != nil {
				return nil, err
			}
			break
		}
		n, err := a.deps.Entities.Update(dbc.Ctx, dbc.Tx, e, info.ModifiedProperties)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, missingRow(e)
		}
	}
	// Generated keys flow to children only after the insert.
	e.SyncForeignKeys()
	return logEntry(batch, e), nil
}

func (a *graphAggregate) delete(dbc dbctx.Context, e northwind.Entity, batch uuid.UUID) (*changes.LogEntry, error) {
	entry := logEntry(batch, e)
	if v, ok := e.(northwind.RowVersioned); ok {
		expected := v.CurrentRowVersion()
		if err := requireEntityRowVersion(v); err != nil {
			return nil, err
		}
		d, err := entitystore.Describe(dbc.Ctx, dbc.Tx, v)
		if err != nil {
			return nil, err
		}
		ok, err := a.deps.Base.CASGuard.DeleteByRowVersion(dbc, d, expected)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, a.casFailure(dbc, d, v)
		}
		return entry, nil
	}
	n, err := a.deps.Entities.Delete(dbc.Ctx, dbc.Tx, e)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, missingRow(e)
	}
	return entry, nil
}

// updateVersioned writes the listed properties only while the stored row
// version still matches the one the client read, then advances it.
func (a *graphAggregate) updateVersioned(dbc dbctx.Context, v northwind.RowVersioned, props []string) error {
	if err := requireEntityRowVersion(v); err != nil {
		return err
	}
	expected := v.CurrentRowVersion()
	d, err := entitystore.Describe(dbc.Ctx, dbc.Tx, v)
	if err != nil {
		return err
	}
	cols, err := d.Columns(dbc.Ctx, v, props)
	if err != nil {
		return err
	}
	next := northwind.NextRowVersion(expected)
	cols[rowVersionColumn] = next

	ok, err := a.deps.Base.CASGuard.UpdateByRowVersion(dbc, d, expected, cols)
	if err != nil {
		return err
	}
	if !ok {
		return a.casFailure(dbc, d, v)
	}
	v.SetRowVersion(next)
	return nil
}

// casFailure tells a stale row version apart from a row that is gone.
func (a *graphAggregate) casFailure(dbc dbctx.Context, d *entitystore.Descriptor, v northwind.RowVersioned) error {
	current, found, err := a.deps.Base.CASGuard.StoredRowVersion(dbc, d)
	if err != nil {
		return err
	}
	if !found {
		return missingRow(v)
	}
	if err := RequireRowVersionMatch(current, v.CurrentRowVersion()); err != nil {
		return domainagg.NewEntityError(domainagg.CodeConflict, OpSaveGraph, v.EntityName(), v.KeyString(),
			"row version is stale; reload and retry")
	}
	return domainagg.NewEntityError(domainagg.CodeConflict, OpSaveGraph, v.EntityName(), v.KeyString(),
		"row changed during save")
}

func requireEntityRowVersion(v northwind.RowVersioned) error {
	if err := RequireRowVersion(v.CurrentRowVersion()); err != nil {
		return domainagg.NewEntityError(domainagg.CodePreconditionFailed, OpSaveGraph, v.EntityName(), v.KeyString(),
			"row version is required")
	}
	return nil
}

func missingRow(e northwind.Entity) error {
	return domainagg.NewEntityError(domainagg.CodeNotFound, OpSaveGraph, e.EntityName(), e.KeyString(), "row does not exist")
}

func logEntry(batch uuid.UUID, e northwind.Entity) *changes.LogEntry {
	info := e.TrackingInfo()
	entry := changes.NewLogEntry(batch, e.EntityName(), e.KeyString(), info.EntityIdentifier, info.TrackingState, info.ModifiedProperties)
	return &entry
}

// collectChanges walks the graph, validates every changed entity and returns
// all reachable entities plus the ones that need a write, in walk order.
func collectChanges(roots []northwind.Entity) (all, pending []northwind.Entity, err error) {
	err = tracking.Walk(northwind.Trackables(roots...), func(t tracking.Trackable) error {
		e, ok := t.(northwind.Entity)
		if !ok {
			return fmt.Errorf("%w: %T", tracking.ErrNotEntity, t)
		}
		all = append(all, e)
		info := e.TrackingInfo()
		info.EnsureIdentifier()
		if !info.TrackingState.Valid() {
			return ValidationError(fmt.Sprintf("%s has invalid tracking state %d", e.EntityName(), int(info.TrackingState)))
		}
		if !info.HasChanges() {
			return nil
		}
		if err := tracking.ValidateModifiedProperties(e); err != nil {
			return err
		}
		if err := requireKey(e); err != nil {
			return err
		}
		pending = append(pending, e)
		return nil
	})
	return all, pending, err
}

// requireKey rejects rows that cannot be addressed. Customers carry a
// client-assigned key; every other type gets its key from the database.
func requireKey(e northwind.Entity) error {
	info := e.TrackingInfo()
	switch info.TrackingState {
	case tracking.Added:
		if _, ok := e.(*northwind.Customer); ok && e.KeyString() == "" {
			return ValidationError("customer id is required")
		}
	case tracking.Modified, tracking.Deleted:
		if e.KeyString() == "" {
			return ValidationError(fmt.Sprintf("%s %s has no key", info.TrackingState, e.EntityName()))
		}
	}
	return nil
}

func upsertOrder(pending []northwind.Entity) []northwind.Entity {
	out := make([]northwind.Entity, 0, len(pending))
	for _, e := range pending {
		if s := e.TrackingInfo().TrackingState; s == tracking.Added || s == tracking.Modified {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SaveRank() < out[j].SaveRank() })
	return out
}

func deleteOrder(pending []northwind.Entity) []northwind.Entity {
	out := make([]northwind.Entity, 0, len(pending))
	for _, e := range pending {
		if e.TrackingInfo().TrackingState == tracking.Deleted {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SaveRank() > out[j].SaveRank() })
	return out
}

// snapshot copies every entity by value and returns a func that puts the
// copies back, undoing keys and row versions assigned by a transaction that
// did not commit.
func snapshot(entities []northwind.Entity) func() {
	saved := make([]reflect.Value, len(entities))
	for i, e := range entities {
		rv := reflect.ValueOf(e).Elem()
		cp := reflect.New(rv.Type()).Elem()
		cp.Set(rv)
		saved[i] = cp
	}
	return func() {
		for i, e := range entities {
			reflect.ValueOf(e).Elem().Set(saved[i])
		}
	}
}
