// Package northwind defines the Northwind-slim entity graph: categories,
// customers, orders, order details and products, each carrying tracking
// metadata for detached-graph synchronization.
package northwind

import (
	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
)

// Entity is implemented by every entity type in the graph. It adds the
// structural hooks a change applier needs on top of the tracking capability.
type Entity interface {
	tracking.Navigable
	// EntityName is the singular type name used in logs and change records.
	EntityName() string
	// KeyString renders the primary key; empty when not yet assigned.
	KeyString() string
	// SaveRank orders writes: lower ranks are inserted first and deleted last.
	SaveRank() int
	// SyncForeignKeys copies keys from referenced parents into foreign key
	// fields and from this entity into the foreign keys of its children.
	SyncForeignKeys()
	// PruneDeleted drops Deleted children from collection properties.
	PruneDeleted()
	// InitDefaults assigns an identifier and empty collections where unset.
	InitDefaults()
}

// RowVersioned is implemented by entities guarded by optimistic concurrency.
type RowVersioned interface {
	Entity
	CurrentRowVersion() []byte
	SetRowVersion(v []byte)
}

const (
	rankRoot = iota
	rankDependent
	rankLeaf
)

// AsEntities converts a slice of concrete entities for use with Walk-style
// helpers.
func AsEntities[T Entity](items []T) []Entity {
	out := make([]Entity, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// Trackables converts entities to the tracking capability view.
func Trackables(items ...Entity) []tracking.Trackable {
	out := make([]tracking.Trackable, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	return out
}

// InitGraph applies InitDefaults to every entity reachable from roots. It is
// used after decoding a detached graph so no entity is left without an
// identifier.
func InitGraph(roots ...Entity) {
	_ = tracking.Walk(Trackables(roots...), func(t tracking.Trackable) error {
		if e, ok := t.(Entity); ok {
			e.InitDefaults()
		}
		return nil
	})
}

// AcceptChanges resets every reachable entity to Unchanged and removes
// Deleted children from their parents' collections.
func AcceptChanges(roots ...Entity) {
	all := tracking.Collect(Trackables(roots...)...)
	for _, t := range all {
		if e, ok := t.(Entity); ok {
			e.PruneDeleted()
		}
	}
	for _, t := range all {
		t.TrackingInfo().AcceptChanges()
	}
}

func prune[T tracking.Trackable](items []T) []T {
	out := items[:0]
	for _, it := range items {
		if tracking.IsNil(it) {
			continue
		}
		if it.TrackingInfo().TrackingState != tracking.Deleted {
			out = append(out, it)
		}
	}
	return out
}
