package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/northwind-slim-backend/internal/domain/changes"
	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
)

// GraphAggregate persists detached entity graphs. Every entity reachable from
// the roots is written according to its tracking state in one transaction;
// on success the graph is reset to Unchanged.
//
// Products are guarded by their row version (first writer wins). Other
// entities are last writer wins.
type GraphAggregate interface {
	SaveGraph(ctx context.Context, roots ...northwind.Entity) (SaveResult, error)
}

type SaveResult struct {
	BatchID     uuid.UUID
	CommittedAt time.Time
	Entries     []*changes.LogEntry
}

// Empty reports whether the save had nothing to write.
func (r SaveResult) Empty() bool { return len(r.Entries) == 0 }
