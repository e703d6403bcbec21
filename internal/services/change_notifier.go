package services

import (
	"context"
	"time"

	"github.com/yungbote/northwind-slim-backend/internal/clients/redis"
	domainagg "github.com/yungbote/northwind-slim-backend/internal/domain/aggregates"
	"github.com/yungbote/northwind-slim-backend/internal/domain/changes"
	"github.com/yungbote/northwind-slim-backend/internal/observability"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

const publishTimeout = 2 * time.Second

// =========================
// Change notifier
// =========================

// ChangeNotifier announces committed saves. Publishing is best effort: the
// save has already committed, so failures are logged and counted only.
type ChangeNotifier interface {
	ChangesCommitted(ctx context.Context, res domainagg.SaveResult)
}

type changeNotifier struct {
	log     *logger.Logger
	bus     redis.ChangeBus
	metrics *observability.Metrics
}

func NewChangeNotifier(baseLog *logger.Logger, bus redis.ChangeBus, metrics *observability.Metrics) ChangeNotifier {
	if bus == nil {
		bus = redis.NewNoopChangeBus()
	}
	return &changeNotifier{
		log:     baseLog.With("service", "ChangeNotifier"),
		bus:     bus,
		metrics: metrics,
	}
}

func (n *changeNotifier) ChangesCommitted(ctx context.Context, res domainagg.SaveResult) {
	if n == nil || res.Empty() {
		return
	}
	entries := make([]changes.LogEntry, 0, len(res.Entries))
	for _, e := range res.Entries {
		if e == nil {
			continue
		}
		entries = append(entries, *e)
		n.metrics.IncChangeEntry(e.EntityType, e.State.String())
	}
	notice, ok := changes.NoticeFor(res.BatchID, res.CommittedAt, entries)
	if !ok {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := n.bus.Publish(pubCtx, notice); err != nil {
		n.metrics.IncChangeNotice("failed")
		n.log.Warn("publish change notice failed", "batch_id", notice.BatchID, "error", err)
		return
	}
	n.metrics.IncChangeNotice("published")
	n.log.Debug("change notice published", "batch_id", notice.BatchID, "changes", len(notice.Changes))
}
