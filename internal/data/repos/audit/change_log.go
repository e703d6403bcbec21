package audit

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/changes"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type ChangeLogFilter struct {
	EntityType string
	EntityKey  string
	Limit      int
}

type ChangeLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entries []*changes.LogEntry) ([]*changes.LogEntry, error)
	List(ctx context.Context, tx *gorm.DB, filter ChangeLogFilter) ([]*changes.LogEntry, error)
}

type changeLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChangeLogRepo(db *gorm.DB, baseLog *logger.Logger) ChangeLogRepo {
	repoLog := baseLog.With("repo", "ChangeLogRepo")
	return &changeLogRepo{db: db, log: repoLog}
}

func (r *changeLogRepo) Create(ctx context.Context, tx *gorm.DB, entries []*changes.LogEntry) ([]*changes.LogEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(entries) == 0 {
		return []*changes.LogEntry{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// List returns the newest entries first. Entity type matching ignores case.
func (r *changeLogRepo) List(ctx context.Context, tx *gorm.DB, filter ChangeLogFilter) ([]*changes.LogEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).Model(&changes.LogEntry{})
	if t := strings.TrimSpace(filter.EntityType); t != "" {
		q = q.Where("LOWER(entity_type) = ?", strings.ToLower(t))
	}
	if k := strings.TrimSpace(filter.EntityKey); k != "" {
		q = q.Where("entity_key = ?", k)
	}

	results := []*changes.LogEntry{}
	if err := q.
		Order("id DESC").
		Limit(ClampLimit(filter.Limit)).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}
