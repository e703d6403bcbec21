package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/repos"
	"github.com/yungbote/northwind-slim-backend/internal/domain/changes"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type ChangeLogService interface {
	// ListChanges returns the newest entries first. Empty filters match all.
	ListChanges(ctx context.Context, tx *gorm.DB, entityType, entityKey string, limit int) ([]*changes.LogEntry, error)
}

type changeLogService struct {
	db            *gorm.DB
	log           *logger.Logger
	changeLogRepo repos.ChangeLogRepo
}

func NewChangeLogService(db *gorm.DB, baseLog *logger.Logger, changeLogRepo repos.ChangeLogRepo) ChangeLogService {
	serviceLog := baseLog.With("service", "ChangeLogService")
	return &changeLogService{db: db, log: serviceLog, changeLogRepo: changeLogRepo}
}

func (s *changeLogService) ListChanges(ctx context.Context, tx *gorm.DB, entityType, entityKey string, limit int) ([]*changes.LogEntry, error) {
	const op = "Northwind.ChangeLog.List"
	if limit < 0 {
		return nil, invalid(op, "limit must not be negative")
	}
	out, err := s.changeLogRepo.List(ctx, tx, repos.ChangeLogFilter{
		EntityType: strings.TrimSpace(entityType),
		EntityKey:  strings.TrimSpace(entityKey),
		Limit:      limit,
	})
	if err != nil {
		s.log.Error("ListChanges failed", "error", err)
		return nil, err
	}
	return out, nil
}
