package testutil

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/db"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens a private in-memory SQLite database with foreign keys enforced
// and the full schema migrated. It is closed when the test ends.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	svc, err := db.NewSQLiteService(Logger(tb), "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}
	gdb := svc.DB()
	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// Tx begins a transaction that is rolled back when the test ends. Test
// databases hold a single connection, so code under test must use the
// returned handle rather than the pool while it is open.
func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := gdb.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
