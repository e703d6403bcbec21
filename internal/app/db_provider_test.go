package app

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/db"
	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

func TestResolveDatabaseInvalidMode(t *testing.T) {
	_, err := resolveDatabase(logger.Nop(), Config{DBProvider: "mongo"})

	var got *DBProviderBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected DBProviderBootstrapError, got=%T", err)
	}
	if got.Code != DBProviderBootstrapErrorInvalidMode {
		t.Fatalf("code: want=%q got=%q", DBProviderBootstrapErrorInvalidMode, got.Code)
	}
}

func TestResolveDatabaseMissingTarget(t *testing.T) {
	cases := []Config{
		{DBProvider: DBProviderSQLite},
		{DBProvider: DBProviderPostgres, Postgres: db.PostgresConfig{Port: "5432"}},
	}
	for _, cfg := range cases {
		_, err := resolveDatabase(logger.Nop(), cfg)
		if code := dbProviderBootstrapErrorCode(err); code != DBProviderBootstrapErrorMissingTarget {
			t.Fatalf("%s: code: want=%q got=%q", cfg.DBProvider, DBProviderBootstrapErrorMissingTarget, code)
		}
	}
}

func TestResolveDatabaseConnectFailed(t *testing.T) {
	prev := openPostgres
	t.Cleanup(func() { openPostgres = prev })
	cause := errors.New("dial tcp: connection refused")
	openPostgres = func(*logger.Logger, db.PostgresConfig) (*gorm.DB, error) { return nil, cause }

	_, err := resolveDatabase(logger.Nop(), Config{
		DBProvider: DBProviderPostgres,
		Postgres:   db.PostgresConfig{Host: "db", Port: "5432", Name: "northwind"},
	})

	var got *DBProviderBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected DBProviderBootstrapError, got=%T", err)
	}
	if got.Code != DBProviderBootstrapErrorConnectFailed {
		t.Fatalf("code: want=%q got=%q", DBProviderBootstrapErrorConnectFailed, got.Code)
	}
	if got.Target != "db:5432/northwind" {
		t.Fatalf("target: got=%q", got.Target)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
}

func TestResolveDatabaseSQLiteSeeds(t *testing.T) {
	gdb, err := resolveDatabase(logger.Nop(), Config{
		DBProvider: DBProviderSQLite,
		SQLitePath: "file:app-bootstrap?mode=memory&cache=shared",
		DBSeed:     true,
	})
	if err != nil {
		t.Fatalf("resolveDatabase: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	var count int64
	if err := gdb.Model(&northwind.Customer{}).Count(&count).Error; err != nil {
		t.Fatalf("count customers: %v", err)
	}
	if count == 0 {
		t.Fatalf("expected seeded customers")
	}
}

func TestDBProviderBootstrapErrorCodeDefault(t *testing.T) {
	if code := dbProviderBootstrapErrorCode(errors.New("boom")); code != DBProviderBootstrapErrorConnectFailed {
		t.Fatalf("code = %q", code)
	}
}
