package app

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/db"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

const (
	DBProviderSQLite   = "sqlite"
	DBProviderPostgres = "postgres"
)

var openSQLite = func(log *logger.Logger, path string) (*gorm.DB, error) {
	svc, err := db.NewSQLiteService(log, path)
	if err != nil {
		return nil, err
	}
	return svc.DB(), nil
}

var openPostgres = func(log *logger.Logger, cfg db.PostgresConfig) (*gorm.DB, error) {
	svc, err := db.NewPostgresService(log, cfg)
	if err != nil {
		return nil, err
	}
	return svc.DB(), nil
}

type DBProviderBootstrapErrorCode string

const (
	DBProviderBootstrapErrorInvalidMode   DBProviderBootstrapErrorCode = "invalid_mode"
	DBProviderBootstrapErrorMissingTarget DBProviderBootstrapErrorCode = "missing_target"
	DBProviderBootstrapErrorConnectFailed DBProviderBootstrapErrorCode = "connect_failed"
	DBProviderBootstrapErrorMigrateFailed DBProviderBootstrapErrorCode = "migrate_failed"
	DBProviderBootstrapErrorSeedFailed    DBProviderBootstrapErrorCode = "seed_failed"
)

type DBProviderBootstrapError struct {
	Code   DBProviderBootstrapErrorCode
	Mode   string
	Target string
	Cause  error
}

func (e *DBProviderBootstrapError) Error() string {
	if e == nil {
		return "database bootstrap failed"
	}
	return fmt.Sprintf(
		"database bootstrap failed (code=%s mode=%q target=%q): %v",
		e.Code,
		e.Mode,
		e.Target,
		e.Cause,
	)
}

func (e *DBProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveDatabase opens the configured provider, migrates the schema and
// seeds fixtures when asked to.
func resolveDatabase(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBProvider))
	target := dbTarget(mode, cfg)

	fail := func(code DBProviderBootstrapErrorCode, cause error) error {
		err := &DBProviderBootstrapError{Code: code, Mode: mode, Target: target, Cause: cause}
		log.Error("Database provider bootstrap failed",
			"mode", mode,
			"target", target,
			"error_code", code,
			"error", err,
		)
		return err
	}

	var (
		gdb *gorm.DB
		err error
	)
	switch mode {
	case DBProviderSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, fail(DBProviderBootstrapErrorMissingTarget, errors.New("SQLITE_PATH is empty"))
		}
		log.Info("Selecting database provider", "mode", mode, "target", target)
		gdb, err = openSQLite(log, cfg.SQLitePath)
	case DBProviderPostgres:
		if strings.TrimSpace(cfg.Postgres.Host) == "" || strings.TrimSpace(cfg.Postgres.Name) == "" {
			return nil, fail(DBProviderBootstrapErrorMissingTarget, errors.New("POSTGRES_HOST and POSTGRES_NAME are required"))
		}
		log.Info("Selecting database provider", "mode", mode, "target", target)
		gdb, err = openPostgres(log, cfg.Postgres)
	default:
		return nil, fail(DBProviderBootstrapErrorInvalidMode, fmt.Errorf("unsupported database provider %q", cfg.DBProvider))
	}
	if err != nil {
		return nil, fail(DBProviderBootstrapErrorConnectFailed, err)
	}

	if err := db.AutoMigrateAll(gdb); err != nil {
		return nil, fail(DBProviderBootstrapErrorMigrateFailed, err)
	}
	if cfg.DBSeed {
		if _, err := db.Seed(gdb, log); err != nil {
			return nil, fail(DBProviderBootstrapErrorSeedFailed, err)
		}
	}
	return gdb, nil
}

func dbTarget(mode string, cfg Config) string {
	switch mode {
	case DBProviderSQLite:
		return cfg.SQLitePath
	case DBProviderPostgres:
		return cfg.Postgres.Host + ":" + cfg.Postgres.Port + "/" + cfg.Postgres.Name
	}
	return ""
}

func dbProviderBootstrapErrorCode(err error) DBProviderBootstrapErrorCode {
	var bootstrapErr *DBProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return DBProviderBootstrapErrorConnectFailed
}
