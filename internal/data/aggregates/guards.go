package aggregates

import (
	"bytes"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/data/repos/entitystore"
	"github.com/yungbote/northwind-slim-backend/internal/platform/dbctx"
)

const rowVersionColumn = "row_version"

// CASGuard provides optimistic/concurrency guard helpers for aggregate writes.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// UpdateByRowVersion updates a row only when key+row version match.
// It implements compare-and-set semantics commonly used for optimistic locking.
func (g CASGuard) UpdateByRowVersion(dbc dbctx.Context, d *entitystore.Descriptor, expected []byte, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	if d == nil || strings.TrimSpace(d.Table) == "" || len(d.Key) == 0 {
		return false, ValidationError("table and key are required for UpdateByRowVersion")
	}
	if err := RequireRowVersion(expected); err != nil {
		return false, err
	}
	res := db.Table(d.Table).
		Where(d.Key).
		Where(rowVersionColumn+" = ?", expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteByRowVersion deletes a row only when key+row version match.
func (g CASGuard) DeleteByRowVersion(dbc dbctx.Context, d *entitystore.Descriptor, expected []byte) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	if d == nil || len(d.Key) == 0 {
		return false, ValidationError("key is required for DeleteByRowVersion")
	}
	if err := RequireRowVersion(expected); err != nil {
		return false, err
	}
	res := db.Where(d.Key).
		Where(rowVersionColumn+" = ?", expected).
		Delete(d.NewModel())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// StoredRowVersion reads the current row version; found is false when the
// row does not exist.
func (g CASGuard) StoredRowVersion(dbc dbctx.Context, d *entitystore.Descriptor) (current []byte, found bool, err error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return nil, false, err
	}
	var rows [][]byte
	if err := db.Table(d.Table).
		Where(d.Key).
		Limit(1).
		Pluck(rowVersionColumn, &rows).Error; err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

// RequireRowVersion rejects writes that carry no row version to compare.
func RequireRowVersion(v []byte) error {
	if len(v) == 0 {
		return PreconditionError("row version is required")
	}
	return nil
}

// RequireRowVersionMatch validates row version equality for optimistic locking flows.
func RequireRowVersionMatch(current, expected []byte) error {
	if err := RequireRowVersion(expected); err != nil {
		return err
	}
	if !bytes.Equal(current, expected) {
		return ConflictError("row version mismatch")
	}
	return nil
}
