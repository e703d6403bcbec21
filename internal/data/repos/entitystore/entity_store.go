// Package entitystore writes single entities of any registered type. It is
// the table-level building block the graph save composes.
package entitystore

import (
	"context"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/yungbote/northwind-slim-backend/internal/domain/northwind"
	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

// Descriptor is the storage view of one entity instance.
type Descriptor struct {
	Table  string
	Key    map[string]any
	schema *schema.Schema
	value  reflect.Value
}

// Describe resolves the table and primary key of e.
func Describe(ctx context.Context, db *gorm.DB, e northwind.Entity) (*Descriptor, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(e); err != nil {
		return nil, fmt.Errorf("parse %s schema: %w", e.EntityName(), err)
	}
	sch := stmt.Schema
	rv := reflect.Indirect(reflect.ValueOf(e))
	key := make(map[string]any, len(sch.PrimaryFields))
	for _, f := range sch.PrimaryFields {
		v, zero := f.ValueOf(ctx, rv)
		if zero {
			return nil, fmt.Errorf("%s has no primary key value", e.EntityName())
		}
		key[f.DBName] = v
	}
	return &Descriptor{Table: sch.Table, Key: key, schema: sch, value: rv}, nil
}

// Columns maps property names to column values. An empty list selects every
// persisted non-key property.
func (d *Descriptor) Columns(ctx context.Context, e northwind.Entity, props []string) (map[string]any, error) {
	if len(props) == 0 {
		props = tracking.PropertyNames(e)
	}
	out := make(map[string]any, len(props))
	for _, name := range props {
		f := d.schema.LookUpField(name)
		if f == nil || f.DBName == "" {
			return nil, fmt.Errorf("%w on %s: %s", tracking.ErrUnknownProperty, e.EntityName(), name)
		}
		if f.PrimaryKey {
			continue
		}
		v, _ := f.ValueOf(ctx, d.value)
		out[f.DBName] = v
	}
	return out, nil
}

// NewModel returns a zero value of the described type, for statements that
// need a model but must not pick up the instance's own key.
func (d *Descriptor) NewModel() any {
	return reflect.New(d.value.Type()).Interface()
}

// ColumnName returns the column backing a property.
func (d *Descriptor) ColumnName(prop string) string {
	if f := d.schema.LookUpField(prop); f != nil {
		return f.DBName
	}
	return ""
}

type EntityStore interface {
	Insert(ctx context.Context, tx *gorm.DB, e northwind.Entity) error
	// Update writes the named properties (all when empty) and reports rows affected.
	Update(ctx context.Context, tx *gorm.DB, e northwind.Entity, props []string) (int64, error)
	Delete(ctx context.Context, tx *gorm.DB, e northwind.Entity) (int64, error)
}

type entityStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntityStore(db *gorm.DB, baseLog *logger.Logger) EntityStore {
	repoLog := baseLog.With("repo", "EntityStore")
	return &entityStore{db: db, log: repoLog}
}

func (r *entityStore) Insert(ctx context.Context, tx *gorm.DB, e northwind.Entity) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Omit(clause.Associations).
		Create(e).Error
}

func (r *entityStore) Update(ctx context.Context, tx *gorm.DB, e northwind.Entity, props []string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	d, err := Describe(ctx, transaction, e)
	if err != nil {
		return 0, err
	}
	cols, err := d.Columns(ctx, e, props)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return r.count(ctx, transaction, d)
	}
	res := transaction.WithContext(ctx).
		Table(d.Table).
		Where(d.Key).
		Updates(cols)
	return res.RowsAffected, res.Error
}

func (r *entityStore) Delete(ctx context.Context, tx *gorm.DB, e northwind.Entity) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	d, err := Describe(ctx, transaction, e)
	if err != nil {
		return 0, err
	}
	res := transaction.WithContext(ctx).
		Where(d.Key).
		Delete(d.NewModel())
	return res.RowsAffected, res.Error
}

// count stands in for an update with nothing to write, so a missing row is
// still reported.
func (r *entityStore) count(ctx context.Context, tx *gorm.DB, d *Descriptor) (int64, error) {
	var n int64
	err := tx.WithContext(ctx).Table(d.Table).Where(d.Key).Count(&n).Error
	return n, err
}
