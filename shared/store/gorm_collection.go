package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pavitra93/go-property-management/shared/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

var schemaCache = &sync.Map{}

// gormCollection is the primary tier of a collection. Bound to a
// transaction it is also the batch-local view used by Store.Atomic.
type gormCollection[T models.Entity] struct {
	db      *gorm.DB
	name    string
	columns map[string]bool
	now     func() time.Time
}

func newGormCollection[T models.Entity](db *gorm.DB, now func() time.Time) *gormCollection[T] {
	var zero T
	columns := map[string]bool{}
	if sch, err := schema.Parse(&zero, schemaCache, db.NamingStrategy); err == nil {
		for _, f := range sch.Fields {
			if f.DBName != "" {
				columns[f.DBName] = true
			}
		}
	}
	return &gormCollection[T]{db: db, name: zero.TableName(), columns: columns, now: now}
}

func (c *gormCollection[T]) Name() string {
	return c.name
}

func (c *gormCollection[T]) Create(ctx context.Context, rec *T) error {
	if s, ok := any(rec).(models.Stampable); ok {
		s.Stamp(c.now())
	}
	if err := c.checkReferences(ctx, (*rec).References()); err != nil {
		return err
	}
	if err := c.db.WithContext(ctx).Create(rec).Error; err != nil {
		return classify(fmt.Errorf("create %s: %w", c.name, err))
	}
	return nil
}

func (c *gormCollection[T]) GetByID(ctx context.Context, id string) (*T, error) {
	var rec T
	err := c.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		err = classify(err)
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, c.name, id)
		}
		return nil, err
	}
	return &rec, nil
}

func (c *gormCollection[T]) GetAll(ctx context.Context) ([]T, error) {
	var recs []T
	if err := c.db.WithContext(ctx).Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, classify(err)
	}
	return recs, nil
}

func (c *gormCollection[T]) FindBy(ctx context.Context, column string, ids ...string) ([]T, error) {
	if !indexedColumns[column] || !c.columns[column] {
		return nil, fmt.Errorf("%w: %s has no indexed column %q", ErrInvalidField, c.name, column)
	}
	recs := []T{}
	if len(ids) == 0 {
		return recs, nil
	}
	err := c.db.WithContext(ctx).
		Where(clause.IN{Column: clause.Column{Name: column}, Values: toValues(ids)}).
		Order("created_at, id").
		Find(&recs).Error
	if err != nil {
		return nil, classify(err)
	}
	return recs, nil
}

func (c *gormCollection[T]) Update(ctx context.Context, id string, changes models.Changes) (*T, error) {
	return c.UpdateIf(ctx, id, nil, changes)
}

func (c *gormCollection[T]) UpdateIf(ctx context.Context, id string, expect, changes models.Changes) (*T, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: no fields to update on %s %s", ErrInvalidField, c.name, id)
	}
	assignments := make(map[string]interface{}, len(changes)+2)
	var refs []models.Reference
	for column, value := range changes {
		if err := c.checkWritable(column); err != nil {
			return nil, err
		}
		if target, ok := models.ForeignKeys[column]; ok {
			if refID, set := referenceID(value); set {
				refs = append(refs, models.Reference{Column: column, Collection: target, ID: refID})
			}
		}
		assignments[column] = value
	}
	if err := c.checkReferences(ctx, refs); err != nil {
		return nil, err
	}
	assignments["updated_at"] = c.now()
	assignments["row_version"] = gorm.Expr("row_version + 1")

	q := c.db.WithContext(ctx).Model(new(T)).Where("id = ?", id)
	for column, value := range expect {
		if !c.columns[column] {
			return nil, fmt.Errorf("%w: %s has no column %q", ErrInvalidField, c.name, column)
		}
		q = q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	}
	res := q.Updates(assignments)
	if res.Error != nil {
		return nil, classify(fmt.Errorf("update %s %s: %w", c.name, id, res.Error))
	}
	if res.RowsAffected == 0 {
		if _, err := c.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s %s was modified concurrently", ErrPreconditionFailed, c.name, id)
	}
	return c.GetByID(ctx, id)
}

func (c *gormCollection[T]) Delete(ctx context.Context, id string) error {
	res := c.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return classify(fmt.Errorf("delete %s %s: %w", c.name, id, res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, c.name, id)
	}
	return nil
}

func (c *gormCollection[T]) checkWritable(column string) error {
	for _, immutable := range models.ImmutableColumns {
		if column == immutable {
			return fmt.Errorf("%w: %s is immutable", ErrInvalidField, column)
		}
	}
	if column == "updated_at" || !c.columns[column] {
		return fmt.Errorf("%w: %s has no writable column %q", ErrInvalidField, c.name, column)
	}
	return nil
}

// checkReferences fails the write when a foreign key points at a missing
// or deleted record.
func (c *gormCollection[T]) checkReferences(ctx context.Context, refs []models.Reference) error {
	for _, ref := range refs {
		if ref.ID == "" {
			if ref.Required {
				return fmt.Errorf("%w: %s.%s is required", ErrConstraintViolation, c.name, ref.Column)
			}
			continue
		}
		var n int64
		err := c.db.WithContext(ctx).Table(ref.Collection).
			Where("id = ? AND deleted_at IS NULL", ref.ID).
			Count(&n).Error
		if err != nil {
			return classify(err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s.%s references missing %s %s",
				ErrConstraintViolation, c.name, ref.Column, ref.Collection, ref.ID)
		}
	}
	return nil
}

func referenceID(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, v != ""
	case *string:
		if v != nil && *v != "" {
			return *v, true
		}
	}
	return "", false
}

func toValues(ids []string) []interface{} {
	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return values
}
