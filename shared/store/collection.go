package store

import (
	"context"

	"github.com/pavitra93/go-property-management/shared/models"
)

// Collection is typed access to one stored record type.
type Collection[T models.Entity] interface {
	// Name returns the collection (table) name.
	Name() string
	// Create stores rec, assigning its id and timestamps.
	Create(ctx context.Context, rec *T) error
	GetByID(ctx context.Context, id string) (*T, error)
	GetAll(ctx context.Context) ([]T, error)
	// FindBy returns the records whose column holds any of ids.
	FindBy(ctx context.Context, column string, ids ...string) ([]T, error)
	// Update merges changes into the record and returns the result.
	Update(ctx context.Context, id string, changes models.Changes) (*T, error)
	// UpdateIf applies changes only while every column in expect still holds
	// the expected value, failing with ErrPreconditionFailed otherwise.
	UpdateIf(ctx context.Context, id string, expect, changes models.Changes) (*T, error)
	Delete(ctx context.Context, id string) error
}

// GetByPropertyIDs returns the records belonging to any of the properties.
// For the properties collection the record's own id is matched.
func GetByPropertyIDs[T models.Entity](ctx context.Context, c Collection[T], propertyIDs ...string) ([]T, error) {
	column := "property_id"
	if c.Name() == (models.Property{}).TableName() {
		column = "id"
	}
	return c.FindBy(ctx, column, propertyIDs...)
}

// GetByPropertyID returns the records belonging to a property
func GetByPropertyID[T models.Entity](ctx context.Context, c Collection[T], propertyID string) ([]T, error) {
	return GetByPropertyIDs(ctx, c, propertyID)
}

// GetByUnitID returns the records referencing a unit
func GetByUnitID[T models.Entity](ctx context.Context, c Collection[T], unitID string) ([]T, error) {
	return c.FindBy(ctx, "unit_id", unitID)
}

// GetByTenantID returns the records referencing a tenant
func GetByTenantID[T models.Entity](ctx context.Context, c Collection[T], tenantID string) ([]T, error) {
	return c.FindBy(ctx, "tenant_id", tenantID)
}

// indexedColumns are the columns FindBy accepts.
var indexedColumns = map[string]bool{
	"id":          true,
	"property_id": true,
	"unit_id":     true,
	"tenant_id":   true,
}
