package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the bookkeeping columns shared by every collection.
type Base struct {
	ID         string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	RowVersion int64          `json:"row_version" gorm:"not null;default:1"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// GetID returns the record id
func (b Base) GetID() string {
	return b.ID
}

// BeforeCreate assigns an id when the caller did not supply one
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.RowVersion == 0 {
		b.RowVersion = 1
	}
	return nil
}

// Stamp sets the server-assigned timestamps of a record about to be created
func (b *Base) Stamp(now time.Time) {
	b.CreatedAt = now
	b.UpdatedAt = now
}

// Entity is implemented by every stored record type.
type Entity interface {
	GetID() string
	TableName() string
	References() []Reference
}

// Stampable is implemented by pointers to stored records.
type Stampable interface {
	Stamp(now time.Time)
}

// Scoped is implemented by records that belong to a property.
type Scoped interface {
	ScopePropertyID() string
}

// Reference describes a foreign key held by a record.
type Reference struct {
	Column     string
	Collection string
	ID         string
	Required   bool
}

// Changes is a partial update keyed by column name.
type Changes map[string]interface{}

// ForeignKeys maps foreign-key columns to the collection they point at.
var ForeignKeys = map[string]string{
	"property_id": "properties",
	"unit_id":     "units",
	"tenant_id":   "tenants",
}

// ImmutableColumns cannot be written through a partial update.
var ImmutableColumns = []string{"id", "created_at", "row_version", "deleted_at"}

// All lists every stored model for auto-migration.
func All() []interface{} {
	return []interface{}{
		&Property{},
		&Unit{},
		&Tenant{},
		&Lease{},
		&Payment{},
		&Maintenance{},
		&User{},
		&Activity{},
	}
}

func optionalRef(column, collection string, id *string) Reference {
	ref := Reference{Column: column, Collection: collection}
	if id != nil {
		ref.ID = *id
	}
	return ref
}
