package models

import (
	"time"
)

// EmergencyContact is stored inline on the tenant row
type EmergencyContact struct {
	Name         string `json:"name" gorm:"type:varchar(255)"`
	Phone        string `json:"phone" gorm:"type:varchar(50)"`
	Relationship string `json:"relationship" gorm:"type:varchar(100)"`
}

// Tenant represents a renter. A tenant is assigned to at most one unit at a time.
type Tenant struct {
	Base
	Name     string `json:"name" gorm:"type:varchar(255);not null"`
	Email    string `json:"email" gorm:"type:varchar(255);index"`
	Phone    string `json:"phone" gorm:"type:varchar(50)"`
	IDNumber string `json:"id_number" gorm:"type:varchar(100)"`

	// PropertyID scopes the tenant; it follows the assigned unit.
	PropertyID string `json:"property_id" gorm:"type:varchar(36);not null;index"`

	// Assignment, written only by the occupancy coordinator.
	UnitID       *string `json:"unit_id,omitempty" gorm:"type:varchar(36);index"`
	UnitNumber   string  `json:"unit_number,omitempty" gorm:"type:varchar(50)"`
	PropertyName string  `json:"property_name,omitempty" gorm:"type:varchar(255)"`

	// Terms of the current lease, copied when a lease is created or renewed.
	LeaseStartDate *time.Time `json:"lease_start_date,omitempty"`
	LeaseEndDate   *time.Time `json:"lease_end_date,omitempty"`
	Rent           float64    `json:"rent"`
	Deposit        float64    `json:"deposit"`

	EmergencyContact EmergencyContact `json:"emergency_contact" gorm:"embedded;embeddedPrefix:emergency_"`
}

// TableName returns the collection name for the Tenant model
func (Tenant) TableName() string {
	return "tenants"
}

// ScopePropertyID returns the property the tenant belongs to
func (t Tenant) ScopePropertyID() string {
	return t.PropertyID
}

// References returns the tenant's foreign keys
func (t Tenant) References() []Reference {
	return []Reference{
		{Column: "property_id", Collection: "properties", ID: t.PropertyID, Required: true},
		optionalRef("unit_id", "units", t.UnitID),
	}
}

// AssignedTo reports whether the tenant currently points at the unit
func (t *Tenant) AssignedTo(unitID string) bool {
	return t.UnitID != nil && *t.UnitID == unitID
}
