package models

import (
	"time"
)

// MaintenancePriority ranks a maintenance request
type MaintenancePriority string

const (
	PriorityLow    MaintenancePriority = "low"
	PriorityMedium MaintenancePriority = "medium"
	PriorityHigh   MaintenancePriority = "high"
	PriorityUrgent MaintenancePriority = "urgent"
)

// MaintenanceStatus represents the progress of a maintenance request
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

// Maintenance is an upkeep request against a property and optionally a unit
type Maintenance struct {
	Base
	PropertyID    string              `json:"property_id" gorm:"type:varchar(36);not null;index"`
	UnitID        *string             `json:"unit_id,omitempty" gorm:"type:varchar(36);index"`
	TenantID      *string             `json:"tenant_id,omitempty" gorm:"type:varchar(36);index"`
	Title         string              `json:"title" gorm:"type:varchar(255);not null"`
	Description   string              `json:"description"`
	Category      string              `json:"category" gorm:"type:varchar(50)"`
	Priority      MaintenancePriority `json:"priority" gorm:"type:varchar(20);not null;default:'medium'"`
	Status        MaintenanceStatus   `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	EstimatedCost *float64            `json:"estimated_cost,omitempty"`
	ActualCost    *float64            `json:"actual_cost,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
}

// TableName returns the collection name for the Maintenance model
func (Maintenance) TableName() string {
	return "maintenance"
}

// ScopePropertyID returns the property the request belongs to
func (m Maintenance) ScopePropertyID() string {
	return m.PropertyID
}

// References returns the request's foreign keys
func (m Maintenance) References() []Reference {
	return []Reference{
		{Column: "property_id", Collection: "properties", ID: m.PropertyID, Required: true},
		optionalRef("unit_id", "units", m.UnitID),
		optionalRef("tenant_id", "tenants", m.TenantID),
	}
}

// IsOpen reports whether the request still needs work
func (m *Maintenance) IsOpen() bool {
	return m.Status == MaintenancePending || m.Status == MaintenanceInProgress
}
