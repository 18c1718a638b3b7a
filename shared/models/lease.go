package models

import (
	"time"
)

// LeaseType represents the contract form of a lease
type LeaseType string

const (
	LeaseFixed        LeaseType = "fixed"
	LeaseMonthToMonth LeaseType = "month_to_month"
	LeaseYearly       LeaseType = "yearly"
)

// LeaseStatus represents the status of a lease
type LeaseStatus string

const (
	LeaseActive       LeaseStatus = "active"
	LeaseExpiringSoon LeaseStatus = "expiring_soon"
	LeaseExpired      LeaseStatus = "expired"
	LeaseTerminated   LeaseStatus = "terminated"
	LeaseRenewed      LeaseStatus = "renewed"
)

// Lease binds one tenant to one unit for a period.
//
// Status is a cache of the derived status; read it through the lifecycle
// engine, which only trusts the stored value for terminated and renewed.
type Lease struct {
	Base
	TenantID   string `json:"tenant_id" gorm:"type:varchar(36);not null;index"`
	UnitID     string `json:"unit_id" gorm:"type:varchar(36);not null;index"`
	PropertyID string `json:"property_id" gorm:"type:varchar(36);not null;index"`

	MonthlyRent     float64 `json:"monthly_rent" gorm:"not null"`
	SecurityDeposit float64 `json:"security_deposit"`

	StartDate time.Time   `json:"start_date" gorm:"not null"`
	EndDate   time.Time   `json:"end_date" gorm:"not null;index"`
	LeaseType LeaseType   `json:"lease_type" gorm:"type:varchar(20);not null;default:'fixed'"`
	Status    LeaseStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`

	RenewalOption   bool       `json:"renewal_option"`
	LastRenewalDate *time.Time `json:"last_renewal_date,omitempty"`
	TerminatedAt    *time.Time `json:"terminated_at,omitempty"`

	PaymentDueDay     int     `json:"payment_due_day"`
	LateFee           float64 `json:"late_fee"`
	PetPolicy         string  `json:"pet_policy"`
	UtilitiesIncluded bool    `json:"utilities_included"`
	SpecialTerms      string  `json:"special_terms"`
}

// TableName returns the collection name for the Lease model
func (Lease) TableName() string {
	return "leases"
}

// ScopePropertyID returns the property the lease belongs to
func (l Lease) ScopePropertyID() string {
	return l.PropertyID
}

// References returns the lease's foreign keys
func (l Lease) References() []Reference {
	return []Reference{
		{Column: "tenant_id", Collection: "tenants", ID: l.TenantID, Required: true},
		{Column: "unit_id", Collection: "units", ID: l.UnitID, Required: true},
		{Column: "property_id", Collection: "properties", ID: l.PropertyID, Required: true},
	}
}

// IsTerminated reports whether the lease reached its terminal state
func (l *Lease) IsTerminated() bool {
	return l.Status == LeaseTerminated
}
