package models

import (
	"time"
)

// PaymentType represents what a payment is for
type PaymentType string

const (
	PaymentRent        PaymentType = "rent"
	PaymentDeposit     PaymentType = "deposit"
	PaymentLateFee     PaymentType = "late_fee"
	PaymentMaintenance PaymentType = "maintenance"
	PaymentUtilities   PaymentType = "utilities"
)

// PaymentStatus represents the settlement state of a payment
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
	PaymentPartial PaymentStatus = "partial"
)

// Payment is an amount owed by a tenant for a unit
type Payment struct {
	Base
	TenantID   string        `json:"tenant_id" gorm:"type:varchar(36);not null;index"`
	UnitID     string        `json:"unit_id" gorm:"type:varchar(36);not null;index"`
	PropertyID string        `json:"property_id" gorm:"type:varchar(36);not null;index"`
	Amount     float64       `json:"amount" gorm:"not null"`
	Type       PaymentType   `json:"type" gorm:"type:varchar(20);not null;default:'rent'"`
	Method     string        `json:"method" gorm:"type:varchar(50)"`
	DueDate    time.Time     `json:"due_date" gorm:"not null;index"`
	PaidDate   *time.Time    `json:"paid_date,omitempty"`
	Status     PaymentStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Reference  string        `json:"reference" gorm:"type:varchar(255)"`
	Notes      string        `json:"notes"`
}

// TableName returns the collection name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// ScopePropertyID returns the property the payment belongs to
func (p Payment) ScopePropertyID() string {
	return p.PropertyID
}

// References returns the payment's foreign keys
func (p Payment) References() []Reference {
	return []Reference{
		{Column: "tenant_id", Collection: "tenants", ID: p.TenantID, Required: true},
		{Column: "unit_id", Collection: "units", ID: p.UnitID, Required: true},
		{Column: "property_id", Collection: "properties", ID: p.PropertyID, Required: true},
	}
}
