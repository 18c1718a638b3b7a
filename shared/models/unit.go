package models

// UnitStatus represents the occupancy state of a unit
type UnitStatus string

const (
	UnitVacant      UnitStatus = "vacant"
	UnitOccupied    UnitStatus = "occupied"
	UnitMaintenance UnitStatus = "maintenance"
)

// Unit is a rentable space inside a property.
//
// Status, TenantID and TenantName are written only by the occupancy
// coordinator; they never appear in an update input.
type Unit struct {
	Base
	PropertyID string     `json:"property_id" gorm:"type:varchar(36);not null;index"`
	UnitNumber string     `json:"unit_number" gorm:"type:varchar(50);not null"`
	Type       string     `json:"type" gorm:"type:varchar(50)"`
	Bedrooms   int        `json:"bedrooms"`
	Rent       float64    `json:"rent" gorm:"not null;default:0"`
	Deposit    float64    `json:"deposit" gorm:"not null;default:0"`
	Status     UnitStatus `json:"status" gorm:"type:varchar(20);not null;default:'vacant';index"`
	TenantID   *string    `json:"tenant_id,omitempty" gorm:"type:varchar(36);index"`
	TenantName string     `json:"tenant_name,omitempty" gorm:"type:varchar(255)"`
}

// TableName returns the collection name for the Unit model
func (Unit) TableName() string {
	return "units"
}

// ScopePropertyID returns the owning property
func (u Unit) ScopePropertyID() string {
	return u.PropertyID
}

// References returns the unit's foreign keys
func (u Unit) References() []Reference {
	return []Reference{
		{Column: "property_id", Collection: "properties", ID: u.PropertyID, Required: true},
		optionalRef("tenant_id", "tenants", u.TenantID),
	}
}

// IsOccupied reports whether the unit currently has an occupant
func (u *Unit) IsOccupied() bool {
	return u.Status == UnitOccupied
}

// OccupiedBy reports whether the given tenant is the unit's occupant
func (u *Unit) OccupiedBy(tenantID string) bool {
	return u.Status == UnitOccupied && u.TenantID != nil && *u.TenantID == tenantID
}
