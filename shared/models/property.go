package models

// PropertyType classifies a property
type PropertyType string

const (
	PropertyResidential PropertyType = "residential"
	PropertyCommercial  PropertyType = "commercial"
	PropertyMixed       PropertyType = "mixed"
)

// Property is a managed building or estate that owns units.
type Property struct {
	Base
	Name        string       `json:"name" gorm:"type:varchar(255);not null"`
	Address     string       `json:"address" gorm:"type:varchar(500)"`
	City        string       `json:"city" gorm:"type:varchar(120)"`
	Type        PropertyType `json:"type" gorm:"type:varchar(20);not null;default:'residential'"`
	Description string       `json:"description"`
	ManagerID   string       `json:"manager_id" gorm:"type:varchar(255);index"`

	// TotalUnits caches the number of units under the property.
	TotalUnits int `json:"total_units" gorm:"not null;default:0"`
}

// TableName returns the collection name for the Property model
func (Property) TableName() string {
	return "properties"
}

// ScopePropertyID returns the property's own id; a property is visible when its id is assigned.
func (p Property) ScopePropertyID() string {
	return p.ID
}

// References returns no foreign keys; properties are roots.
func (Property) References() []Reference {
	return nil
}
