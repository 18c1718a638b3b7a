package models

import (
	"time"
)

// UserRole is the back-office role of a staff user
type UserRole string

const (
	RoleSuperAdmin UserRole = "super_admin"
	RoleAdmin      UserRole = "admin"
)

// User is a staff account. Its id is the identity provider's subject.
type User struct {
	Base
	Email       string     `json:"email" gorm:"type:varchar(255);index"`
	Name        string     `json:"name" gorm:"type:varchar(255)"`
	Role        UserRole   `json:"role" gorm:"type:varchar(20);not null;default:'admin'"`
	PropertyIDs []string   `json:"property_ids" gorm:"type:text;serializer:json"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// TableName returns the collection name for the User model
func (User) TableName() string {
	return "users"
}

// References returns no foreign keys; assigned property ids are checked by the user handlers.
func (User) References() []Reference {
	return nil
}

// IsSuperAdmin reports whether the user sees every property
func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// IsAdmin reports whether the user is a property-scoped admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasProperty reports whether the property is in the user's assigned set
func (u *User) HasProperty(propertyID string) bool {
	for _, id := range u.PropertyIDs {
		if id == propertyID {
			return true
		}
	}
	return false
}
