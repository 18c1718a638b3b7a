// Package scope restricts records to the properties a user may see.
//
// A super_admin sees everything. An admin sees records whose property is
// in the user's assigned set; properties match on their own id. A missing
// user or an unknown role sees nothing.
package scope

import (
	"github.com/pavitra93/go-property-management/shared/models"
)

// Filter returns the records the user may see. The input is never modified.
func Filter[T models.Scoped](records []T, user *models.User) []T {
	if user == nil {
		return []T{}
	}
	switch user.Role {
	case models.RoleSuperAdmin:
		out := make([]T, len(records))
		copy(out, records)
		return out
	case models.RoleAdmin:
		allowed := assigned(user)
		out := make([]T, 0, len(records))
		for _, rec := range records {
			if allowed[rec.ScopePropertyID()] {
				out = append(out, rec)
			}
		}
		return out
	}
	return []T{}
}

// Allows reports whether the user may read or write within the property
func Allows(user *models.User, propertyID string) bool {
	if user == nil {
		return false
	}
	switch user.Role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleAdmin:
		return propertyID != "" && user.HasProperty(propertyID)
	}
	return false
}

// Visible reports whether a single record is in the user's scope
func Visible[T models.Scoped](rec T, user *models.User) bool {
	return Allows(user, rec.ScopePropertyID())
}

// PropertyIDs returns the user's assigned properties and whether the user
// is unrestricted. Callers use it to push the filter down to the store.
func PropertyIDs(user *models.User) (ids []string, all bool) {
	if user == nil {
		return nil, false
	}
	switch user.Role {
	case models.RoleSuperAdmin:
		return nil, true
	case models.RoleAdmin:
		return append([]string(nil), user.PropertyIDs...), false
	}
	return nil, false
}

// CanManageProperties reports whether the user may create or delete properties
func CanManageProperties(user *models.User) bool {
	return user != nil && user.IsSuperAdmin()
}

// CanManageUsers reports whether the user may administer staff accounts
func CanManageUsers(user *models.User) bool {
	return user != nil && user.IsSuperAdmin()
}

func assigned(user *models.User) map[string]bool {
	allowed := make(map[string]bool, len(user.PropertyIDs))
	for _, id := range user.PropertyIDs {
		allowed[id] = true
	}
	return allowed
}
