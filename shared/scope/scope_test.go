package scope

import (
	"testing"

	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/stretchr/testify/assert"
)

func unit(id, propertyID string) models.Unit {
	return models.Unit{Base: models.Base{ID: id}, PropertyID: propertyID}
}

func TestFilterAdminSeesAssignedProperties(t *testing.T) {
	units := []models.Unit{unit("u1", "P1"), unit("u2", "P2"), unit("u3", "P1")}
	admin := &models.User{Role: models.RoleAdmin, PropertyIDs: []string{"P1"}}

	got := Filter(units, admin)

	assert.Len(t, got, 2)
	for _, u := range got {
		assert.Equal(t, "P1", u.PropertyID)
	}
	assert.Len(t, units, 3, "input is untouched")
}

func TestFilterSuperAdminSeesEverything(t *testing.T) {
	units := []models.Unit{unit("u1", "P1"), unit("u2", "P2")}
	root := &models.User{Role: models.RoleSuperAdmin}

	assert.Equal(t, units, Filter(units, root))
}

func TestFilterFailsClosed(t *testing.T) {
	units := []models.Unit{unit("u1", "P1")}

	assert.Empty(t, Filter(units, nil))
	assert.NotNil(t, Filter(units, nil))
	assert.Empty(t, Filter(units, &models.User{Role: "tenant", PropertyIDs: []string{"P1"}}))
	assert.Empty(t, Filter(units, &models.User{Role: models.RoleAdmin}))
}

func TestFilterPropertiesMatchOwnID(t *testing.T) {
	props := []models.Property{
		{Base: models.Base{ID: "P1"}},
		{Base: models.Base{ID: "P2"}},
	}
	admin := &models.User{Role: models.RoleAdmin, PropertyIDs: []string{"P2"}}

	got := Filter(props, admin)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "P2", got[0].ID)
	}
}

func TestFilterLeases(t *testing.T) {
	leases := []models.Lease{{PropertyID: "P1"}, {PropertyID: "P2"}}
	admin := &models.User{Role: models.RoleAdmin, PropertyIDs: []string{"P2"}}

	assert.Len(t, Filter(leases, admin), 1)
}

func TestAllows(t *testing.T) {
	admin := &models.User{Role: models.RoleAdmin, PropertyIDs: []string{"P1"}}

	assert.True(t, Allows(admin, "P1"))
	assert.False(t, Allows(admin, "P2"))
	assert.False(t, Allows(admin, ""))
	assert.True(t, Allows(&models.User{Role: models.RoleSuperAdmin}, "anything"))
	assert.False(t, Allows(nil, "P1"))
	assert.False(t, Allows(&models.User{Role: "viewer", PropertyIDs: []string{"P1"}}, "P1"))

	assert.True(t, Visible(unit("u1", "P1"), admin))
}

func TestPropertyIDs(t *testing.T) {
	ids, all := PropertyIDs(&models.User{Role: models.RoleAdmin, PropertyIDs: []string{"P1", "P2"}})
	assert.False(t, all)
	assert.Equal(t, []string{"P1", "P2"}, ids)

	_, all = PropertyIDs(&models.User{Role: models.RoleSuperAdmin})
	assert.True(t, all)

	ids, all = PropertyIDs(nil)
	assert.False(t, all)
	assert.Empty(t, ids)
}

func TestManagementRights(t *testing.T) {
	assert.True(t, CanManageProperties(&models.User{Role: models.RoleSuperAdmin}))
	assert.False(t, CanManageProperties(&models.User{Role: models.RoleAdmin}))
	assert.False(t, CanManageUsers(nil))
}
