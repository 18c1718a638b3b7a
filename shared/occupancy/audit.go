package occupancy

import (
	"fmt"
	"sort"

	"github.com/pavitra93/go-property-management/shared/lifecycle"
	"github.com/pavitra93/go-property-management/shared/models"
)

// ViolationKind names a broken unit/tenant cross-reference
type ViolationKind string

const (
	OccupiedWithoutTenant ViolationKind = "occupied_without_tenant"
	DanglingTenant        ViolationKind = "dangling_tenant"
	MismatchedTenant      ViolationKind = "mismatched_tenant"
	StaleTenantRef        ViolationKind = "stale_tenant_ref"
	DanglingUnit          ViolationKind = "dangling_unit"
	MismatchedUnit        ViolationKind = "mismatched_unit"
	UnboundLease          ViolationKind = "unbound_lease"
)

// Violation is one record pair breaking the occupancy invariant
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	UnitID   string        `json:"unit_id,omitempty"`
	TenantID string        `json:"tenant_id,omitempty"`
	LeaseID  string        `json:"lease_id,omitempty"`
	Detail   string        `json:"detail"`
}

// Report is the result of an integrity audit
type Report struct {
	UnitsChecked   int         `json:"units_checked"`
	TenantsChecked int         `json:"tenants_checked"`
	LeasesChecked  int         `json:"leases_checked"`
	Violations     []Violation `json:"violations"`
}

// Consistent reports whether the audit found nothing
func (r Report) Consistent() bool {
	return len(r.Violations) == 0
}

// Audit checks that every occupied unit and its tenant point at each other,
// and that every live lease's unit is occupied by the lease's tenant.
// It reads only its arguments; pass the same scoped sets the caller sees.
func Audit(units []models.Unit, tenants []models.Tenant, leases []models.Lease, engine *lifecycle.Engine) Report {
	report := Report{
		UnitsChecked:   len(units),
		TenantsChecked: len(tenants),
		LeasesChecked:  len(leases),
		Violations:     []Violation{},
	}

	unitByID := make(map[string]*models.Unit, len(units))
	for i := range units {
		unitByID[units[i].ID] = &units[i]
	}
	tenantByID := make(map[string]*models.Tenant, len(tenants))
	for i := range tenants {
		tenantByID[tenants[i].ID] = &tenants[i]
	}

	add := func(kind ViolationKind, unitID, tenantID, format string, args ...interface{}) {
		report.Violations = append(report.Violations, Violation{
			Kind: kind, UnitID: unitID, TenantID: tenantID, Detail: fmt.Sprintf(format, args...),
		})
	}

	for i := range units {
		u := &units[i]
		switch {
		case u.IsOccupied() && u.TenantID == nil:
			add(OccupiedWithoutTenant, u.ID, "", "unit %s is occupied but names no tenant", u.UnitNumber)
		case u.IsOccupied():
			t, ok := tenantByID[*u.TenantID]
			if !ok {
				add(DanglingTenant, u.ID, *u.TenantID, "unit %s names a tenant that does not exist", u.UnitNumber)
			} else if !t.AssignedTo(u.ID) {
				add(MismatchedTenant, u.ID, t.ID, "unit %s names tenant %s who is not assigned to it", u.UnitNumber, t.Name)
			}
		case u.TenantID != nil:
			add(StaleTenantRef, u.ID, *u.TenantID, "unit %s is %s but still names a tenant", u.UnitNumber, u.Status)
		}
	}

	for i := range tenants {
		t := &tenants[i]
		if t.UnitID == nil {
			continue
		}
		u, ok := unitByID[*t.UnitID]
		if !ok {
			add(DanglingUnit, *t.UnitID, t.ID, "tenant %s is assigned to a unit that does not exist", t.Name)
			continue
		}
		if !u.OccupiedBy(t.ID) {
			add(MismatchedUnit, u.ID, t.ID, "tenant %s is assigned to unit %s which does not name them", t.Name, u.UnitNumber)
		}
	}

	for i := range leases {
		l := &leases[i]
		if !engine.IsLive(l) {
			continue
		}
		u, ok := unitByID[l.UnitID]
		switch {
		case !ok:
			report.Violations = append(report.Violations, Violation{
				Kind: UnboundLease, UnitID: l.UnitID, TenantID: l.TenantID, LeaseID: l.ID,
				Detail: fmt.Sprintf("live lease %s refers to a unit that does not exist", l.ID),
			})
		case !u.OccupiedBy(l.TenantID):
			report.Violations = append(report.Violations, Violation{
				Kind: UnboundLease, UnitID: u.ID, TenantID: l.TenantID, LeaseID: l.ID,
				Detail: fmt.Sprintf("live lease %s holds unit %s, which is %s and not occupied by its tenant", l.ID, u.UnitNumber, u.Status),
			})
		}
	}

	sort.SliceStable(report.Violations, func(i, j int) bool {
		a, b := report.Violations[i], report.Violations[j]
		if a.UnitID != b.UnitID {
			return a.UnitID < b.UnitID
		}
		return a.Kind < b.Kind
	})
	return report
}
