package occupancy

import (
	"testing"
	"time"

	"github.com/pavitra93/go-property-management/shared/lifecycle"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/testutil"
	"github.com/stretchr/testify/assert"
)

var auditEngine = lifecycle.NewEngine(90, func() time.Time { return testutil.Epoch })

func ptr(s string) *string { return &s }

func unitRec(id string, status models.UnitStatus, tenantID *string) models.Unit {
	u := models.Unit{UnitNumber: id, Status: status, TenantID: tenantID}
	u.ID = id
	return u
}

func tenantRec(id string, unitID *string) models.Tenant {
	t := models.Tenant{Name: id, UnitID: unitID}
	t.ID = id
	return t
}

func leaseRec(id, tenantID, unitID string, status models.LeaseStatus, end time.Time) models.Lease {
	l := models.Lease{TenantID: tenantID, UnitID: unitID, Status: status, StartDate: end.AddDate(-1, 0, 0), EndDate: end}
	l.ID = id
	return l
}

func TestAuditConsistentPairs(t *testing.T) {
	report := Audit(
		[]models.Unit{
			unitRec("u1", models.UnitOccupied, ptr("t1")),
			unitRec("u2", models.UnitVacant, nil),
			unitRec("u3", models.UnitMaintenance, nil),
		},
		[]models.Tenant{tenantRec("t1", ptr("u1")), tenantRec("t2", nil)},
		[]models.Lease{
			leaseRec("l1", "t1", "u1", models.LeaseActive, testutil.Epoch.AddDate(1, 0, 0)),
			// history on a vacant unit is fine once the lease no longer binds
			leaseRec("l2", "t2", "u2", models.LeaseActive, testutil.Epoch.AddDate(0, -1, 0)),
			leaseRec("l3", "t2", "u3", models.LeaseTerminated, testutil.Epoch.AddDate(1, 0, 0)),
		},
		auditEngine,
	)
	assert.True(t, report.Consistent(), "violations: %+v", report.Violations)
	assert.Equal(t, 3, report.UnitsChecked)
	assert.Equal(t, 2, report.TenantsChecked)
	assert.Equal(t, 3, report.LeasesChecked)
	assert.NotNil(t, report.Violations)
}

func TestAuditViolations(t *testing.T) {
	tests := []struct {
		name    string
		units   []models.Unit
		tenants []models.Tenant
		leases  []models.Lease
		want    []ViolationKind
	}{
		{
			name:  "occupied without tenant",
			units: []models.Unit{unitRec("u1", models.UnitOccupied, nil)},
			want:  []ViolationKind{OccupiedWithoutTenant},
		},
		{
			name:  "occupied by missing tenant",
			units: []models.Unit{unitRec("u1", models.UnitOccupied, ptr("ghost"))},
			want:  []ViolationKind{DanglingTenant},
		},
		{
			name:    "tenant points elsewhere",
			units:   []models.Unit{unitRec("u1", models.UnitOccupied, ptr("t1")), unitRec("u2", models.UnitVacant, nil)},
			tenants: []models.Tenant{tenantRec("t1", ptr("u2"))},
			want:    []ViolationKind{MismatchedTenant, MismatchedUnit},
		},
		{
			name:    "vacant unit keeps tenant",
			units:   []models.Unit{unitRec("u1", models.UnitVacant, ptr("t1"))},
			tenants: []models.Tenant{tenantRec("t1", nil)},
			want:    []ViolationKind{StaleTenantRef},
		},
		{
			name:    "tenant on missing unit",
			tenants: []models.Tenant{tenantRec("t1", ptr("gone"))},
			want:    []ViolationKind{DanglingUnit},
		},
		{
			name:   "live lease on vacant unit",
			units:  []models.Unit{unitRec("u1", models.UnitVacant, nil)},
			leases: []models.Lease{leaseRec("l1", "t1", "u1", models.LeaseActive, testutil.Epoch.AddDate(1, 0, 0))},
			want:   []ViolationKind{UnboundLease},
		},
		{
			name:    "live lease on unit occupied by someone else",
			units:   []models.Unit{unitRec("u1", models.UnitOccupied, ptr("t2"))},
			tenants: []models.Tenant{tenantRec("t2", ptr("u1"))},
			leases:  []models.Lease{leaseRec("l1", "t1", "u1", models.LeaseRenewed, testutil.Epoch.AddDate(0, 0, 30))},
			want:    []ViolationKind{UnboundLease},
		},
		{
			name:   "live lease on missing unit",
			leases: []models.Lease{leaseRec("l1", "t1", "gone", models.LeaseActive, testutil.Epoch.AddDate(1, 0, 0))},
			want:   []ViolationKind{UnboundLease},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Audit(tt.units, tt.tenants, tt.leases, auditEngine)
			assert.False(t, report.Consistent())
			got := make([]ViolationKind, len(report.Violations))
			for i, v := range report.Violations {
				got[i] = v.Kind
				assert.NotEmpty(t, v.Detail)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
