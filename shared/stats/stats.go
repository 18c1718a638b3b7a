// Package stats reduces already scoped entity sets to dashboard metrics.
// Nothing here reads the store or filters by role.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/pavitra93/go-property-management/shared/lifecycle"
	"github.com/pavitra93/go-property-management/shared/models"
)

// Entities is the scoped input of Compute
type Entities struct {
	Properties  []models.Property
	Units       []models.Unit
	Tenants     []models.Tenant
	Leases      []models.Lease
	Payments    []models.Payment
	Maintenance []models.Maintenance
}

// PropertyRevenue is the expected monthly revenue of one property
type PropertyRevenue struct {
	PropertyID    string  `json:"property_id"`
	Name          string  `json:"name"`
	Units         int     `json:"units"`
	OccupiedUnits int     `json:"occupied_units"`
	Revenue       float64 `json:"revenue"`
}

// Dashboard holds the computed metrics. Rates are percentages.
type Dashboard struct {
	TotalProperties    int               `json:"total_properties"`
	TotalUnits         int               `json:"total_units"`
	OccupiedUnits      int               `json:"occupied_units"`
	VacantUnits        int               `json:"vacant_units"`
	MaintenanceUnits   int               `json:"maintenance_units"`
	OccupancyRate      float64           `json:"occupancy_rate"`
	TotalTenants       int               `json:"total_tenants"`
	TotalRevenue       float64           `json:"total_revenue"`
	CollectedThisMonth float64           `json:"collected_this_month"`
	CollectionRate     float64           `json:"collection_rate"`
	PendingPayments    int               `json:"pending_payments"`
	OverduePayments    int               `json:"overdue_payments"`
	OverdueAmount      float64           `json:"overdue_amount"`
	OpenMaintenance    int               `json:"open_maintenance"`
	UrgentMaintenance  int               `json:"urgent_maintenance"`
	ActiveLeases       int               `json:"active_leases"`
	ExpiringLeases     int               `json:"expiring_leases"`
	RevenueByProperty  []PropertyRevenue `json:"revenue_by_property"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

// Compute reduces the scoped entities. Lease and payment statuses are the
// engine's derived values, never the stored ones.
func Compute(in Entities, engine *lifecycle.Engine) Dashboard {
	now := engine.Now()
	d := Dashboard{
		TotalProperties: len(in.Properties),
		TotalUnits:      len(in.Units),
		TotalTenants:    len(in.Tenants),
		GeneratedAt:     now,
	}

	byProperty := make(map[string]*PropertyRevenue, len(in.Properties))
	for _, p := range in.Properties {
		byProperty[p.ID] = &PropertyRevenue{PropertyID: p.ID, Name: p.Name}
	}
	row := func(propertyID string) *PropertyRevenue {
		r, ok := byProperty[propertyID]
		if !ok {
			r = &PropertyRevenue{PropertyID: propertyID}
			byProperty[propertyID] = r
		}
		return r
	}

	for i := range in.Units {
		u := &in.Units[i]
		r := row(u.PropertyID)
		r.Units++
		switch u.Status {
		case models.UnitOccupied:
			d.OccupiedUnits++
			r.OccupiedUnits++
		case models.UnitMaintenance:
			d.MaintenanceUnits++
		default:
			d.VacantUnits++
		}
	}
	d.OccupancyRate = percent(float64(d.OccupiedUnits), float64(d.TotalUnits))

	for i := range in.Tenants {
		t := &in.Tenants[i]
		d.TotalRevenue += t.Rent
		row(t.PropertyID).Revenue += t.Rent
	}

	for i := range in.Payments {
		p := &in.Payments[i]
		switch engine.PaymentStatus(p) {
		case models.PaymentPaid:
			if p.PaidDate != nil && sameMonth(*p.PaidDate, now) {
				d.CollectedThisMonth += p.Amount
			}
		case models.PaymentPending:
			d.PendingPayments++
		case models.PaymentOverdue:
			d.OverduePayments++
			d.OverdueAmount += p.Amount
		}
	}
	d.CollectionRate = percent(d.CollectedThisMonth, d.TotalRevenue)

	for i := range in.Maintenance {
		m := &in.Maintenance[i]
		if !m.IsOpen() {
			continue
		}
		d.OpenMaintenance++
		if m.Priority == models.PriorityUrgent {
			d.UrgentMaintenance++
		}
	}

	for i := range in.Leases {
		l := &in.Leases[i]
		switch engine.EffectiveStatus(l) {
		case models.LeaseActive, models.LeaseRenewed:
			d.ActiveLeases++
		case models.LeaseExpiringSoon:
			d.ActiveLeases++
			d.ExpiringLeases++
		}
	}

	d.RevenueByProperty = make([]PropertyRevenue, 0, len(byProperty))
	for _, r := range byProperty {
		d.RevenueByProperty = append(d.RevenueByProperty, *r)
	}
	sort.Slice(d.RevenueByProperty, func(i, j int) bool {
		a, b := d.RevenueByProperty[i], d.RevenueByProperty[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.PropertyID < b.PropertyID
	})
	return d
}

// percent returns part/whole as a percentage rounded to one decimal, or 0
// when whole is not positive.
func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(part/whole*1000) / 10
}

func sameMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}
