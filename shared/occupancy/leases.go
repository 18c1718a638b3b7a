package occupancy

import (
	"context"

	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/sirupsen/logrus"
)

// CreateLease stores an active lease. A vacant unit is assigned to the
// tenant in the same batch; a unit already occupied by the tenant only
// gains the lease. The lease terms are copied onto the tenant.
func (c *Coordinator) CreateLease(ctx context.Context, req models.CreateLeaseRequest) (*models.Lease, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	fields := logrus.Fields{"tenant_id": req.TenantID, "unit_id": req.UnitID, "property_id": req.PropertyID}

	var lease *models.Lease
	err := c.run(ctx, "create_lease", fields, func(b *batch) error {
		unit, err := b.tx.Units.GetByID(ctx, req.UnitID)
		if err != nil {
			return err
		}
		if unit.PropertyID != req.PropertyID {
			return constraintf("unit %s does not belong to property %s", unit.ID, req.PropertyID)
		}
		tenant, err := b.tx.Tenants.GetByID(ctx, req.TenantID)
		if err != nil {
			return err
		}

		live, err := c.liveLeases(b, unit.ID)
		if err != nil {
			return err
		}
		for _, l := range live {
			if l.TenantID != tenant.ID {
				return preconditionf("unit %s is held by live lease %s", unit.ID, l.ID)
			}
		}

		switch {
		case unit.Status == models.UnitVacant:
			if _, tenant, err = c.assign(b, tenant, unit); err != nil {
				return err
			}
		case unit.OccupiedBy(tenant.ID):
		default:
			return preconditionf("unit %s is %s", unit.ID, unit.Status)
		}

		lease = req.Build()
		if err := b.tx.Leases.Create(ctx, lease); err != nil {
			return err
		}
		_, err = b.tx.Tenants.UpdateIf(ctx, tenant.ID,
			models.Changes{"row_version": tenant.RowVersion},
			models.Changes{
				"lease_start_date": lease.StartDate,
				"lease_end_date":   lease.EndDate,
				"rent":             lease.MonthlyRent,
				"deposit":          lease.SecurityDeposit,
			})
		if err != nil {
			return err
		}

		b.emit(events.LeaseCreated, func(e *events.Event) {
			e.PropertyID, e.UnitID, e.TenantID, e.LeaseID = lease.PropertyID, lease.UnitID, lease.TenantID, lease.ID
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// RenewLease extends a lease to a new end date and resets it to active.
// Terminated leases cannot be renewed. A tenant who has left a vacant unit
// moves back in with the renewal; a unit taken by someone else blocks it.
func (c *Coordinator) RenewLease(ctx context.Context, leaseID string, req models.RenewLeaseRequest) (*models.Lease, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	var out *models.Lease
	err := c.run(ctx, "renew_lease", logrus.Fields{"lease_id": leaseID}, func(b *batch) error {
		lease, err := b.tx.Leases.GetByID(ctx, leaseID)
		if err != nil {
			return err
		}
		if !c.engine.CanRenew(lease) {
			return preconditionf("lease %s is terminated", lease.ID)
		}
		now := b.tx.Now()
		newEnd := req.EndDate.UTC()
		if !newEnd.After(now) || !newEnd.After(lease.EndDate) {
			return invalidf("end_date must be after today and after the current end date")
		}

		unit, err := b.tx.Units.GetByID(ctx, lease.UnitID)
		if err != nil {
			return err
		}
		switch {
		case unit.OccupiedBy(lease.TenantID):
		case unit.Status == models.UnitVacant:
			tenant, err := b.tx.Tenants.GetByID(ctx, lease.TenantID)
			if err != nil {
				return err
			}
			if _, _, err := c.assign(b, tenant, unit); err != nil {
				return err
			}
		default:
			return preconditionf("unit %s is %s and no longer held by the lease's tenant", unit.ID, unit.Status)
		}

		changes := models.Changes{
			"end_date":          newEnd,
			"last_renewal_date": now,
			"status":            models.LeaseActive,
		}
		if req.SpecialTerms != nil {
			changes["special_terms"] = *req.SpecialTerms
		}
		out, err = b.tx.Leases.UpdateIf(ctx, lease.ID, models.Changes{"row_version": lease.RowVersion}, changes)
		if err != nil {
			return err
		}

		tenant, err := b.tx.Tenants.GetByID(ctx, lease.TenantID)
		if err == nil && tenant.AssignedTo(lease.UnitID) {
			if _, err := b.tx.Tenants.UpdateIf(ctx, tenant.ID,
				models.Changes{"row_version": tenant.RowVersion},
				models.Changes{"lease_end_date": newEnd}); err != nil {
				return err
			}
		}

		b.emit(events.LeaseRenewed, func(e *events.Event) {
			e.PropertyID, e.UnitID, e.TenantID, e.LeaseID = lease.PropertyID, lease.UnitID, lease.TenantID, lease.ID
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TerminateLease ends a lease for good and releases the unit if the
// lease's tenant still occupies it. Terminating twice changes nothing.
func (c *Coordinator) TerminateLease(ctx context.Context, leaseID string) (*models.Lease, error) {
	var out *models.Lease
	err := c.run(ctx, "terminate_lease", logrus.Fields{"lease_id": leaseID}, func(b *batch) error {
		lease, err := b.tx.Leases.GetByID(ctx, leaseID)
		if err != nil {
			return err
		}
		if lease.IsTerminated() {
			out = lease
			return nil
		}

		out, err = b.tx.Leases.UpdateIf(ctx, lease.ID,
			models.Changes{"row_version": lease.RowVersion},
			models.Changes{"status": models.LeaseTerminated, "terminated_at": b.tx.Now()})
		if err != nil {
			return err
		}

		unit, err := b.tx.Units.GetByID(ctx, lease.UnitID)
		if err == nil && unit.OccupiedBy(lease.TenantID) {
			if _, err := c.release(b, unit, models.UnitVacant); err != nil {
				return err
			}
		}

		b.emit(events.LeaseTerminated, func(e *events.Event) {
			e.PropertyID, e.UnitID, e.TenantID, e.LeaseID = lease.PropertyID, lease.UnitID, lease.TenantID, lease.ID
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
