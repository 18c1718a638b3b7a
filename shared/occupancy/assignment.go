package occupancy

import (
	"context"
	"errors"

	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/sirupsen/logrus"
)

// AssignTenantToUnit moves a tenant into a vacant unit. A tenant assigned
// elsewhere is released from the old unit in the same batch. Assigning a
// tenant to the unit it already occupies changes nothing.
func (c *Coordinator) AssignTenantToUnit(ctx context.Context, tenantID, unitID string) (*Occupancy, error) {
	var out Occupancy
	err := c.run(ctx, "assign", logrus.Fields{"tenant_id": tenantID, "unit_id": unitID}, func(b *batch) error {
		tenant, err := b.tx.Tenants.GetByID(ctx, tenantID)
		if err != nil {
			return err
		}
		unit, err := b.tx.Units.GetByID(ctx, unitID)
		if err != nil {
			return err
		}
		out.Unit, out.Tenant, err = c.assign(b, tenant, unit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ReleaseUnit vacates a unit and clears its tenant's assignment. A unit
// without an occupant is returned unchanged and nothing is written. An
// occupant held by a live lease is only released by TerminateLease.
func (c *Coordinator) ReleaseUnit(ctx context.Context, unitID string) (*models.Unit, error) {
	var out *models.Unit
	err := c.run(ctx, "release", logrus.Fields{"unit_id": unitID}, func(b *batch) error {
		unit, err := b.tx.Units.GetByID(ctx, unitID)
		if err != nil {
			return err
		}
		next := models.UnitVacant
		if unit.Status == models.UnitMaintenance {
			next = models.UnitMaintenance
		}
		out, err = c.release(b, unit, next)
		return err
	})
	return out, err
}

// MarkUnitMaintenance takes a unit out of service, releasing any occupant
// not held by a live lease
func (c *Coordinator) MarkUnitMaintenance(ctx context.Context, unitID string) (*models.Unit, error) {
	var out *models.Unit
	err := c.run(ctx, "maintenance", logrus.Fields{"unit_id": unitID}, func(b *batch) error {
		unit, err := b.tx.Units.GetByID(ctx, unitID)
		if err != nil {
			return err
		}
		if unit.Status == models.UnitMaintenance {
			out = unit
			return nil
		}
		if unit.IsOccupied() || unit.TenantID != nil {
			out, err = c.release(b, unit, models.UnitMaintenance)
		} else {
			out, err = b.tx.Units.UpdateIf(ctx, unit.ID,
				models.Changes{"status": unit.Status, "row_version": unit.RowVersion},
				models.Changes{"status": models.UnitMaintenance})
		}
		if err != nil {
			return err
		}
		b.emit(events.UnitMaintenance, func(e *events.Event) {
			e.PropertyID, e.UnitID = unit.PropertyID, unit.ID
		})
		return nil
	})
	return out, err
}

// RestoreUnit returns a unit under maintenance to service as vacant
func (c *Coordinator) RestoreUnit(ctx context.Context, unitID string) (*models.Unit, error) {
	var out *models.Unit
	err := c.run(ctx, "restore", logrus.Fields{"unit_id": unitID}, func(b *batch) error {
		unit, err := b.tx.Units.GetByID(ctx, unitID)
		if err != nil {
			return err
		}
		switch unit.Status {
		case models.UnitVacant:
			out = unit
			return nil
		case models.UnitOccupied:
			return preconditionf("unit %s is occupied", unit.ID)
		}
		out, err = b.tx.Units.UpdateIf(ctx, unit.ID,
			models.Changes{"status": models.UnitMaintenance, "row_version": unit.RowVersion},
			models.Changes{"status": models.UnitVacant})
		if err != nil {
			return err
		}
		b.emit(events.UnitRestored, func(e *events.Event) {
			e.PropertyID, e.UnitID = unit.PropertyID, unit.ID
		})
		return nil
	})
	return out, err
}

// assign writes both sides of an assignment inside the caller's batch.
func (c *Coordinator) assign(b *batch, tenant *models.Tenant, unit *models.Unit) (*models.Unit, *models.Tenant, error) {
	ctx := b.ctx
	if unit.OccupiedBy(tenant.ID) && tenant.AssignedTo(unit.ID) {
		return unit, tenant, nil
	}
	if unit.Status != models.UnitVacant {
		return nil, nil, preconditionf("unit %s is %s", unit.ID, unit.Status)
	}

	if tenant.UnitID != nil && *tenant.UnitID != unit.ID {
		prior, err := b.tx.Units.GetByID(ctx, *tenant.UnitID)
		switch {
		case err == nil:
			if prior.TenantID != nil && *prior.TenantID == tenant.ID {
				if _, err := c.release(b, prior, models.UnitVacant); err != nil {
					return nil, nil, err
				}
			}
		case !errors.Is(err, store.ErrNotFound):
			return nil, nil, err
		}
		if tenant, err = b.tx.Tenants.GetByID(ctx, tenant.ID); err != nil {
			return nil, nil, err
		}
	}

	property, err := b.tx.Properties.GetByID(ctx, unit.PropertyID)
	if err != nil {
		return nil, nil, err
	}

	updatedUnit, err := b.tx.Units.UpdateIf(ctx, unit.ID,
		models.Changes{"status": models.UnitVacant, "row_version": unit.RowVersion},
		models.Changes{"status": models.UnitOccupied, "tenant_id": tenant.ID, "tenant_name": tenant.Name})
	if err != nil {
		return nil, nil, err
	}
	updatedTenant, err := b.tx.Tenants.UpdateIf(ctx, tenant.ID,
		models.Changes{"row_version": tenant.RowVersion},
		models.Changes{
			"unit_id":       unit.ID,
			"unit_number":   unit.UnitNumber,
			"property_id":   unit.PropertyID,
			"property_name": property.Name,
		})
	if err != nil {
		return nil, nil, err
	}

	b.emit(events.TenantAssigned, func(e *events.Event) {
		e.PropertyID, e.UnitID, e.TenantID = unit.PropertyID, unit.ID, tenant.ID
	})
	return updatedUnit, updatedTenant, nil
}

// release clears both sides of an assignment and leaves the unit in next.
func (c *Coordinator) release(b *batch, unit *models.Unit, next models.UnitStatus) (*models.Unit, error) {
	ctx := b.ctx
	if !unit.IsOccupied() && unit.TenantID == nil {
		return unit, nil
	}

	var tenantID string
	if unit.TenantID != nil {
		tenantID = *unit.TenantID
		live, err := c.liveLeases(b, unit.ID)
		if err != nil {
			return nil, err
		}
		for _, l := range live {
			if l.TenantID == tenantID {
				return nil, preconditionf("unit %s is held by live lease %s; terminate the lease first", unit.ID, l.ID)
			}
		}
		tenant, err := b.tx.Tenants.GetByID(ctx, tenantID)
		switch {
		case err == nil:
			if tenant.AssignedTo(unit.ID) {
				_, err = b.tx.Tenants.UpdateIf(ctx, tenant.ID,
					models.Changes{"row_version": tenant.RowVersion},
					models.Changes{"unit_id": nil, "unit_number": "", "property_name": ""})
				if err != nil {
					return nil, err
				}
			}
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}

	updated, err := b.tx.Units.UpdateIf(ctx, unit.ID,
		models.Changes{"row_version": unit.RowVersion},
		models.Changes{"status": next, "tenant_id": nil, "tenant_name": ""})
	if err != nil {
		return nil, err
	}

	b.emit(events.UnitReleased, func(e *events.Event) {
		e.PropertyID, e.UnitID, e.TenantID = unit.PropertyID, unit.ID, tenantID
	})
	return updated, nil
}
