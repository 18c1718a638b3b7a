package occupancy

import (
	"context"
	"errors"

	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/sirupsen/logrus"
)

// CreateTenant stores a tenant and, when a unit is named, assigns it in
// the same batch.
func (c *Coordinator) CreateTenant(ctx context.Context, req models.CreateTenantRequest) (*models.Tenant, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	var out *models.Tenant
	err := c.run(ctx, "create_tenant", logrus.Fields{"property_id": req.PropertyID, "unit_id": req.UnitID}, func(b *batch) error {
		tenant := req.Build()
		if err := b.tx.Tenants.Create(ctx, tenant); err != nil {
			return err
		}
		out = tenant
		if req.UnitID == "" {
			return nil
		}
		unit, err := b.tx.Units.GetByID(ctx, req.UnitID)
		if errors.Is(err, store.ErrNotFound) {
			return constraintf("unit %s does not exist", req.UnitID)
		}
		if err != nil {
			return err
		}
		if unit.PropertyID != tenant.PropertyID {
			return constraintf("unit %s does not belong to property %s", unit.ID, tenant.PropertyID)
		}
		_, out, err = c.assign(b, tenant, unit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTenant applies a tenant patch and keeps the occupied unit's cached
// tenant name in step.
func (c *Coordinator) UpdateTenant(ctx context.Context, id string, req models.UpdateTenantRequest) (*models.Tenant, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	changes := req.Changes()
	if len(changes) == 0 {
		return nil, invalidf("no updatable fields supplied")
	}

	var out *models.Tenant
	err := c.run(ctx, "update_tenant", logrus.Fields{"tenant_id": id}, func(b *batch) error {
		var err error
		if out, err = b.tx.Tenants.Update(ctx, id, changes); err != nil {
			return err
		}
		if _, renamed := changes["name"]; !renamed || out.UnitID == nil {
			return nil
		}
		unit, err := b.tx.Units.GetByID(ctx, *out.UnitID)
		if err != nil || !unit.OccupiedBy(out.ID) {
			return nil
		}
		_, err = b.tx.Units.UpdateIf(ctx, unit.ID,
			models.Changes{"row_version": unit.RowVersion},
			models.Changes{"tenant_name": out.Name})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTenant releases the tenant's unit and deletes the tenant. A tenant
// with a live lease cannot be deleted, nor one that leases, payments or
// maintenance requests still name.
func (c *Coordinator) DeleteTenant(ctx context.Context, id string) error {
	return c.run(ctx, "delete_tenant", logrus.Fields{"tenant_id": id}, func(b *batch) error {
		tenant, err := b.tx.Tenants.GetByID(ctx, id)
		if err != nil {
			return err
		}
		leases, err := store.GetByTenantID(ctx, b.tx.Leases, id)
		if err != nil {
			return err
		}
		for i := range leases {
			if c.engine.IsLive(&leases[i]) {
				return preconditionf("tenant %s has live lease %s", id, leases[i].ID)
			}
		}
		if err := referencedBy(ctx, b.tx, "tenant_id", "tenant", id); err != nil {
			return err
		}

		if tenant.UnitID != nil {
			unit, err := b.tx.Units.GetByID(ctx, *tenant.UnitID)
			switch {
			case err == nil:
				if unit.TenantID != nil && *unit.TenantID == tenant.ID {
					if _, err := c.release(b, unit, models.UnitVacant); err != nil {
						return err
					}
				}
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		if err := b.tx.Tenants.Delete(ctx, id); err != nil {
			return err
		}
		b.emit(events.TenantDeleted, func(e *events.Event) {
			e.PropertyID, e.TenantID = tenant.PropertyID, tenant.ID
		})
		return nil
	})
}

// CreateUnit stores a vacant or under-maintenance unit and recounts the
// property's units.
func (c *Coordinator) CreateUnit(ctx context.Context, req models.CreateUnitRequest) (*models.Unit, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	var out *models.Unit
	err := c.run(ctx, "create_unit", logrus.Fields{"property_id": req.PropertyID}, func(b *batch) error {
		unit := req.Build()
		if err := b.tx.Units.Create(ctx, unit); err != nil {
			return err
		}
		out = unit
		return recountUnits(ctx, b.tx, unit.PropertyID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUnit applies a unit patch and keeps the occupant's cached unit
// number in step. Status and occupant never change here.
func (c *Coordinator) UpdateUnit(ctx context.Context, id string, req models.UpdateUnitRequest) (*models.Unit, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	changes := req.Changes()
	if len(changes) == 0 {
		return nil, invalidf("no updatable fields supplied")
	}

	var out *models.Unit
	err := c.run(ctx, "update_unit", logrus.Fields{"unit_id": id}, func(b *batch) error {
		var err error
		if out, err = b.tx.Units.Update(ctx, id, changes); err != nil {
			return err
		}
		if _, renumbered := changes["unit_number"]; !renumbered || out.TenantID == nil {
			return nil
		}
		tenant, err := b.tx.Tenants.GetByID(ctx, *out.TenantID)
		if err != nil || !tenant.AssignedTo(out.ID) {
			return nil
		}
		_, err = b.tx.Tenants.UpdateIf(ctx, tenant.ID,
			models.Changes{"row_version": tenant.RowVersion},
			models.Changes{"unit_number": out.UnitNumber})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUnit deletes an unoccupied unit with no live lease and recounts
// the property's units. Leases, payments and maintenance requests that name
// the unit must be removed first.
func (c *Coordinator) DeleteUnit(ctx context.Context, id string) error {
	return c.run(ctx, "delete_unit", logrus.Fields{"unit_id": id}, func(b *batch) error {
		unit, err := b.tx.Units.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if unit.IsOccupied() || unit.TenantID != nil {
			return preconditionf("unit %s is occupied", id)
		}
		leases, err := store.GetByUnitID(ctx, b.tx.Leases, id)
		if err != nil {
			return err
		}
		for i := range leases {
			if c.engine.IsLive(&leases[i]) {
				return preconditionf("unit %s has live lease %s", id, leases[i].ID)
			}
		}
		if err := referencedBy(ctx, b.tx, "unit_id", "unit", id); err != nil {
			return err
		}
		if err := b.tx.Units.Delete(ctx, id); err != nil {
			return err
		}
		return recountUnits(ctx, b.tx, unit.PropertyID)
	})
}

// UpdateProperty applies a property patch and refreshes the property name
// cached on its assigned tenants.
func (c *Coordinator) UpdateProperty(ctx context.Context, id string, req models.UpdatePropertyRequest) (*models.Property, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	changes := req.Changes()
	if len(changes) == 0 {
		return nil, invalidf("no updatable fields supplied")
	}

	var out *models.Property
	err := c.run(ctx, "update_property", logrus.Fields{"property_id": id}, func(b *batch) error {
		var err error
		if out, err = b.tx.Properties.Update(ctx, id, changes); err != nil {
			return err
		}
		if _, renamed := changes["name"]; !renamed {
			return nil
		}
		tenants, err := store.GetByPropertyID(ctx, b.tx.Tenants, id)
		if err != nil {
			return err
		}
		for i := range tenants {
			if tenants[i].UnitID == nil {
				continue
			}
			if _, err := b.tx.Tenants.Update(ctx, tenants[i].ID, models.Changes{"property_name": out.Name}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteProperty deletes a property that no record references
func (c *Coordinator) DeleteProperty(ctx context.Context, id string) error {
	return c.run(ctx, "delete_property", logrus.Fields{"property_id": id}, func(b *batch) error {
		if _, err := b.tx.Properties.GetByID(ctx, id); err != nil {
			return err
		}
		units, err := store.GetByPropertyID(ctx, b.tx.Units, id)
		if err != nil {
			return err
		}
		if len(units) > 0 {
			return constraintf("property %s still has %d units", id, len(units))
		}
		tenants, err := store.GetByPropertyID(ctx, b.tx.Tenants, id)
		if err != nil {
			return err
		}
		if len(tenants) > 0 {
			return constraintf("property %s still has %d tenants", id, len(tenants))
		}
		if err := referencedBy(ctx, b.tx, "property_id", "property", id); err != nil {
			return err
		}
		return b.tx.Properties.Delete(ctx, id)
	})
}

func recountUnits(ctx context.Context, tx *store.Store, propertyID string) error {
	units, err := store.GetByPropertyID(ctx, tx.Units, propertyID)
	if err != nil {
		return err
	}
	_, err = tx.Properties.Update(ctx, propertyID, models.Changes{"total_units": len(units)})
	return err
}

// referencedBy fails with a constraint violation while any lease, payment or
// maintenance request still holds id in column.
func referencedBy(ctx context.Context, tx *store.Store, column, what, id string) error {
	leases, err := tx.Leases.FindBy(ctx, column, id)
	if err != nil {
		return err
	}
	payments, err := tx.Payments.FindBy(ctx, column, id)
	if err != nil {
		return err
	}
	requests, err := tx.Maintenance.FindBy(ctx, column, id)
	if err != nil {
		return err
	}
	if len(leases)+len(payments)+len(requests) == 0 {
		return nil
	}
	return constraintf("%s %s is still referenced by %d leases, %d payments and %d maintenance requests",
		what, id, len(leases), len(payments), len(requests))
}
