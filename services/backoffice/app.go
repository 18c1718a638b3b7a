package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-property-management/shared/lifecycle"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/occupancy"
	"github.com/pavitra93/go-property-management/shared/scope"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// App holds what the handlers share
type App struct {
	store  *store.Store
	coord  *occupancy.Coordinator
	engine *lifecycle.Engine
}

// NewApp wires the coordinator and engine over s
func NewApp(s *store.Store, engine *lifecycle.Engine, coord *occupancy.Coordinator) *App {
	return &App{store: s, coord: coord, engine: engine}
}

type scopedEntity interface {
	models.Entity
	models.Scoped
}

// loadScoped reads the records the user may see, optionally narrowed to one
// property. The property filter is pushed down to the store.
func loadScoped[T scopedEntity](ctx context.Context, coll store.Collection[T], user *models.User, propertyID string) ([]T, error) {
	var (
		recs []T
		err  error
	)
	ids, all := scope.PropertyIDs(user)
	switch {
	case propertyID != "":
		if !scope.Allows(user, propertyID) {
			return []T{}, nil
		}
		recs, err = store.GetByPropertyID(ctx, coll, propertyID)
	case all:
		recs, err = coll.GetAll(ctx)
	default:
		recs, err = store.GetByPropertyIDs(ctx, coll, ids...)
	}
	if err != nil {
		return nil, err
	}
	return scope.Filter(recs, user), nil
}

// loadVisible reads one record, reporting records outside the user's scope
// as missing.
func loadVisible[T scopedEntity](ctx context.Context, coll store.Collection[T], user *models.User, id string) (*T, error) {
	rec, err := coll.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Visible(*rec, user) {
		return nil, fmt.Errorf("%w: %s %s", store.ErrNotFound, coll.Name(), id)
	}
	return rec, nil
}

// requireProperty aborts with 403 unless the user may write in the property
func requireProperty(c *gin.Context, propertyID string) bool {
	if scope.Allows(middleware.CurrentUser(c), propertyID) {
		return true
	}
	utils.ForbiddenResponse(c, "Property outside your assignment")
	return false
}

// checkUnitInProperty rejects a unit reference that belongs to another property
func (app *App) checkUnitInProperty(ctx context.Context, unitID, propertyID string) error {
	unit, err := app.store.Units.GetByID(ctx, unitID)
	if err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("%w: unit %s does not exist", store.ErrConstraintViolation, unitID)
		}
		return err
	}
	if unit.PropertyID != propertyID {
		return fmt.Errorf("%w: unit %s does not belong to property %s", store.ErrConstraintViolation, unitID, propertyID)
	}
	return nil
}

// checkTenantInProperty rejects a tenant reference the caller cannot see or
// that is scoped to another property
func (app *App) checkTenantInProperty(ctx context.Context, user *models.User, tenantID, propertyID string) error {
	tenant, err := loadVisible(ctx, app.store.Tenants, user, tenantID)
	if err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("%w: tenant %s does not exist", store.ErrConstraintViolation, tenantID)
		}
		return err
	}
	if tenant.PropertyID != propertyID {
		return fmt.Errorf("%w: tenant %s does not belong to property %s", store.ErrConstraintViolation, tenantID, propertyID)
	}
	return nil
}
