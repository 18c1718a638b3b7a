// Package occupancy applies every write that touches more than one record.
//
// Each operation runs in a single store batch and guards the rows it
// mutates with a row_version compare-and-set, so a concurrent writer makes
// the batch fail with store.ErrPreconditionFailed and nothing is written.
// Callers that retry must re-read first.
package occupancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/lifecycle"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/utils"
	"github.com/sirupsen/logrus"
)

// Coordinator owns unit status, unit/tenant assignment and lease transitions
type Coordinator struct {
	store     *store.Store
	engine    *lifecycle.Engine
	publisher events.Publisher
}

// NewCoordinator returns a coordinator writing through s
func NewCoordinator(s *store.Store, engine *lifecycle.Engine, publisher events.Publisher) *Coordinator {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Coordinator{store: s, engine: engine, publisher: publisher}
}

// Occupancy is the unit/tenant pair after an assignment change
type Occupancy struct {
	Unit   *models.Unit   `json:"unit"`
	Tenant *models.Tenant `json:"tenant,omitempty"`
}

// batch collects the events of one operation until it commits.
type batch struct {
	ctx    context.Context
	tx     *store.Store
	events []events.Event
}

func (b *batch) emit(t events.Type, fill func(*events.Event)) {
	e := events.New(t, b.tx.Now())
	e.ActorID = events.ActorFrom(b.ctx)
	fill(&e)
	b.events = append(b.events, e)
}

// run executes fn in one store batch and publishes its events after commit.
func (c *Coordinator) run(ctx context.Context, op string, fields logrus.Fields, fn func(b *batch) error) error {
	var committed []events.Event
	err := c.store.Atomic(ctx, func(tx *store.Store) error {
		b := &batch{ctx: ctx, tx: tx}
		if err := fn(b); err != nil {
			return err
		}
		committed = b.events
		return nil
	})

	log := utils.Logger.WithFields(fields).WithField("op", op)
	if err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) || errors.Is(err, store.ErrConstraintViolation) {
			log.WithError(err).Warn("occupancy change rejected")
		} else if !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).Error("occupancy change failed")
		}
		return err
	}
	log.WithField("events", len(committed)).Info("occupancy change committed")

	for _, e := range committed {
		if perr := c.publisher.Publish(e); perr != nil {
			log.WithError(perr).WithField("event_type", e.Type).Warn("event not published")
		}
	}
	return nil
}

func preconditionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", store.ErrPreconditionFailed, fmt.Sprintf(format, args...))
}

func constraintf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", store.ErrConstraintViolation, fmt.Sprintf(format, args...))
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", models.ErrValidation, fmt.Sprintf(format, args...))
}

// liveLeases returns the leases on a unit that still bind it
func (c *Coordinator) liveLeases(b *batch, unitID string) ([]models.Lease, error) {
	leases, err := store.GetByUnitID(b.ctx, b.tx.Leases, unitID)
	if err != nil {
		return nil, err
	}
	live := leases[:0]
	for i := range leases {
		if c.engine.IsLive(&leases[i]) {
			live = append(live, leases[i])
		}
	}
	return live, nil
}
