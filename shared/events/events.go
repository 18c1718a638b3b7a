// Package events carries committed occupancy changes to other services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names an occupancy change
type Type string

const (
	TenantAssigned  Type = "tenant.assigned"
	UnitReleased    Type = "unit.released"
	LeaseCreated    Type = "lease.created"
	LeaseRenewed    Type = "lease.renewed"
	LeaseTerminated Type = "lease.terminated"
	UnitMaintenance Type = "unit.maintenance"
	UnitRestored    Type = "unit.restored"
	TenantDeleted   Type = "tenant.deleted"
)

// Event describes one committed change
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	PropertyID string    `json:"property_id"`
	UnitID     string    `json:"unit_id,omitempty"`
	TenantID   string    `json:"tenant_id,omitempty"`
	LeaseID    string    `json:"lease_id,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New returns an event with a fresh id
func New(t Type, occurredAt time.Time) Event {
	return Event{ID: uuid.NewString(), Type: t, OccurredAt: occurredAt.UTC()}
}

// Decode parses an event from its wire form
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if e.ID == "" || e.Type == "" {
		return Event{}, fmt.Errorf("event missing id or type")
	}
	return e, nil
}

// Publisher sends events after the writes they describe have committed
type Publisher interface {
	Publish(e Event) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error { return nil }
func (NopPublisher) Close() error        { return nil }

type actorKey struct{}

// WithActor records the acting user on the context
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the acting user recorded by WithActor
func ActorFrom(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}
