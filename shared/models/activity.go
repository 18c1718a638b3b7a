package models

import (
	"time"
)

// Activity is a committed occupancy event kept for the activity feed
type Activity struct {
	Base
	EventID    string    `json:"event_id" gorm:"type:varchar(36);uniqueIndex"`
	Type       string    `json:"type" gorm:"type:varchar(50);not null;index"`
	PropertyID string    `json:"property_id" gorm:"type:varchar(36);index"`
	UnitID     string    `json:"unit_id,omitempty" gorm:"type:varchar(36)"`
	TenantID   string    `json:"tenant_id,omitempty" gorm:"type:varchar(36)"`
	LeaseID    string    `json:"lease_id,omitempty" gorm:"type:varchar(36)"`
	ActorID    string    `json:"actor_id,omitempty" gorm:"type:varchar(255)"`
	OccurredAt time.Time `json:"occurred_at" gorm:"not null;index"`
}

// TableName returns the collection name for the Activity model
func (Activity) TableName() string {
	return "activity_log"
}

// ScopePropertyID returns the property the event happened in
func (a Activity) ScopePropertyID() string {
	return a.PropertyID
}

// References returns nothing; the feed keeps history of deleted records.
func (Activity) References() []Reference {
	return nil
}
