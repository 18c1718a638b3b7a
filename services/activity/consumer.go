package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/utils"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageReader is the part of kafka.Reader the consumer uses
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ActivityConsumer persists committed occupancy events into the activity log.
// A message is committed only after its event is stored or found to be a
// duplicate, so a crash replays rather than loses events.
type ActivityConsumer struct {
	reader    messageReader
	store     *store.Store
	baseDelay time.Duration
	maxDelay  time.Duration

	persisted  atomic.Int64
	duplicates atomic.Int64
	rejected   atomic.Int64
	retries    atomic.Int64
}

// ConsumerStats counts what the consumer has done since start
type ConsumerStats struct {
	Persisted  int64 `json:"persisted"`
	Duplicates int64 `json:"duplicates"`
	Rejected   int64 `json:"rejected"`
	Retries    int64 `json:"retries"`
}

// NewActivityConsumer creates a consumer-group reader on the events topic
func NewActivityConsumer(broker, topic, groupID string, s *store.Store) *ActivityConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{broker},
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  time.Second,
	})
	return newActivityConsumer(reader, s)
}

func newActivityConsumer(reader messageReader, s *store.Store) *ActivityConsumer {
	return &ActivityConsumer{
		reader:    reader,
		store:     s,
		baseDelay: time.Second,
		maxDelay:  time.Minute,
	}
}

// Run consumes until ctx is cancelled
func (ac *ActivityConsumer) Run(ctx context.Context) error {
	utils.Logger.Info("Starting activity consumer...")
	for {
		msg, err := ac.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			utils.Logger.WithError(err).Error("Error reading event message")
			if !sleep(ctx, ac.baseDelay) {
				return nil
			}
			continue
		}

		if err := ac.persistWithRetry(ctx, msg); err != nil {
			// only cancellation stops the retry loop; leave the message uncommitted
			return nil
		}
		if err := ac.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			utils.Logger.WithError(err).WithField("offset", msg.Offset).Warn("Failed to commit event message")
		}
	}
}

// persistWithRetry retries transient store failures with exponential
// backoff. Any other store error rejects the message so one bad event
// cannot stall the partition.
func (ac *ActivityConsumer) persistWithRetry(ctx context.Context, msg kafka.Message) error {
	for attempt := 1; ; attempt++ {
		err := ac.persist(ctx, msg)
		if err == nil {
			return nil
		}
		if !store.IsTransient(err) {
			ac.rejected.Add(1)
			utils.Logger.WithError(err).WithField("offset", msg.Offset).Error("Dropping event the activity store refused")
			return nil
		}
		ac.retries.Add(1)
		delay := ac.baseDelay * time.Duration(1<<(attempt-1)) // 1s, 2s, 4s, ...
		if delay > ac.maxDelay || delay <= 0 {
			delay = ac.maxDelay
		}
		utils.Logger.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
		}).Warn("Activity store unavailable, retrying")
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
	}
}

// persist stores one event. Undecodable payloads and duplicates are
// counted and skipped; store errors are returned for the caller to classify.
func (ac *ActivityConsumer) persist(ctx context.Context, msg kafka.Message) error {
	event, err := events.Decode(msg.Value)
	if err != nil {
		ac.rejected.Add(1)
		utils.Logger.WithField("offset", msg.Offset).Warn("Skipping undecodable event")
		return nil
	}

	activity := &models.Activity{
		EventID:    event.ID,
		Type:       string(event.Type),
		PropertyID: event.PropertyID,
		UnitID:     event.UnitID,
		TenantID:   event.TenantID,
		LeaseID:    event.LeaseID,
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt.UTC(),
	}
	err = ac.store.Activities.Create(ctx, activity)
	switch {
	case err == nil:
		ac.persisted.Add(1)
		utils.Logger.WithFields(logrus.Fields{
			"event_id":    event.ID,
			"event_type":  event.Type,
			"property_id": event.PropertyID,
		}).Debug("Activity recorded")
		return nil
	case errors.Is(err, store.ErrConstraintViolation):
		ac.duplicates.Add(1)
		return nil
	default:
		return fmt.Errorf("persist event %s: %w", event.ID, err)
	}
}

// Stats returns the consumer counters
func (ac *ActivityConsumer) Stats() ConsumerStats {
	return ConsumerStats{
		Persisted:  ac.persisted.Load(),
		Duplicates: ac.duplicates.Load(),
		Rejected:   ac.rejected.Load(),
		Retries:    ac.retries.Load(),
	}
}

// Close closes the Kafka reader
func (ac *ActivityConsumer) Close() error {
	if err := ac.reader.Close(); err != nil {
		return fmt.Errorf("failed to close event reader: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
