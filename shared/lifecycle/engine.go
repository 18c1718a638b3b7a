// Package lifecycle derives time-based lease and payment status.
//
// The status column stored on a lease or payment is only a cache of the
// derived value. Feature code reads status through the Engine.
package lifecycle

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/utils"
	"github.com/sirupsen/logrus"
)

// DefaultExpiringSoonDays is the expiring_soon window used when none is configured
const DefaultExpiringSoonDays = 90

const day = 24 * time.Hour

// Engine derives status relative to a clock
type Engine struct {
	threshold time.Duration
	now       func() time.Time
}

// NewEngine returns an engine with an expiring_soon window of thresholdDays
func NewEngine(thresholdDays int, now func() time.Time) *Engine {
	if thresholdDays <= 0 {
		thresholdDays = DefaultExpiringSoonDays
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{threshold: time.Duration(thresholdDays) * day, now: now}
}

// Now returns the engine clock
func (e *Engine) Now() time.Time {
	return e.now()
}

// ThresholdDays returns the expiring_soon window
func (e *Engine) ThresholdDays() int {
	return int(e.threshold / day)
}

// EffectiveStatus derives the status of a lease. Terminated and renewed
// are explicit states; everything else follows the end date.
func (e *Engine) EffectiveStatus(l *models.Lease) models.LeaseStatus {
	switch l.Status {
	case models.LeaseTerminated, models.LeaseRenewed:
		return l.Status
	}
	now := e.now()
	if l.EndDate.Before(now) {
		return models.LeaseExpired
	}
	if l.EndDate.Sub(now) <= e.threshold {
		return models.LeaseExpiringSoon
	}
	return models.LeaseActive
}

// DaysRemaining returns the whole days left until the end date, rounded up.
// It is negative once the lease has ended.
func (e *Engine) DaysRemaining(l *models.Lease) int {
	return int(math.Ceil(l.EndDate.Sub(e.now()).Hours() / 24))
}

// IsLive reports whether the lease still binds its tenant to the unit
func (e *Engine) IsLive(l *models.Lease) bool {
	switch e.EffectiveStatus(l) {
	case models.LeaseActive, models.LeaseExpiringSoon, models.LeaseRenewed:
		return true
	}
	return false
}

// CanRenew reports whether the lease accepts a renewal
func (e *Engine) CanRenew(l *models.Lease) bool {
	return l.Status != models.LeaseTerminated
}

// FilterByStatus returns the leases whose effective status matches
func (e *Engine) FilterByStatus(leases []models.Lease, status models.LeaseStatus) []models.Lease {
	out := make([]models.Lease, 0, len(leases))
	for i := range leases {
		if e.EffectiveStatus(&leases[i]) == status {
			out = append(out, leases[i])
		}
	}
	return out
}

// PaymentStatus derives the status of a payment. An unpaid pending payment
// past its due date is overdue; an overdue payment with a paid date is paid.
func (e *Engine) PaymentStatus(p *models.Payment) models.PaymentStatus {
	switch p.Status {
	case models.PaymentPending:
		if p.PaidDate == nil && p.DueDate.Before(e.now()) {
			return models.PaymentOverdue
		}
	case models.PaymentOverdue:
		if p.PaidDate != nil {
			return models.PaymentPaid
		}
	}
	return p.Status
}

// RefreshLeaseStatuses rewrites stored lease statuses that disagree with
// the derived value. A lease changed concurrently keeps the newer write.
func (e *Engine) RefreshLeaseStatuses(ctx context.Context, leases store.Collection[models.Lease]) (int, error) {
	all, err := leases.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for i := range all {
		l := &all[i]
		derived := e.EffectiveStatus(l)
		if derived == l.Status {
			continue
		}
		_, err := leases.UpdateIf(ctx, l.ID,
			models.Changes{"status": l.Status},
			models.Changes{"status": derived})
		if errors.Is(err, store.ErrPreconditionFailed) || errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return updated, err
		}
		updated++
	}
	utils.Logger.WithFields(logrus.Fields{"scanned": len(all), "updated": updated}).Info("lease statuses refreshed")
	return updated, nil
}

// RefreshPaymentStatuses marks overdue payments and settles paid ones
func (e *Engine) RefreshPaymentStatuses(ctx context.Context, payments store.Collection[models.Payment]) (int, error) {
	all, err := payments.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for i := range all {
		p := &all[i]
		derived := e.PaymentStatus(p)
		if derived == p.Status {
			continue
		}
		_, err := payments.UpdateIf(ctx, p.ID,
			models.Changes{"status": p.Status},
			models.Changes{"status": derived})
		if errors.Is(err, store.ErrPreconditionFailed) || errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return updated, err
		}
		updated++
	}
	utils.Logger.WithFields(logrus.Fields{"scanned": len(all), "updated": updated}).Info("payment statuses refreshed")
	return updated, nil
}
