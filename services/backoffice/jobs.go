package main

import (
	"context"
	"time"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/utils"
	"github.com/robfig/cron/v3"
)

const jobTimeout = 2 * time.Minute

// startJobs schedules the stored-status refreshes. Stop the returned cron
// on shutdown.
func startJobs(cfg *config.AppConfig, app *App) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	if _, err := c.AddFunc(cfg.LeaseRefreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := app.engine.RefreshLeaseStatuses(ctx, app.store.Leases); err != nil {
			utils.Logger.WithError(err).Error("lease status refresh failed")
		}
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(cfg.PaymentSweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := app.engine.RefreshPaymentStatuses(ctx, app.store.Payments); err != nil {
			utils.Logger.WithError(err).Error("payment overdue sweep failed")
		}
	}); err != nil {
		return nil, err
	}

	c.Start()
	utils.Logger.WithField("lease_schedule", cfg.LeaseRefreshSchedule).
		WithField("payment_schedule", cfg.PaymentSweepSchedule).
		Info("status jobs scheduled")
	return c, nil
}
