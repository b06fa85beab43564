// Package scheduler runs the nightly maintenance job: refresh fund prices,
// optionally pull the flex statement, then rebuild the snapshot caches so the
// first request of the day hits warm data.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmolenaar/fundtracker/internal/service"
)

// jobTimeout bounds one nightly run.
const jobTimeout = 30 * time.Minute

// Scheduler owns the cron runner and the services the nightly job touches.
type Scheduler struct {
	cron         *cron.Cron
	fundService  *service.FundService
	valuationSvc *service.ValuationService
	flexService  *service.FlexService
	logger       *slog.Logger
}

// New creates a Scheduler. The flex service may be nil when the integration
// is not configured.
func New(
	fundService *service.FundService,
	valuationSvc *service.ValuationService,
	flexService *service.FlexService,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		fundService:  fundService,
		valuationSvc: valuationSvc,
		flexService:  flexService,
		logger:       logger,
	}
}

// Start registers the nightly job on the given cron schedule and begins
// running it.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.runNightly); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", schedule)
	return nil
}

// Stop halts the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runNightly() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	started := time.Now()
	s.logger.Info("nightly maintenance started")

	sync, err := s.fundService.SyncAllPrices(ctx)
	if err != nil {
		s.logger.Error("nightly price sync failed", "error", err)
	} else {
		s.logger.Info("nightly price sync finished",
			"updated", sync.TotalUpdated, "errors", sync.TotalErrors)
	}

	if s.flexService != nil {
		if config, err := s.flexService.GetConfig(ctx); err != nil {
			s.logger.Error("flex config lookup failed", "error", err)
		} else if config.Configured && config.Enabled && config.AutoImportEnabled {
			if result, err := s.flexService.Import(ctx); err != nil {
				s.logger.Error("nightly flex import failed", "error", err)
			} else {
				s.logger.Info("nightly flex import finished",
					"imported", result.Imported, "duplicates", result.Duplicates)
			}
		}
	}

	if err := s.valuationSvc.RebuildAll(ctx); err != nil {
		s.logger.Error("nightly snapshot rebuild failed", "error", err)
	}

	s.logger.Info("nightly maintenance finished", "duration", time.Since(started))
}
