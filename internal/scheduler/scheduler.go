// Package scheduler runs the periodic background jobs: the daily
// lifecycle-coupon sweep and the hourly expiry sweep over stale coupons.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/lumistore/rewards/internal/service"
)

const jobTimeout = 5 * time.Minute

// Scheduler owns the cron runner and the job closures.
type Scheduler struct {
	rules   *service.RuleService
	coupons *service.CouponService
	logger  *slog.Logger
	cron    gocron.Scheduler
}

// New creates a scheduler with jobs registered but not started.
func New(rules *service.RuleService, coupons *service.CouponService, logger *slog.Logger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		rules:   rules,
		coupons: coupons,
		logger:  logger,
		cron:    cron,
	}

	// Daily sweep shortly after midnight UTC so birthday and holiday
	// rules fire on the correct calendar day.
	if _, err := cron.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 10, 0))),
		gocron.NewTask(s.runDailySweep),
	); err != nil {
		return nil, err
	}

	if _, err := cron.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(s.expireStale),
	); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins executing jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", slog.Int("jobs", len(s.cron.Jobs())))
}

// Stop shuts the runner down, waiting for in-flight jobs.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

// RunDailySweepNow triggers the lifecycle sweep outside its schedule.
// Used at startup when the process may have been down over a day boundary.
func (s *Scheduler) RunDailySweepNow() {
	s.runDailySweep()
}

func (s *Scheduler) runDailySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := s.rules.RunDailySweep(ctx)
	if err != nil {
		s.logger.Error("Daily lifecycle sweep failed", slog.Any("error", err))
		return
	}

	s.logger.Info("Daily lifecycle sweep finished",
		slog.Int("evaluated", report.Evaluated),
		slog.Int("issued", report.Issued))
}

func (s *Scheduler) expireStale() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.coupons.ExpireStale(ctx)
	if err != nil {
		s.logger.Error("Coupon expiry sweep failed", slog.Any("error", err))
		return
	}

	if n > 0 {
		s.logger.Info("Coupon expiry sweep finished", slog.Int64("expired", n))
	}
}
