package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/internal/service"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
)

// JobFunc runs one scheduled job and reports how many records it touched.
type JobFunc func(ctx context.Context) (int, error)

// Clock supplies job timestamps pinned to the service timezone, so a run that
// crosses midnight in the host zone still reports the right calendar day.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// Notifier receives the event emitted after each successful run.
type Notifier interface {
	Notify(ev service.JobEvent)
}

// Scheduler owns the cron runner for the nightly jobs. Overlapping runs of
// the same job are skipped rather than queued.
type Scheduler struct {
	cron       *cron.Cron
	metrics    *service.MetricsService
	notifier   Notifier
	clock      Clock
	runTimeout time.Duration
	logger     *zap.Logger
}

// New builds a scheduler in the clock's location.
func New(clk Clock, runTimeout time.Duration, metrics *service.MetricsService, notifier Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	c := cron.New(
		cron.WithLocation(clk.Location()),
		cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		),
	)
	return &Scheduler{cron: c, metrics: metrics, notifier: notifier, clock: clk, runTimeout: runTimeout, logger: logger}
}

// Register schedules a named job on a cron spec.
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, fn)
	})
	if err != nil {
		return err
	}
	s.logger.Info("scheduled job registered", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Start launches the cron runner.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) run(name string, fn JobFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	started := s.clock.Now()
	wall := time.Now()
	count, err := fn(ctx)
	elapsed := time.Since(wall)

	if err != nil {
		s.logger.Error("scheduled job failed",
			zap.String("job", name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.ObserveJobRun(name, "error", elapsed)
		}
		return
	}

	s.logger.Info("scheduled job finished",
		zap.String("job", name),
		zap.Int("count", count),
		zap.Duration("elapsed", elapsed))
	if s.metrics != nil {
		s.metrics.ObserveJobRun(name, "success", elapsed)
	}
	if s.notifier != nil {
		s.notifier.Notify(service.JobEvent{
			Job:        name,
			Date:       clock.DateOf(started),
			Count:      count,
			FinishedAt: s.clock.Now().UTC(),
		})
	}
}
