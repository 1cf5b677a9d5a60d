package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"PriceWatcher/internal/domain"
	"PriceWatcher/internal/observability"
	"PriceWatcher/internal/ports"
)

// ErrCycleInProgress is returned when a trigger arrives while a cycle is running.
var ErrCycleInProgress = errors.New("scrape cycle already in progress")

// CycleRunner executes one scrape cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) ([]domain.SiteState, error)
}

// Scheduler wires the interval driver with the scrape use case and makes
// sure at most one cycle runs at a time.
type Scheduler struct {
	driver  ports.Scheduler
	runner  CycleRunner
	logger  *slog.Logger
	metrics *observability.Metrics

	running sync.Mutex
}

// NewScheduler returns a helper to start/stop recurring cycles.
func NewScheduler(driver ports.Scheduler, runner CycleRunner, metrics *observability.Metrics, log *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, runner: runner, metrics: metrics, logger: log}
}

// Start registers the cycle with the provided driver. Failed timer cycles
// are logged and the driver keeps ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		_, _ = s.run(ctx, "timer", trigger)
	}

	return s.driver.Start(ctx, job)
}

// Trigger runs one cycle on demand and returns its result.
func (s *Scheduler) Trigger(ctx context.Context) ([]domain.SiteState, error) {
	return s.run(ctx, "api", time.Now())
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) run(ctx context.Context, source string, trigger time.Time) ([]domain.SiteState, error) {
	if s.runner == nil {
		return nil, errors.New("scheduler: runner is not configured")
	}
	if !s.running.TryLock() {
		s.metrics.RecordSkipped()
		s.log().Warn("cycle skipped, previous one still running", "trigger", source)
		return nil, ErrCycleInProgress
	}
	defer s.running.Unlock()

	log := s.log().With("cycle_id", uuid.NewString(), "trigger", source)
	log.Info("scrape cycle started", "at", trigger.Format(time.RFC3339))

	start := time.Now()
	states, err := s.runner.RunCycle(ctx)
	took := time.Since(start)
	s.metrics.RecordCycle(took, err)

	if err != nil {
		log.Error("scrape cycle failed", "error", err, "took", took)
		return nil, err
	}
	log.Info("scrape cycle finished", "sites", len(states), "took", took)
	return states, nil
}

func (s *Scheduler) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}
