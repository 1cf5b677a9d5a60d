package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceWatcher/internal/domain"
	"PriceWatcher/internal/observability"
)

type funcRunner func(ctx context.Context) ([]domain.SiteState, error)

func (f funcRunner) RunCycle(ctx context.Context) ([]domain.SiteState, error) {
	return f(ctx)
}

// manualDriver hands the registered job to the test instead of ticking.
type manualDriver struct {
	mu      sync.Mutex
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *manualDriver) fire() {
	d.mu.Lock()
	job := d.job
	d.mu.Unlock()
	job(time.Now())
}

func TestSchedulerTriggerReturnsStates(t *testing.T) {
	want := []domain.SiteState{{Name: "A", Price: 1}}
	s := NewScheduler(nil, funcRunner(func(context.Context) ([]domain.SiteState, error) {
		return want, nil
	}), nil, nil)

	got, err := s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSchedulerSkipsOverlappingCycles(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())

	s := NewScheduler(nil, funcRunner(func(context.Context) ([]domain.SiteState, error) {
		if runs.Add(1) == 1 {
			close(started)
			<-release
		}
		return nil, nil
	}), metrics, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Trigger(context.Background())
		done <- err
	}()
	<-started

	_, err := s.Trigger(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SkippedTriggers))

	close(release)
	require.NoError(t, <-done)

	_, err = s.Trigger(context.Background())
	require.NoError(t, err, "guard is released after the cycle")
	assert.Equal(t, int32(2), runs.Load())
}

func TestSchedulerTimerFailuresKeepDriverRunning(t *testing.T) {
	driver := &manualDriver{}
	var runs atomic.Int32
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())

	s := NewScheduler(driver, funcRunner(func(context.Context) ([]domain.SiteState, error) {
		runs.Add(1)
		return nil, errors.New("browser crashed")
	}), metrics, nil)

	require.NoError(t, s.Start(context.Background()))
	driver.fire()
	driver.fire()

	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CyclesTotal.WithLabelValues("error")))

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriver(t *testing.T) {
	s := NewScheduler(nil, nil, nil, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	_, err := s.Trigger(context.Background())
	assert.Error(t, err)
}
