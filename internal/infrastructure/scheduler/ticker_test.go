package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSchedulerRunsOnStartAndTicks(t *testing.T) {
	s := NewIntervalScheduler(10*time.Millisecond, true)
	var calls atomic.Int32

	require.NoError(t, s.Start(context.Background(), func(time.Time) { calls.Add(1) }))
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	stopped := calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "no jobs after Stop")
}

func TestIntervalSchedulerWithoutRunOnStart(t *testing.T) {
	s := NewIntervalScheduler(time.Hour, false)
	var calls atomic.Int32

	require.NoError(t, s.Start(context.Background(), func(time.Time) { calls.Add(1) }))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, calls.Load())
	require.NoError(t, s.Stop(context.Background()))
}

func TestIntervalSchedulerStartIsIdempotent(t *testing.T) {
	s := NewIntervalScheduler(time.Hour, true)
	var calls atomic.Int32
	job := func(time.Time) { calls.Add(1) }

	require.NoError(t, s.Start(context.Background(), job))
	require.NoError(t, s.Start(context.Background(), job))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestIntervalSchedulerStopsWithContext(t *testing.T) {
	s := NewIntervalScheduler(5*time.Millisecond, false)
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	require.NoError(t, s.Start(ctx, func(time.Time) { calls.Add(1) }))
	require.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, time.Millisecond)
	cancel()

	require.NoError(t, s.Stop(context.Background()))
}

func TestIntervalSchedulerStopTimesOutOnHungJob(t *testing.T) {
	s := NewIntervalScheduler(time.Hour, true)
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, s.Start(context.Background(), func(time.Time) {
		close(started)
		<-release
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)
	close(release)
}

func TestIntervalSchedulerRejectsZeroInterval(t *testing.T) {
	err := NewIntervalScheduler(0, true).Start(context.Background(), func(time.Time) {})
	assert.Error(t, err)
}
