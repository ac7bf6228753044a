package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollSchedulerTicks(t *testing.T) {
	p := NewPollScheduler(zerolog.Nop())
	defer p.Stop()

	var calls atomic.Int32
	p.Start(10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, p.Running())
}

func TestPollSchedulerSurvivesErrorsAndPanics(t *testing.T) {
	p := NewPollScheduler(zerolog.Nop())
	defer p.Stop()

	var calls atomic.Int32
	p.Start(5*time.Millisecond, func(context.Context) error {
		n := calls.Add(1)
		switch n {
		case 1:
			return errors.New("network down")
		case 2:
			panic("unexpected")
		}
		return nil
	})

	require.Eventually(t, func() bool { return calls.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
}

func TestPollSchedulerStopHaltsFutureCalls(t *testing.T) {
	p := NewPollScheduler(zerolog.Nop())

	var calls atomic.Int32
	p.Start(5*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())

	// Stop anında çalışıyor olabilecek tek bir tick'e izin ver.
	time.Sleep(20 * time.Millisecond)
	settled := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, calls.Load())

	p.Stop() // ikinci Stop güvenli
}

func TestPollSchedulerRestartReplacesPreviousSchedule(t *testing.T) {
	p := NewPollScheduler(zerolog.Nop())
	defer p.Stop()

	var first, second atomic.Int32
	p.Start(5*time.Millisecond, func(context.Context) error {
		first.Add(1)
		return nil
	})
	require.Eventually(t, func() bool { return first.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	p.Stop()
	p.Start(5*time.Millisecond, func(context.Context) error {
		second.Add(1)
		return nil
	})
	require.Eventually(t, func() bool { return second.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	settled := first.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, first.Load(), "old schedule must not keep firing after restart")
}

func TestPollSchedulerTriggerRunsImmediately(t *testing.T) {
	p := NewPollScheduler(zerolog.Nop())
	defer p.Stop()

	ran := make(chan struct{}, 4)
	p.Start(time.Hour, func(context.Context) error {
		ran <- struct{}{}
		return nil
	})
	p.Trigger()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not run the poll")
	}
}

func TestPollSchedulerStopCancelsInFlightContext(t *testing.T) {
	p := NewPollScheduler(zerolog.Nop())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	p.Start(time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})
	p.Trigger()
	<-started

	p.Stop()
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight poll context was not cancelled")
	}
}

func TestPollSchedulerIgnoresInvalidInterval(t *testing.T) {
	p := NewPollScheduler(zerolog.Nop())
	p.Start(0, func(context.Context) error { return nil })
	assert.False(t, p.Running())
	p.Trigger() // çalışmıyorken no-op
}
