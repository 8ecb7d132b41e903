package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"companion/internal/modules/session/service"
)

type countingTicker struct {
	calls atomic.Int32
	err   error
	fired chan struct{}
}

func (c *countingTicker) Tick(context.Context) (bool, error) {
	if c.calls.Add(1) == 1 {
		close(c.fired)
	}
	return true, c.err
}

func TestSchedulerTicksImmediatelyAndStops(t *testing.T) {
	t.Parallel()
	ticker := &countingTicker{fired: make(chan struct{})}
	s := service.NewScheduler(ticker, time.Hour, nil)
	s.Start(context.Background())
	select {
	case <-ticker.fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected immediate tick")
	}
	s.Stop()
	n := ticker.calls.Load()
	s.Stop()
	if ticker.calls.Load() != n {
		t.Fatalf("no ticks after stop")
	}
}

func TestSchedulerKeepsRunningAfterTickError(t *testing.T) {
	t.Parallel()
	ticker := &countingTicker{fired: make(chan struct{}), err: errors.New("store offline")}
	s := service.NewScheduler(ticker, 5*time.Millisecond, nil)
	s.Start(context.Background())
	defer s.Stop()
	deadline := time.After(2 * time.Second)
	for ticker.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("scheduler stopped ticking after error, calls=%d", ticker.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSchedulerDrivesBoosterPrompt(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.start(t, true)
	f.clock.set(95)
	s := service.NewScheduler(f.svc, time.Hour, nil)
	s.Start(context.Background())
	deadline := time.After(2 * time.Second)
	for {
		snap, err := f.svc.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.Booster.IsModalVisible {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("scheduler never prompted the booster")
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()
	f.svc.Close()
}
