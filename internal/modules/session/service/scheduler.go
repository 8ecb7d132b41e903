package service

import (
	"context"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
)

// Ticker is the unit of work the scheduler drives on every interval.
type Ticker interface {
	Tick(ctx context.Context) (bool, error)
}

// Scheduler evaluates time gates on a fixed interval until stopped.
type Scheduler struct {
	ticker   Ticker
	interval time.Duration
	logger   hclog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewScheduler(ticker Ticker, interval time.Duration, logger hclog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Scheduler{ticker: ticker, interval: interval, logger: logger.Named("scheduler")}
}

// Start runs one evaluation immediately and then one per interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("scheduler started", "interval", s.interval)
}

// Stop cancels the loop and waits for the in-flight tick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	changed, err := s.ticker.Tick(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("tick failed", "error", err)
		}
		return
	}
	if changed {
		s.logger.Debug("state advanced by time gates")
	}
}
