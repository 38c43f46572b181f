/*
scheduler.go - Automated expired-request sweeper

PURPOSE:
  Periodically cancels pending requests whose first date has arrived
  without an admin decision, releasing their held hours.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start, then on every tick
  - Each pass is timeoff.Service.SweepExpiredRequests, which is idempotent
    and records a SweepRun; overlapping passes (scheduler, admin view,
    manual) are serialized by the service

CONFIGURATION:
  - Interval: How often to sweep (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewSweepScheduler(service, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - timeoff/sweeper.go: The sweep itself
  - handlers.go: RunSweep endpoint (manual sweep)
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/timeoff"
)

// SweepScheduler runs the expired-request sweeper on a ticker.
type SweepScheduler struct {
	Service  *timeoff.Service
	Interval time.Duration
	Enabled  bool
	Logger   *slog.Logger

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex // guards ticker and stop

	lastMu  sync.Mutex
	lastRun time.Time
}

// NewSweepScheduler creates an enabled scheduler with a one hour interval.
func NewSweepScheduler(svc *timeoff.Service, logger *slog.Logger) *SweepScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepScheduler{
		Service:  svc,
		Interval: time.Hour,
		Enabled:  true,
		Logger:   logger.With("component", "sweeper"),
	}
}

// Start begins the scheduler. Calling Start on a running scheduler is a no-op.
func (s *SweepScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info("scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.Logger.Info("scheduler started", "interval", s.Interval)
}

// Stop stops the scheduler and waits for a running pass to finish.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Logger.Info("scheduler stopped")
}

func (s *SweepScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-stop:
			return
		}
	}
}

func (s *SweepScheduler) sweep(ctx context.Context) {
	if _, err := s.RunNow(ctx); err != nil && ctx.Err() == nil {
		s.Logger.Error("sweep failed", "error", err)
	}
}

// RunNow sweeps immediately, outside the ticker.
func (s *SweepScheduler) RunNow(ctx context.Context) (generic.SweepRun, error) {
	run, err := s.Service.SweepExpiredRequests(ctx, timeoff.TriggerScheduler)

	s.lastMu.Lock()
	s.lastRun = time.Now()
	s.lastMu.Unlock()

	return run, err
}

// NextRunTime returns when the next scheduled pass will occur.
func (s *SweepScheduler) NextRunTime() time.Time {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	if s.lastRun.IsZero() {
		return time.Now()
	}
	return s.lastRun.Add(s.Interval)
}
