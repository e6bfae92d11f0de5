// Package clock runs the background wall-clock watcher that fires once
// at the top of every hour.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/gridvoice/internal/logger"
)

// Option configures the supervisor.
type Option func(*Supervisor)

// WithTickInterval sets how often the supervisor checks the clock.
func WithTickInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		s.tickInterval = d
	}
}

// WithNow replaces the time source.
func WithNow(now func() time.Time) Option {
	return func(s *Supervisor) {
		s.now = now
	}
}

// Supervisor runs in the background and calls onHour when the wall-clock
// hour changes between two ticks. The first tick only records the hour.
type Supervisor struct {
	onHour       func(time.Time)
	log          *logger.Logger
	tickInterval time.Duration
	now          func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New creates a clock supervisor.
func New(onHour func(time.Time), log *logger.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		onHour:       onHour,
		log:          log,
		tickInterval: time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the background loop. Non-blocking.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn("clock supervisor already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	go s.loop(childCtx)

	s.log.Info("clock supervisor started (tick=%s)", s.tickInterval)
}

// Stop shuts down the supervisor.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.running = false
	s.log.Info("clock supervisor stopped")
}

// loop is the main tick loop.
func (s *Supervisor) loop(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	last := hourOf(s.now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last = s.tick(last)
		}
	}
}

// tick compares the current hour with the last one seen and fires on change.
func (s *Supervisor) tick(last time.Time) time.Time {
	now := s.now()
	hour := hourOf(now)
	if !hour.Equal(last) {
		s.log.Debug("clock: hour changed to %s", hour.Format("15:04"))
		s.onHour(now)
	}
	return hour
}

// hourOf returns the start of t's hour on t's own wall clock.
func hourOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
}
