// Package scheduler drives timer components from a wall-clock ticker.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/logging"
)

// DefaultResolution is one timer step per second.
const DefaultResolution = time.Second

// ErrAlreadyRunning is returned by Run when the scheduler is already running.
var ErrAlreadyRunning = errors.New("scheduler already running")

// TimerAdvancer is the part of the circuit the scheduler drives.
type TimerAdvancer interface {
	AdvanceTimers(steps int) []circuit.StateChange
}

// TickRecorder counts applied steps (metrics.Registry implements it).
type TickRecorder interface {
	RecordTimerTicks(steps int)
}

// Scheduler advances armed timers by one step every Resolution.
type Scheduler struct {
	target     TimerAdvancer
	resolution time.Duration
	recorder   TickRecorder
	logger     logging.Logger
	running    atomic.Bool
	ticks      atomic.Uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithResolution sets the wall-clock duration of one timer step.
func WithResolution(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.resolution = d
		}
	}
}

// WithRecorder sets the tick recorder.
func WithRecorder(r TickRecorder) Option {
	return func(s *Scheduler) {
		s.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a scheduler for target.
func New(target TimerAdvancer, opts ...Option) *Scheduler {
	s := &Scheduler{
		target:     target,
		resolution: DefaultResolution,
		logger:     logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.Component("scheduler"))
	return s
}

// Run ticks until ctx is cancelled. It returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()

	s.logger.Info("timer scheduler started", logging.Duration("resolution", s.resolution))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("timer scheduler stopped", logging.Uint64("ticks", s.ticks.Load()))
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick applies one timer step immediately.
func (s *Scheduler) Tick() []circuit.StateChange {
	changes := s.target.AdvanceTimers(1)
	s.ticks.Add(1)
	if s.recorder != nil {
		s.recorder.RecordTimerTicks(1)
	}
	if len(changes) > 0 {
		s.logger.Debug("timer tick changed state", logging.Changes(len(changes)))
	}
	return changes
}

// Ticks returns how many steps have been applied.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

// Resolution returns the configured step duration.
func (s *Scheduler) Resolution() time.Duration {
	return s.resolution
}
