// Package scheduler runs the fetch, match and dispatch loop at a fixed cadence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/shuttlebridge/internal/bridge/alert"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/dispatch"
	"github.com/autopeer-io/shuttlebridge/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/shuttlebridge/internal/pkg/util/fsm"
	"github.com/autopeer-io/shuttlebridge/pkg/log"
)

const faultPreamble = "There was an error sending data to SFMTA - please check logs\n\n"

// ErrAlreadyRunning is returned by Start when the loop is active.
var ErrAlreadyRunning = errors.New("reporting loop is already running")

type (
	// RosterSource is the roster cache as seen by the loop.
	RosterSource interface {
		Refresh(ctx context.Context) error
		IDs() []string
		Len() int
	}
	// StopSource is the stop cache as seen by the loop.
	StopSource interface {
		RefreshIfDue(ctx context.Context) (bool, error)
		Len() int
	}
	// LocationSource is the snapshot store as seen by the loop.
	LocationSource interface {
		FetchAll(ctx context.Context, ids []string) error
		Covered(ids []string) []string
		Len() int
	}
	// Dispatcher pushes one record per vehicle.
	Dispatcher interface {
		DispatchAll(ctx context.Context, ids []string, now time.Time) dispatch.Summary
	}
)

// Options tunes the loop cadence.
type Options struct {
	// Interval is the target cycle length.
	Interval time.Duration
	// MaxBackoff caps the wait after consecutive failed location fetches.
	MaxBackoff time.Duration
}

// Scheduler owns the caches and drives one cycle at a time. All cache
// writes happen on the loop goroutine, between dispatch phases.
type Scheduler struct {
	roster     RosterSource
	stops      StopSource
	locations  LocationSource
	dispatcher Dispatcher
	notifier   alert.Notifier
	clock      clock.Clock
	opts       Options

	fsm *FiniteStateMachine

	running atomic.Bool
	ready   atomic.Bool

	// Per-cycle state, touched only by the loop goroutine.
	cycleStart time.Time
	failures   int
	summary    dispatch.Summary
}

// New returns an idle scheduler. notifier may be nil.
func New(r RosterSource, s StopSource, l LocationSource, d Dispatcher, n alert.Notifier, clk clock.Clock, opts Options) *Scheduler {
	if n == nil {
		n = alert.Nop{}
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.MaxBackoff < opts.Interval {
		opts.MaxBackoff = opts.Interval
	}

	sch := &Scheduler{
		roster:     r,
		stops:      s,
		locations:  l,
		dispatcher: d,
		notifier:   n,
		clock:      clk,
		opts:       opts,
	}
	sch.fsm = NewFiniteStateMachine(sch)
	return sch
}

// Start launches the loop in the background. Only one loop may run; a second
// call returns ErrAlreadyRunning.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	go func() {
		defer s.running.Store(false)
		s.run(ctx)
	}()
	return nil
}

// Run drives the loop on the calling goroutine until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)
	s.run(ctx)
	return nil
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Ready reports whether at least one cycle completed its dispatch.
func (s *Scheduler) Ready() bool { return s.ready.Load() }

// State returns the current loop state.
func (s *Scheduler) State() string { return s.fsm.Current() }

func (s *Scheduler) run(ctx context.Context) {
	log.Info("Reporting loop started", "interval", s.opts.Interval)
	defer log.Info("Reporting loop stopped")

	next := EventStart
	for {
		wait := s.cycle(ctx, next)
		next = EventWake

		if ctx.Err() != nil {
			s.halt()
			return
		}
		if wait > 0 {
			select {
			case <-ctx.Done():
				s.halt()
				return
			case <-s.clock.After(wait):
			}
		}
	}
}

// cycle runs one iteration and returns how long to wait before the next.
func (s *Scheduler) cycle(ctx context.Context, start string) (wait time.Duration) {
	id := uuid.NewString()
	logger := log.WithValues("cycle", id)
	ctx = log.IntoContext(ctx, logger)

	defer func() {
		if r := recover(); r != nil {
			s.fault(ctx, &FaultError{Value: r, Stack: debug.Stack()})
			s.fsm.SetState(StateSleep)
			wait = s.opts.Interval
		}
	}()

	s.cycleStart = s.clock.Now()
	s.summary = dispatch.Summary{}

	err := s.fsm.Event(ctx, start)
	if err == nil {
		err = s.fsm.Event(ctx, EventStopsReady)
	}
	if err == nil {
		err = s.fsm.Event(ctx, EventLocationsReady)
	}
	if err == nil {
		err = s.fsm.Event(ctx, EventDispatched)
	}

	if err != nil {
		if s.fsm.Can(EventAbandon) {
			s.fsm.Event(ctx, EventAbandon)
		}
		if ctx.Err() != nil {
			return 0
		}

		var fetchErr *fetchError
		if errors.As(err, &fetchErr) {
			s.failures++
			metrics.CyclesTotal.WithLabelValues("fetch_failed").Inc()
			wait = s.failureBackoff()
			logger.Warn("Location fetch failed, abandoning cycle", "error", fetchErr.Err, "failures", s.failures, "retryIn", wait)
			return wait
		}

		if fsmutil.IsRealError(err) {
			s.fault(ctx, err)
		}
		return s.opts.Interval
	}

	s.failures = 0
	s.ready.Store(true)
	metrics.CyclesTotal.WithLabelValues("ok").Inc()

	// The other vehicles were still reported; the panic only raises an alert.
	if p := s.summary.Panic; p != nil {
		s.fault(ctx, &FaultError{Value: p.Value, Stack: p.Stack})
	}

	elapsed := s.clock.Since(s.cycleStart)
	wait = RemainingWait(s.opts.Interval, elapsed)
	logger.Info("Cycle complete",
		"sent", s.summary.Sent, "failed", s.summary.Failed(), "skipped", s.summary.Skipped,
		"elapsed", elapsed, "wait", wait)
	return wait
}

func (s *Scheduler) halt() {
	if s.fsm.Can(EventHalt) {
		s.fsm.Event(context.Background(), EventHalt)
	}
}

// RemainingWait returns how long to sleep so cycles start every interval.
// It never returns a negative duration.
func RemainingWait(interval, elapsed time.Duration) time.Duration {
	return max(0, interval-elapsed)
}

// failureBackoff is zero for the first failure so a transient blip costs
// nothing, then interval, 2*interval, ... capped at MaxBackoff.
func (s *Scheduler) failureBackoff() time.Duration {
	if s.failures <= 1 {
		return 0
	}
	d := s.opts.Interval
	for i := 2; i < s.failures && d < s.opts.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, s.opts.MaxBackoff)
}

func (s *Scheduler) fault(ctx context.Context, err error) {
	metrics.CyclesTotal.WithLabelValues("fault").Inc()
	logger := log.FromContext(ctx)
	logger.Error(err, "Reporting loop fault, resuming")

	body := faultPreamble + err.Error()
	var fe *FaultError
	if errors.As(err, &fe) {
		body = fmt.Sprintf("%s%v\n\n%s", faultPreamble, fe.Value, fe.Stack)
	}
	if nerr := s.notifier.Notify(ctx, alert.DefaultSubject, body); nerr != nil {
		logger.Error(nerr, "Failed to send fault alert")
	}
}

// fetchError marks a failed location fetch, which abandons the cycle
// without raising a fault.
type fetchError struct{ Err error }

func (e *fetchError) Error() string { return e.Err.Error() }
func (e *fetchError) Unwrap() error { return e.Err }

func (s *Scheduler) enterRefreshStops(ctx context.Context, _ *fsm.Event) error {
	defer observe("refresh_stops", s.clock.Now(), s.clock)

	// A failed stop refresh keeps the stale list; the cycle carries on.
	if _, err := s.stops.RefreshIfDue(ctx); err != nil {
		log.FromContext(ctx).Warn("Using stale allowed stops", "error", err)
	}
	metrics.CacheEntries.WithLabelValues("stops").Set(float64(s.stops.Len()))
	return nil
}

func (s *Scheduler) enterFetchLocations(ctx context.Context, _ *fsm.Event) error {
	defer observe("fetch_locations", s.clock.Now(), s.clock)
	logger := log.FromContext(ctx)

	if err := s.roster.Refresh(ctx); err != nil {
		logger.Warn("Using stale roster", "error", err)
	}
	metrics.CacheEntries.WithLabelValues("roster").Set(float64(s.roster.Len()))

	if err := s.locations.FetchAll(ctx, s.roster.IDs()); err != nil {
		return &fetchError{Err: err}
	}
	metrics.CacheEntries.WithLabelValues("snapshots").Set(float64(s.locations.Len()))
	return nil
}

func (s *Scheduler) enterDispatch(ctx context.Context, _ *fsm.Event) error {
	defer observe("dispatch", s.clock.Now(), s.clock)

	ids := s.locations.Covered(s.roster.IDs())
	s.summary = s.dispatcher.DispatchAll(ctx, ids, s.cycleStart)
	return nil
}

func (s *Scheduler) traceTransition(ctx context.Context, e *fsm.Event) {
	log.FromContext(ctx).Debug("Loop transition", "event", e.Event, "from", e.Src, "to", e.Dst)
}

func observe(phase string, start time.Time, clk clock.PassiveClock) {
	metrics.PhaseDuration.WithLabelValues(phase).Observe(clk.Since(start).Seconds())
}
