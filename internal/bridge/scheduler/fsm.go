package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/looplab/fsm"

	fsmutil "github.com/autopeer-io/shuttlebridge/internal/pkg/util/fsm"
)

// Loop states.
const (
	StateIdle           = "idle"
	StateRefreshStops   = "refresh_stops"
	StateFetchLocations = "fetch_locations"
	StateDispatch       = "dispatch"
	StateSleep          = "sleep"
)

const (
	// EventStart (Active) begins the first cycle.
	EventStart = "event_start"
	// EventStopsReady moves on to the location fetch.
	EventStopsReady = "event_stops_ready"
	// EventLocationsReady moves on to dispatch.
	EventLocationsReady = "event_locations_ready"
	// EventDispatched ends a successful cycle.
	EventDispatched = "event_dispatched"
	// EventAbandon ends a cycle early.
	EventAbandon = "event_abandon"
	// EventWake begins the next cycle.
	EventWake = "event_wake"
	// EventHalt returns to idle on shutdown.
	EventHalt = "event_halt"
)

// FaultError is a panic recovered from a cycle phase.
type FaultError struct {
	Value any
	Stack []byte
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// FiniteStateMachine drives one reporting cycle per pass through its states.
// Phase work runs in the enter_ callbacks; a failing phase surfaces as the
// error of the event that entered it.
type FiniteStateMachine struct {
	*fsm.FSM
}

// NewFiniteStateMachine wires each phase to the state that performs it.
func NewFiniteStateMachine(s *Scheduler) *FiniteStateMachine {
	f := &FiniteStateMachine{}

	events := fsm.Events{
		{Name: EventStart, Src: []string{StateIdle}, Dst: StateRefreshStops},
		{Name: EventStopsReady, Src: []string{StateRefreshStops}, Dst: StateFetchLocations},
		{Name: EventLocationsReady, Src: []string{StateFetchLocations}, Dst: StateDispatch},
		{Name: EventDispatched, Src: []string{StateDispatch}, Dst: StateSleep},
		{Name: EventAbandon, Src: []string{StateRefreshStops, StateFetchLocations, StateDispatch}, Dst: StateSleep},
		{Name: EventWake, Src: []string{StateSleep}, Dst: StateRefreshStops},
		{Name: EventHalt, Src: []string{StateRefreshStops, StateFetchLocations, StateDispatch, StateSleep}, Dst: StateIdle},
	}

	callbacks := fsm.Callbacks{
		"enter_" + StateRefreshStops:   fsmutil.WrapEvent(guard(s.enterRefreshStops)),
		"enter_" + StateFetchLocations: fsmutil.WrapEvent(guard(s.enterFetchLocations)),
		"enter_" + StateDispatch:       fsmutil.WrapEvent(guard(s.enterDispatch)),
		"enter_state":                  s.traceTransition,
	}

	f.FSM = fsm.NewFSM(StateIdle, events, callbacks)
	return f
}

// guard turns a panic inside a phase into a *FaultError.
func guard(fn func(ctx context.Context, e *fsm.Event) error) func(ctx context.Context, e *fsm.Event) error {
	return func(ctx context.Context, e *fsm.Event) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &FaultError{Value: r, Stack: debug.Stack()}
			}
		}()
		return fn(ctx, e)
	}
}
