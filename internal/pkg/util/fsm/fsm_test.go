package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
)

func TestWrapEventSurfacesError(t *testing.T) {
	boom := errors.New("boom")
	f := fsm.NewFSM("a",
		fsm.Events{{Name: "go", Src: []string{"a"}, Dst: "b"}},
		fsm.Callbacks{"enter_b": WrapEvent(func(context.Context, *fsm.Event) error { return boom })},
	)

	err := f.Event(context.Background(), "go")
	if !errors.Is(err, boom) {
		t.Fatalf("Event = %v, want boom", err)
	}
	if f.Current() != "b" {
		t.Errorf("state = %s, enter errors do not roll back", f.Current())
	}
}

func TestIsRealError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fsm.NoTransitionError{}, false},
		{fsm.CanceledError{}, false},
		{fsm.InvalidEventError{Event: "x", State: "y"}, true},
		{errors.New("other"), true},
	}
	for _, tt := range tests {
		if got := IsRealError(tt.err); got != tt.want {
			t.Errorf("IsRealError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
