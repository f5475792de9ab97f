package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
)

func newMachine(cb fsm.Callback) *fsm.FSM {
	return fsm.NewFSM(
		"down",
		fsm.Events{
			{Name: "up", Src: []string{"down"}, Dst: "up"},
			{Name: "down", Src: []string{"up"}, Dst: "down"},
		},
		fsm.Callbacks{"enter_up": cb},
	)
}

func TestWrapEventPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	f := newMachine(WrapEvent(func(ctx context.Context, e *fsm.Event) error { return boom }))

	if err := f.Event(context.Background(), "up"); !errors.Is(err, boom) {
		t.Fatalf("Event() error = %v, want %v", err, boom)
	}
}

func TestFireIgnoresSelfTransition(t *testing.T) {
	calls := 0
	f := newMachine(WrapEvent(func(ctx context.Context, e *fsm.Event) error {
		calls++
		return nil
	}))
	ctx := context.Background()

	if err := Fire(ctx, f, "up"); err != nil {
		t.Fatal(err)
	}
	if err := Fire(ctx, f, "down"); err != nil {
		t.Fatal(err)
	}
	if err := Fire(ctx, f, "down"); err == nil {
		t.Fatal("firing down from down should be an invalid event")
	}
	if calls != 1 {
		t.Errorf("enter_up called %d times, want 1", calls)
	}
}
