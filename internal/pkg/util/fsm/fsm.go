// Package fsm holds helpers shared by the looplab/fsm machines of the agent.
package fsm

import (
	"context"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning callback to fsm.Callback. A returned
// error is stored on the event and surfaces from FSM.Event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// Fire triggers the event and treats "already in the target state" as success.
func Fire(ctx context.Context, f *fsm.FSM, event string) error {
	err := f.Event(ctx, event)
	if _, ok := err.(fsm.NoTransitionError); ok {
		return nil
	}
	return err
}
