// Package report decides when the door state is published.
package report

import (
	"encoding/json"

	"github.com/autopeer-io/garage-agent/internal/garageagent/core"
)

// Reason says why a report is due.
type Reason int

const (
	None Reason = iota
	Periodic
	Change
)

func (r Reason) String() string {
	switch r {
	case Periodic:
		return "periodic"
	case Change:
		return "change"
	}
	return "none"
}

// Scheduler counts ticks down to the next heartbeat and detects changes
// against the previous tick's sample.
type Scheduler struct {
	interval int
	timer    int
	last     core.DoorState
}

// New returns a Scheduler with a full timer and no previous state, so the
// first sample is always reported.
func New(interval int) *Scheduler {
	return &Scheduler{interval: interval, timer: interval, last: core.DoorUnknown}
}

// Due advances the timer by one tick and reports whether state must be
// published. A state change takes precedence over timer expiry; either way
// exactly one report is due and the timer restarts.
func (s *Scheduler) Due(state core.DoorState) Reason {
	s.timer--

	reason := None
	switch {
	case state != s.last:
		reason = Change
	case s.timer <= 0:
		reason = Periodic
	}
	if reason != None {
		s.timer = s.interval
	}
	return reason
}

// Skip advances the timer for a tick whose sample failed. No report is due
// on such a tick; an expired timer reports on the next good sample.
func (s *Scheduler) Skip() {
	s.timer--
}

// Observe records the state sampled this tick, reported or not.
func (s *Scheduler) Observe(state core.DoorState) {
	s.last = state
}

// Timer is the number of ticks left before a periodic report.
func (s *Scheduler) Timer() int { return s.timer }

// Last is the state observed on the previous tick.
func (s *Scheduler) Last() core.DoorState { return s.last }

type statusPayload struct {
	GarageDoor string `json:"GarageDoor"`
}

// Payload renders the status message for state.
func Payload(state core.DoorState) []byte {
	b, _ := json.Marshal(statusPayload{GarageDoor: state.String()})
	return b
}
