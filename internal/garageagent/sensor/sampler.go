// Package sensor maps the door switch level to a door state.
//
// No debouncing is done: a switch that bounces across a sample boundary can
// produce a spurious change report.
package sensor

import (
	"github.com/autopeer-io/garage-agent/internal/garageagent/core"
	"github.com/autopeer-io/garage-agent/internal/pkg/metrics"
)

// Input reads the raw switch level.
type Input interface {
	ReadInput() (core.Level, error)
}

type Sampler struct {
	input     Input
	openLevel core.Level
}

// New returns a Sampler that reads openLevel as an open door.
func New(input Input, openLevel core.Level) *Sampler {
	return &Sampler{input: input, openLevel: openLevel}
}

// Sample reads the input once.
func (s *Sampler) Sample() (core.DoorState, error) {
	level, err := s.input.ReadInput()
	if err != nil {
		metrics.SensorErrors.Inc()
		return core.DoorUnknown, err
	}
	state := Map(level, s.openLevel)
	if state == core.DoorOpen {
		metrics.DoorState.Set(1)
	} else {
		metrics.DoorState.Set(0)
	}
	return state, nil
}

// Map interprets a level given the level that means open.
func Map(level, openLevel core.Level) core.DoorState {
	if level == openLevel {
		return core.DoorOpen
	}
	return core.DoorClosed
}
