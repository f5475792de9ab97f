package core

import (
	"fmt"
	"strings"
)

// DoorState is the interpreted position of the door.
type DoorState int

const (
	// DoorUnknown is only observed before the first sample.
	DoorUnknown DoorState = iota
	DoorOpen
	DoorClosed
)

// String returns the wire spelling used in status payloads.
func (s DoorState) String() string {
	switch s {
	case DoorOpen:
		return "open"
	case DoorClosed:
		return "closed"
	}
	return "unknown"
}

// Level is a digital line level.
type Level int

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// ParseLevel accepts "high" or "low", case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return High, nil
	case "low":
		return Low, nil
	}
	return Low, fmt.Errorf("invalid level %q (high, low)", s)
}
