package core

import "context"

// HAL (Hardware Abstraction Layer) is the agent's port to the door switch,
// the opener relay and the process lifecycle.
type HAL interface {
	// ReadInput samples the door switch line.
	ReadInput() (Level, error)

	// SetRelay drives the relay line to its active (true) or idle (false) level.
	SetRelay(active bool) error

	// Restart performs the configured restart action: exit the process for a
	// supervisor to restart, or reboot the system.
	Restart() error

	// Close releases the lines.
	Close() error
}

// Associator joins the device to the network.
type Associator interface {
	// Associate makes one attempt to join the network.
	Associate(ctx context.Context) error

	// Status reports whether the device is associated right now. It must not block.
	Status() bool

	// LocalAddress is the address obtained on the link, empty when down.
	LocalAddress() string
}
