package topic

// Standard MQTT wildcard definitions.
const (
	// Wildcard is the single-level wildcard "+".
	// It matches exactly one topic level.
	Wildcard = "+"

	// MultiWildcard is the multi-level wildcard "#".
	// It matches the current level and all subsequent levels.
	MultiWildcard = "#"
)

// Default topics of the garage door contract. The leading slashes on the
// status and command topics are part of the contract that existing
// dashboards subscribe to.
const (
	// DefaultStatus carries door state reports (Edge -> Broker).
	DefaultStatus = "/sensors/doors/garage"

	// DefaultCommand carries relay pulse requests (Broker -> Edge).
	DefaultCommand = "/controls/garagedoor"

	// DefaultHello receives the greeting published after every connect.
	DefaultHello = "sensors/hello"
)
