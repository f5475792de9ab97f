// Package hal provides the door switch, relay and restart action of the
// device. The linux build drives GPIO lines through the character device; the
// other builds simulate them.
package hal

import (
	"os"

	"github.com/autopeer-io/garage-agent/internal/garageagent/core"
	"github.com/autopeer-io/garage-agent/pkg/log"
	"github.com/autopeer-io/garage-agent/pkg/options"
)

// Config selects the lines and the restart action.
type Config struct {
	Chip             string
	SensorLine       int
	RelayLine        int
	RelayActiveLevel core.Level
	RestartMode      string
}

// exitFunc is replaced in tests.
var exitFunc = os.Exit

// relayValue is the line value for the requested relay state.
func relayValue(active bool, activeLevel core.Level) int {
	level := activeLevel
	if !active {
		level = core.High - activeLevel
	}
	if level == core.High {
		return 1
	}
	return 0
}

func restart(mode string, reboot func() error) error {
	if mode == options.RestartModeReboot {
		log.Warn("Rebooting system")
		log.Sync()
		return reboot()
	}
	log.Warn("Exiting for restart")
	log.Sync()
	exitFunc(1)
	return nil
}
