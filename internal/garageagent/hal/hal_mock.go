//go:build !linux

package hal

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/autopeer-io/garage-agent/internal/garageagent/core"
	"github.com/autopeer-io/garage-agent/pkg/log"
)

// MockHAL simulates the lines for development machines. The door switch level
// is read from a file so it can be flipped by hand.
type MockHAL struct {
	cfg      Config
	doorFile string
}

func New(cfg Config) (core.HAL, error) {
	dir := filepath.Join(os.TempDir(), "garage-agent-mock-hal")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	h := &MockHAL{cfg: cfg, doorFile: filepath.Join(dir, "door")}
	log.Info("[HAL-Mock] Write high or low to the door file to move the door", "path", h.doorFile)
	return h, nil
}

func (h *MockHAL) ReadInput() (core.Level, error) {
	data, err := os.ReadFile(h.doorFile)
	if os.IsNotExist(err) {
		return core.Low, nil
	}
	if err != nil {
		return core.Low, err
	}
	return core.ParseLevel(strings.TrimSpace(string(data)))
}

func (h *MockHAL) SetRelay(active bool) error {
	log.Info("[HAL-Mock] Relay", "active", active, "value", relayValue(active, h.cfg.RelayActiveLevel))
	return nil
}

func (h *MockHAL) Restart() error {
	return restart(h.cfg.RestartMode, func() error {
		log.Warn("[HAL-Mock] >>> REBOOT REQUESTED <<< exiting instead")
		exitFunc(1)
		return nil
	})
}

func (h *MockHAL) Close() error {
	return nil
}
