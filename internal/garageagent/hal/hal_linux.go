//go:build linux

package hal

import (
	"fmt"
	"syscall"

	gpiod "github.com/warthog618/go-gpiocdev"

	"github.com/autopeer-io/garage-agent/internal/garageagent/core"
	"github.com/autopeer-io/garage-agent/pkg/log"
)

const consumer = "garage-agent"

// LinuxHAL drives the door switch and relay through the GPIO character device.
type LinuxHAL struct {
	cfg    Config
	chip   *gpiod.Chip
	sensor *gpiod.Line
	relay  *gpiod.Line
}

// New requests both lines. The relay starts released.
func New(cfg Config) (core.HAL, error) {
	chip, err := gpiod.NewChip(cfg.Chip, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}

	sensor, err := chip.RequestLine(cfg.SensorLine, gpiod.AsInput)
	if err != nil {
		_ = chip.Close()
		return nil, fmt.Errorf("request sensor line %d: %w", cfg.SensorLine, err)
	}

	relay, err := chip.RequestLine(cfg.RelayLine, gpiod.AsOutput(relayValue(false, cfg.RelayActiveLevel)))
	if err != nil {
		_ = sensor.Close()
		_ = chip.Close()
		return nil, fmt.Errorf("request relay line %d: %w", cfg.RelayLine, err)
	}

	log.Info("GPIO lines ready", "chip", cfg.Chip, "sensor", cfg.SensorLine, "relay", cfg.RelayLine)
	return &LinuxHAL{cfg: cfg, chip: chip, sensor: sensor, relay: relay}, nil
}

func (h *LinuxHAL) ReadInput() (core.Level, error) {
	v, err := h.sensor.Value()
	if err != nil {
		return core.Low, err
	}
	if v != 0 {
		return core.High, nil
	}
	return core.Low, nil
}

func (h *LinuxHAL) SetRelay(active bool) error {
	return h.relay.SetValue(relayValue(active, h.cfg.RelayActiveLevel))
}

func (h *LinuxHAL) Restart() error {
	return restart(h.cfg.RestartMode, func() error {
		syscall.Sync()
		return syscall.Reboot(syscall.LINUX_REBOOT_CMD_RESTART)
	})
}

func (h *LinuxHAL) Close() error {
	_ = h.SetRelay(false)
	_ = h.relay.Close()
	_ = h.sensor.Close()
	return h.chip.Close()
}
