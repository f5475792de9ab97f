package wifi

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/autopeer-io/garage-agent/pkg/log"
)

// runFunc executes a command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Nmcli associates with a WiFi network through NetworkManager.
type Nmcli struct {
	iface    string
	ssid     string
	psk      string
	hostname string
	logger   log.Logger

	run          runFunc
	hostnameOnce sync.Once
}

func NewNmcli(iface, ssid, psk, hostname string, logger log.Logger) *Nmcli {
	return &Nmcli{
		iface:    iface,
		ssid:     ssid,
		psk:      psk,
		hostname: hostname,
		logger:   logger,
		run:      execRun,
	}
}

// Associate sets the hostname on first use and asks NetworkManager to join
// the network. nmcli returns once the device is activated or has failed.
func (n *Nmcli) Associate(ctx context.Context) error {
	if n.hostname != "" {
		n.hostnameOnce.Do(func() {
			if out, err := n.run(ctx, "nmcli", "general", "hostname", n.hostname); err != nil {
				n.logger.Warn("Failed to set hostname", "hostname", n.hostname, "output", strings.TrimSpace(string(out)), "error", err.Error())
			}
		})
	}

	args := []string{"device", "wifi", "connect", n.ssid, "ifname", n.iface}
	if n.psk != "" {
		args = append(args, "password", n.psk)
	}
	if out, err := n.run(ctx, "nmcli", args...); err != nil {
		return fmt.Errorf("nmcli connect %q: %w: %s", n.ssid, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (n *Nmcli) Status() bool {
	up, _ := interfaceState(n.iface)
	return up
}

func (n *Nmcli) LocalAddress() string {
	_, addr := interfaceState(n.iface)
	return addr
}
