package wifi

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/autopeer-io/garage-agent/pkg/log"
)

type call struct {
	name string
	args []string
}

func fakeRun(calls *[]call, err error) runFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, call{name: name, args: args})
		if err != nil {
			return []byte("Error: No network with SSID 'Briarhill' found."), err
		}
		return nil, nil
	}
}

func TestNmcliAssociate(t *testing.T) {
	var calls []call
	n := NewNmcli("wlan0", "Briarhill", "12221222", "GarageDoorSensor", log.NewNopLogger())
	n.run = fakeRun(&calls, nil)

	for i := 0; i < 2; i++ {
		if err := n.Associate(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if len(calls) != 3 {
		t.Fatalf("got %d nmcli calls, want hostname once plus two connects", len(calls))
	}
	if got := strings.Join(calls[0].args, " "); got != "general hostname GarageDoorSensor" {
		t.Errorf("hostname call = %q", got)
	}
	want := "device wifi connect Briarhill ifname wlan0 password 12221222"
	if got := strings.Join(calls[1].args, " "); got != want {
		t.Errorf("connect call = %q, want %q", got, want)
	}
}

func TestNmcliAssociateError(t *testing.T) {
	var calls []call
	n := NewNmcli("wlan0", "Briarhill", "", "", log.NewNopLogger())
	n.run = fakeRun(&calls, errors.New("exit status 10"))

	err := n.Associate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "No network with SSID") {
		t.Fatalf("Associate() error = %v", err)
	}
	if len(calls) != 1 || strings.Contains(strings.Join(calls[0].args, " "), "password") {
		t.Errorf("unexpected calls %+v", calls)
	}
}

func TestStaticLoopback(t *testing.T) {
	s := NewStatic("lo")
	if err := s.Associate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !s.Status() {
		t.Skip("loopback interface is not up in this environment")
	}
	if got := s.LocalAddress(); got != "127.0.0.1" {
		t.Errorf("LocalAddress() = %q, want 127.0.0.1", got)
	}
}

func TestStaticMissingInterface(t *testing.T) {
	s := NewStatic("does-not-exist0")
	if s.Status() || s.LocalAddress() != "" {
		t.Error("a missing interface must report down")
	}
}
