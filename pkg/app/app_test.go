package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"
)

type groupOptions struct {
	Broker string `mapstructure:"broker"`
	Ticks  int    `mapstructure:"ticks"`
}

func (o *groupOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Broker, "demo.broker", o.Broker, "broker")
	fs.IntVar(&o.Ticks, "demo.ticks", o.Ticks, "ticks")
}

type testOptions struct {
	Demo *groupOptions `mapstructure:"demo"`

	completed bool
}

func newTestOptions() *testOptions {
	return &testOptions{Demo: &groupOptions{Broker: "tcp://default:1883", Ticks: 30}}
}

func (o *testOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.Demo.addFlags(fss.FlagSet("demo"))
	return fss
}

func (o *testOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *testOptions) Validate() error {
	var errs []error
	if o.Demo.Ticks < 1 {
		errs = append(errs, errors.New("ticks must be positive"))
	}
	return utilerrors.NewAggregate(errs)
}

func execute(t *testing.T, a *App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a.Command().SetOut(&out)
	a.Command().SetArgs(args)
	err := a.Command().Execute()
	return out.String(), err
}

func TestFlagsReachOptions(t *testing.T) {
	opts := newTestOptions()
	ran := false
	a := NewApp("demo-agent", "demo", WithOptions(opts), WithDefaultValidArgs(), WithRunFunc(func() error {
		ran = true
		return nil
	}))

	if _, err := execute(t, a, "--demo.ticks=3"); err != nil {
		t.Fatal(err)
	}
	if !ran || !opts.completed {
		t.Fatalf("run=%v completed=%v", ran, opts.completed)
	}
	if opts.Demo.Ticks != 3 || opts.Demo.Broker != "tcp://default:1883" {
		t.Errorf("unexpected options %+v", opts.Demo)
	}
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "agent.yaml")
	if err := os.WriteFile(file, []byte("demo:\n  broker: tcp://file:1883\n  ticks: 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	opts := newTestOptions()
	a := NewApp("demo-agent", "demo", WithOptions(opts), WithRunFunc(func() error { return nil }))
	if _, err := execute(t, a, "--config", file, "--demo.ticks=9"); err != nil {
		t.Fatal(err)
	}
	if opts.Demo.Broker != "tcp://file:1883" {
		t.Errorf("Broker = %q, want value from file", opts.Demo.Broker)
	}
	if opts.Demo.Ticks != 9 {
		t.Errorf("Ticks = %d, want explicit flag value 9", opts.Demo.Ticks)
	}
}

func TestValidationErrorStopsRun(t *testing.T) {
	a := NewApp("demo-agent", "demo", WithOptions(newTestOptions()), WithRunFunc(func() error {
		t.Fatal("run must not be called")
		return nil
	}))
	_, err := execute(t, a, "--demo.ticks=0")
	if err == nil || !strings.Contains(err.Error(), "ticks must be positive") {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestDumpConfig(t *testing.T) {
	a := NewApp("demo-agent", "demo", WithOptions(newTestOptions()), WithRunFunc(func() error {
		t.Fatal("run must not be called")
		return nil
	}))
	out, err := execute(t, a, "--dump-config")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "demo:") || !strings.Contains(out, "tcp://default:1883") {
		t.Errorf("dump output:\n%s", out)
	}
	if strings.Contains(out, "dump-config") {
		t.Errorf("dump output contains command flags:\n%s", out)
	}
}

func TestRejectsPositionalArgs(t *testing.T) {
	a := NewApp("demo-agent", "demo", WithOptions(newTestOptions()), WithDefaultValidArgs(), WithRunFunc(func() error { return nil }))
	if _, err := execute(t, a, "extra"); err == nil {
		t.Error("expected positional argument to be rejected")
	}
}
