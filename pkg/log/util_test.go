package log

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToFields(t *testing.T) {
	now := time.Now()
	err := errors.New("boom")

	tests := []struct {
		name      string
		input     []any
		wantCount int
	}{
		{"empty input", []any{}, 0},
		{"string-int-bool", []any{"a", "x", "b", 123, "c", true}, 3},
		{"time type", []any{"t", now}, 1},
		{"duration", []any{"d", 2 * time.Second}, 1},
		{"bytes", []any{"data", []byte("xyz")}, 1},
		{"error only", []any{err}, 1},
		{"multiple errors", []any{err, errors.New("again")}, 2},
		{"mixed field types", []any{"msg", "ok", zap.String("x", "y"), "num", 42}, 3},
		{"odd number of args", []any{"key1", "val1", "key2"}, 2},
		{"non-string key", []any{123, "value", true, 99}, 2},
		{"nil values", []any{"a", nil, "b", (*int)(nil)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)
			if len(fields) != tt.wantCount {
				t.Fatalf("toFields() returned %d fields, want %d", len(fields), tt.wantCount)
			}
			for _, f := range fields {
				if f.Key == "" {
					t.Errorf("field has empty key: %+v", f)
				}
			}
		})
	}
}

func TestNewFromZapNamesAndValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core)).WithName("link").WithValues("ssid", "Briarhill")

	l.Info("Wifi connected", "address", "192.168.0.20")
	l.Error(errors.New("boom"), "association failed")

	if logs.Len() != 2 {
		t.Fatalf("observed %d entries, want 2", logs.Len())
	}
	first := logs.All()[0]
	if first.LoggerName != "link" {
		t.Errorf("LoggerName = %q, want link", first.LoggerName)
	}
	ctx := first.ContextMap()
	if ctx["ssid"] != "Briarhill" || ctx["address"] != "192.168.0.20" {
		t.Errorf("unexpected context %v", ctx)
	}
	if logs.All()[1].Level != zapcore.ErrorLevel {
		t.Errorf("second entry level = %v, want error", logs.All()[1].Level)
	}
	if NewFromZap(zap.New(core)).Logr().GetSink() == nil {
		t.Error("Logr() returned a logger without sink")
	}
}

func TestSyslogSinkForwardsEntries(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	opts := NewOptions()
	opts.OutputPaths = []string{"stderr"}
	opts.Syslog.Server = pc.LocalAddr().String()
	opts.Syslog.Hostname = "GarageDoorSensor"
	opts.Syslog.AppName = "GarageDoor"

	NewLogger(opts).Info("MQTT Connected")

	buf := make([]byte, 2048)
	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("no syslog datagram received: %v", err)
	}
	got := string(buf[:n])
	for _, want := range []string{"GarageDoorSensor", "GarageDoor", "MQTT Connected"} {
		if !strings.Contains(got, want) {
			t.Errorf("datagram %q does not contain %q", got, want)
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := NewOptions()
	if errs := opts.Validate(); len(errs) != 0 {
		t.Fatalf("default options invalid: %v", errs)
	}

	opts.Format = "xml"
	opts.Syslog.Server = "no-port"
	opts.Syslog.Network = "sctp"
	if errs := opts.Validate(); len(errs) != 3 {
		t.Errorf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
}
