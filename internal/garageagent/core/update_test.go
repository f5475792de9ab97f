package core

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/autopeer-io/garage-agent/pkg/log"
)

func TestLogEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		message string
		level   zapcore.Level
	}{
		{"start", StartEvent{Source: "spool", Name: "fw.bin"}, "OTA Start", zapcore.InfoLevel},
		{"progress", ProgressEvent{Done: 50, Total: 200}, "OTA Progress", zapcore.InfoLevel},
		{"end", EndEvent{Path: "/tmp/fw.bin"}, "OTA End", zapcore.InfoLevel},
		{"auth", ErrorEvent{Kind: ErrAuth, Err: errors.New("checksum")}, "OTA Auth Failed", zapcore.ErrorLevel},
		{"begin", ErrorEvent{Kind: ErrBegin, Err: errors.New("x")}, "OTA Begin Failed", zapcore.ErrorLevel},
		{"connect", ErrorEvent{Kind: ErrConnect, Err: errors.New("x")}, "OTA Connect Failed", zapcore.ErrorLevel},
		{"receive", ErrorEvent{Kind: ErrReceive, Err: errors.New("x")}, "OTA Receive Failed", zapcore.ErrorLevel},
		{"end error", ErrorEvent{Kind: ErrEnd, Err: errors.New("x")}, "OTA End Failed", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			LogEvent(log.NewFromZap(zap.New(core)), tt.event)

			if logs.Len() != 1 {
				t.Fatalf("observed %d entries, want 1", logs.Len())
			}
			entry := logs.All()[0]
			if entry.Message != tt.message || entry.Level != tt.level {
				t.Errorf("got %q at %v, want %q at %v", entry.Message, entry.Level, tt.message, tt.level)
			}
		})
	}
}

func TestProgressPercent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	LogEvent(log.NewFromZap(zap.New(core)), ProgressEvent{Done: 50, Total: 200})
	if got := logs.All()[0].ContextMap()["percent"]; got != int64(25) {
		t.Errorf("percent = %v, want 25", got)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"high": High, "LOW": Low, " High ": High} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("floating"); err == nil {
		t.Error("ParseLevel(floating) should fail")
	}
	if DoorOpen.String() != "open" || DoorClosed.String() != "closed" || DoorUnknown.String() != "unknown" {
		t.Error("unexpected DoorState spelling")
	}
}
