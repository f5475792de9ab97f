package core

import (
	"context"
	"fmt"

	"github.com/autopeer-io/garage-agent/pkg/log"
)

// UpdateChannel receives firmware images. Poll is called once per loop
// iteration and must return promptly.
type UpdateChannel interface {
	// Begin starts listening for images.
	Begin(ctx context.Context) error

	// Poll advances any transfer in progress by a bounded amount and returns
	// what happened.
	Poll(ctx context.Context) []Event

	// Close stops listening and discards a partial transfer.
	Close() error
}

// Event is one of StartEvent, ProgressEvent, EndEvent or ErrorEvent.
type Event interface {
	isUpdateEvent()
}

// StartEvent marks the beginning of a transfer.
type StartEvent struct {
	Source string
	Name   string
}

// ProgressEvent reports bytes received so far. Total is 0 when unknown.
type ProgressEvent struct {
	Done  int64
	Total int64
}

// EndEvent marks an image that was received, verified and installed.
type EndEvent struct {
	Path string
}

// ErrorKind classifies update failures.
type ErrorKind int

const (
	// ErrAuth is an image that failed verification.
	ErrAuth ErrorKind = iota
	// ErrBegin is a failure to prepare the install target.
	ErrBegin
	// ErrConnect is a failure to reach the image source.
	ErrConnect
	// ErrReceive is a failure while reading the image.
	ErrReceive
	// ErrEnd is a failure to finalize the install.
	ErrEnd
)

func (k ErrorKind) String() string {
	switch k {
	case ErrAuth:
		return "Auth"
	case ErrBegin:
		return "Begin"
	case ErrConnect:
		return "Connect"
	case ErrReceive:
		return "Receive"
	case ErrEnd:
		return "End"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ErrorEvent aborts the transfer in progress.
type ErrorEvent struct {
	Kind ErrorKind
	Err  error
}

func (StartEvent) isUpdateEvent()    {}
func (ProgressEvent) isUpdateEvent() {}
func (EndEvent) isUpdateEvent()      {}
func (ErrorEvent) isUpdateEvent()    {}

// LogEvent writes the diagnostic line for an update event.
func LogEvent(logger log.Logger, ev Event) {
	switch e := ev.(type) {
	case StartEvent:
		logger.Info("OTA Start", "source", e.Source, "name", e.Name)
	case ProgressEvent:
		if e.Total > 0 {
			logger.Info("OTA Progress", "percent", e.Done*100/e.Total, "done", e.Done, "total", e.Total)
		} else {
			logger.Info("OTA Progress", "done", e.Done)
		}
	case EndEvent:
		logger.Info("OTA End", "path", e.Path)
	case ErrorEvent:
		logger.Error(e.Err, fmt.Sprintf("OTA %s Failed", e.Kind))
	}
}
