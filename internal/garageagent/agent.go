// Package garageagent runs the garage door control loop: keep the link and
// broker session up, report the door state, pulse the opener on command and
// install firmware images.
package garageagent

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/garage-agent/internal/garageagent/core"
	"github.com/autopeer-io/garage-agent/internal/garageagent/link"
	"github.com/autopeer-io/garage-agent/internal/garageagent/report"
	"github.com/autopeer-io/garage-agent/internal/garageagent/sensor"
	"github.com/autopeer-io/garage-agent/internal/garageagent/server"
	"github.com/autopeer-io/garage-agent/internal/garageagent/session"
	"github.com/autopeer-io/garage-agent/internal/pkg/metrics"
	"github.com/autopeer-io/garage-agent/pkg/log"
)

// ErrUpdateInstalled stops the loop after a firmware image was installed so
// the caller can restart into it.
var ErrUpdateInstalled = errors.New("firmware update installed")

// NeedsRestart reports whether err returned by Run calls for the HAL restart
// action.
func NeedsRestart(err error) bool {
	return session.IsFatal(err) || errors.Is(err, ErrUpdateInstalled)
}

type Agent struct {
	hal       core.HAL
	link      *link.Supervisor
	session   *session.Supervisor
	sampler   *sensor.Sampler
	scheduler *report.Scheduler
	updates   core.UpdateChannel
	server    *server.Server
	clock     clock.Clock
	logger    log.Logger

	statusTopic     string
	tick            time.Duration
	restartOnUpdate bool

	// Snapshot for the HTTP goroutines.
	linkUp    atomic.Bool
	sessionUp atomic.Bool
}

// Run brings the link and session up and then loops until ctx is done or a
// tick fails. The HTTP server, when configured, runs alongside the loop.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("Starting garage agent", "statusTopic", a.statusTopic, "tick", a.tick)

	g, ctx := errgroup.WithContext(ctx)
	if a.server != nil {
		g.Go(func() error {
			// The door keeps working without its probes.
			if err := a.server.Start(ctx); err != nil {
				a.logger.Error(err, "HTTP server stopped")
			}
			return nil
		})
	}
	g.Go(func() error {
		return a.loop(ctx)
	})
	return g.Wait()
}

func (a *Agent) loop(ctx context.Context) error {
	defer a.shutdown()

	if err := a.startup(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	for {
		if err := a.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			a.logger.Info("Agent shutting down...")
			return nil
		case <-a.clock.After(a.tick):
		}
	}
}

func (a *Agent) startup(ctx context.Context) error {
	defer a.snapshot()

	if err := a.link.EnsureUp(ctx); err != nil {
		return err
	}
	if err := a.session.EnsureConnected(ctx); err != nil {
		return err
	}
	if err := a.updates.Begin(ctx); err != nil {
		a.logger.Error(err, "OTA setup failed")
	}
	return nil
}

func (a *Agent) shutdown() {
	if err := a.updates.Close(); err != nil {
		a.logger.Error(err, "Failed to close update channel")
	}
	a.session.Close(context.Background())
	a.snapshot()
}

// Tick runs one iteration of the loop without the trailing sleep. It only
// returns an error for a fatal session failure, an installed update or a
// cancelled context.
func (a *Agent) Tick(ctx context.Context) error {
	start := a.clock.Now()
	defer func() {
		a.snapshot()
		metrics.Ticks.Inc()
		metrics.TickLatency.Observe(a.clock.Since(start).Seconds())
	}()

	if !a.link.IsUp() {
		if err := a.link.EnsureUp(ctx); err != nil {
			return err
		}
	}

	state, err := a.sampler.Sample()
	if err != nil {
		a.logger.Error(err, "Failed to read door switch")
		a.scheduler.Skip()
	} else {
		a.logger.Debug("GarageState", "state", state.String())
		if err := a.report(ctx, state); session.IsFatal(err) {
			return err
		}
		a.scheduler.Observe(state)
	}

	if err := a.session.PollInbound(ctx); err != nil {
		return err
	}

	for _, ev := range a.updates.Poll(ctx) {
		core.LogEvent(a.logger, ev)
		if _, ok := ev.(core.EndEvent); ok && a.restartOnUpdate {
			return ErrUpdateInstalled
		}
	}
	return nil
}

// report publishes state when the scheduler says so. A non-fatal publish
// error has already torn the session down and is only counted.
func (a *Agent) report(ctx context.Context, state core.DoorState) error {
	reason := a.scheduler.Due(state)
	switch reason {
	case report.None:
		return nil
	case report.Change:
		a.logger.Info("Door status changed, sending update", "state", state.String())
	default:
		a.logger.Info("Sending status update", "state", state.String())
	}

	err := a.session.Publish(ctx, a.statusTopic, report.Payload(state))
	result := "success"
	if err != nil {
		result = "failed"
	}
	metrics.Reports.WithLabelValues(reason.String(), result).Inc()
	return err
}

func (a *Agent) snapshot() {
	a.linkUp.Store(a.link.IsUp())
	a.sessionUp.Store(a.session.IsConnected())
}

// Ready returns the last published link and session health.
func (a *Agent) Ready() (linkUp, sessionUp bool) {
	return a.linkUp.Load(), a.sessionUp.Load()
}

// Restart performs the HAL restart action.
func (a *Agent) Restart() error {
	a.logger.Warn("Restarting device")
	return a.hal.Restart()
}

// Close releases the hardware lines.
func (a *Agent) Close() error {
	return a.hal.Close()
}
