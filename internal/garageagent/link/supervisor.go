// Package link keeps the device associated with its network.
package link

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/looplab/fsm"

	"github.com/autopeer-io/garage-agent/internal/garageagent/core"
	"github.com/autopeer-io/garage-agent/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/garage-agent/internal/pkg/util/fsm"
	"github.com/autopeer-io/garage-agent/pkg/log"
)

// Link health states and the events moving between them.
const (
	StateUp   = "up"
	StateDown = "down"

	EventAssociated = "associated"
	EventLost       = "lost"
)

var errNotAssociated = errors.New("link not associated yet")

// Supervisor owns the link health state. The state only changes inside EnsureUp.
type Supervisor struct {
	assoc          core.Associator
	retryInterval  time.Duration
	attemptTimeout time.Duration
	logger         log.Logger

	fsm *fsm.FSM
}

// New returns a Supervisor in the down state.
func New(assoc core.Associator, retryInterval, attemptTimeout time.Duration, logger log.Logger) *Supervisor {
	s := &Supervisor{
		assoc:          assoc,
		retryInterval:  retryInterval,
		attemptTimeout: attemptTimeout,
		logger:         logger,
	}
	s.fsm = fsm.NewFSM(
		StateDown,
		fsm.Events{
			{Name: EventAssociated, Src: []string{StateDown}, Dst: StateUp},
			{Name: EventLost, Src: []string{StateUp}, Dst: StateDown},
		},
		fsm.Callbacks{
			"enter_" + StateUp: fsmutil.WrapEvent(s.onUp),
			"enter_" + StateDown: func(ctx context.Context, e *fsm.Event) {
				metrics.LinkUp.Set(0)
			},
		},
	)
	return s
}

func (s *Supervisor) onUp(ctx context.Context, e *fsm.Event) error {
	metrics.LinkUp.Set(1)
	s.logger.Info("Wifi connected", "address", s.assoc.LocalAddress())
	return nil
}

// State returns the current link health.
func (s *Supervisor) State() string {
	return s.fsm.Current()
}

// IsUp reports whether the link is healthy without blocking.
func (s *Supervisor) IsUp() bool {
	return s.fsm.Is(StateUp) && s.assoc.Status()
}

// EnsureUp blocks until the link is up, retrying association at a constant
// interval. It returns early only when ctx is done. When the link is already
// up no association attempt is made.
func (s *Supervisor) EnsureUp(ctx context.Context) error {
	if s.fsm.Is(StateUp) {
		if s.assoc.Status() {
			return nil
		}
		s.logger.Info("Wifi Disconnected")
		if err := fsmutil.Fire(ctx, s.fsm, EventLost); err != nil {
			return err
		}
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(s.retryInterval), ctx)
	err := backoff.RetryNotify(func() error {
		return s.attempt(ctx)
	}, b, func(err error, next time.Duration) {
		s.logger.Debug("Association attempt failed, retrying", "error", err.Error(), "retryIn", next)
	})
	if err != nil {
		return err
	}

	return fsmutil.Fire(ctx, s.fsm, EventAssociated)
}

func (s *Supervisor) attempt(ctx context.Context) error {
	if s.assoc.Status() {
		return nil
	}

	actx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
	defer cancel()

	if err := s.assoc.Associate(actx); err != nil {
		metrics.LinkAssociations.WithLabelValues("failed").Inc()
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	if !s.assoc.Status() {
		metrics.LinkAssociations.WithLabelValues("failed").Inc()
		return errNotAssociated
	}
	metrics.LinkAssociations.WithLabelValues("success").Inc()
	return nil
}
