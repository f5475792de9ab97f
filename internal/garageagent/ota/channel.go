// Package ota receives firmware images in small steps driven by the control
// loop and installs them at a fixed path.
package ota

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/autopeer-io/garage-agent/internal/garageagent/core"
	"github.com/autopeer-io/garage-agent/internal/pkg/metrics"
	"github.com/autopeer-io/garage-agent/pkg/log"
)

// Offer is an image a source has available.
type Offer struct {
	Source string
	Name   string
	// Size is the expected length in bytes, 0 when unknown.
	Size int64
	// SHA256 is the expected hex digest, empty when the source has none.
	SHA256 string
	// Open starts reading the image. Reads must fail once ctx is cancelled.
	Open func(ctx context.Context) (io.ReadCloser, error)
	// Finish is told whether the image was installed.
	Finish func(installed bool)
}

// Source produces offers. Next must not block.
type Source interface {
	Name() string
	Begin(ctx context.Context) error
	Next(ctx context.Context) (*Offer, error)
	Close() error
}

type transfer struct {
	offer  *Offer
	cancel context.CancelFunc
	r      io.ReadCloser
	f      *os.File
	h      hash.Hash
	done   int64
}

// Channel implements core.UpdateChannel on top of one or more sources. At
// most one transfer runs at a time, advanced by one chunk per Poll. Opening
// an image and reading a chunk are each bounded by timeout.
type Channel struct {
	installPath string
	chunkSize   int64
	timeout     time.Duration
	sources     []Source
	logger      log.Logger

	cur *transfer
}

var _ core.UpdateChannel = (*Channel)(nil)

func NewChannel(installPath string, chunkSize int, timeout time.Duration, logger log.Logger, sources ...Source) *Channel {
	return &Channel{
		installPath: installPath,
		chunkSize:   int64(chunkSize),
		timeout:     timeout,
		sources:     sources,
		logger:      logger,
	}
}

// Begin starts every source. Sources that fail to start are dropped and
// reported in the returned aggregate.
func (c *Channel) Begin(ctx context.Context) error {
	var errs []error
	started := c.sources[:0]
	for _, s := range c.sources {
		if err := s.Begin(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		c.logger.Info("OTA Ready", "source", s.Name())
		started = append(started, s)
	}
	c.sources = started
	return utilerrors.NewAggregate(errs)
}

func (c *Channel) Poll(ctx context.Context) []core.Event {
	var evs []core.Event
	if c.cur == nil {
		evs = c.start(ctx)
	} else {
		evs = c.advance()
	}
	for _, ev := range evs {
		metrics.UpdateEvents.WithLabelValues(eventLabel(ev)).Inc()
	}
	return evs
}

func (c *Channel) start(ctx context.Context) []core.Event {
	for _, s := range c.sources {
		offer, err := s.Next(ctx)
		if err != nil {
			return []core.Event{core.ErrorEvent{Kind: core.ErrConnect, Err: fmt.Errorf("%s: %w", s.Name(), err)}}
		}
		if offer == nil {
			continue
		}

		tctx, cancel := context.WithCancel(ctx)
		var r io.ReadCloser
		if c.within(cancel, func() { r, err = offer.Open(tctx) }) && err == nil {
			_ = r.Close()
			err = fmt.Errorf("not opened within %s: %w", c.timeout, context.DeadlineExceeded)
		}
		if err != nil {
			cancel()
			offer.Finish(false)
			return []core.Event{core.ErrorEvent{Kind: core.ErrConnect, Err: fmt.Errorf("open %s: %w", offer.Name, err)}}
		}

		if err := os.MkdirAll(filepath.Dir(c.installPath), 0o755); err != nil {
			_ = r.Close()
			cancel()
			offer.Finish(false)
			return []core.Event{core.ErrorEvent{Kind: core.ErrBegin, Err: err}}
		}
		f, err := os.OpenFile(c.stagingPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			_ = r.Close()
			cancel()
			offer.Finish(false)
			return []core.Event{core.ErrorEvent{Kind: core.ErrBegin, Err: err}}
		}

		c.cur = &transfer{offer: offer, cancel: cancel, r: r, f: f, h: sha256.New()}
		return []core.Event{core.StartEvent{Source: offer.Source, Name: offer.Name}}
	}
	return nil
}

func (c *Channel) advance() []core.Event {
	t := c.cur
	var (
		n   int64
		err error
	)
	timedOut := c.within(t.cancel, func() {
		n, err = io.CopyN(io.MultiWriter(t.f, t.h), t.r, c.chunkSize)
	})
	t.done += n

	switch {
	case timedOut:
		return []core.Event{c.abort(core.ErrReceive, fmt.Errorf("chunk not received within %s: %w", c.timeout, context.DeadlineExceeded))}
	case err == nil:
		return []core.Event{core.ProgressEvent{Done: t.done, Total: t.offer.Size}}
	case errors.Is(err, io.EOF):
		return []core.Event{core.ProgressEvent{Done: t.done, Total: t.offer.Size}, c.finalize()}
	default:
		return []core.Event{c.abort(core.ErrReceive, err)}
	}
}

func (c *Channel) finalize() core.Event {
	t := c.cur

	if t.offer.Size > 0 && t.done != t.offer.Size {
		return c.abort(core.ErrReceive, fmt.Errorf("received %d of %d bytes", t.done, t.offer.Size))
	}
	if want := strings.ToLower(t.offer.SHA256); want != "" {
		if got := hex.EncodeToString(t.h.Sum(nil)); got != want {
			return c.abort(core.ErrAuth, fmt.Errorf("sha256 mismatch: got %s, want %s", got, want))
		}
	}
	if err := t.f.Sync(); err != nil {
		return c.abort(core.ErrEnd, err)
	}
	if err := t.f.Close(); err != nil {
		return c.abort(core.ErrEnd, err)
	}
	_ = t.r.Close()
	t.cancel()
	if err := os.Rename(c.stagingPath(), c.installPath); err != nil {
		return c.abort(core.ErrEnd, err)
	}

	t.offer.Finish(true)
	c.cur = nil
	return core.EndEvent{Path: c.installPath}
}

func (c *Channel) abort(kind core.ErrorKind, err error) core.Event {
	t := c.cur
	t.cancel()
	_ = t.r.Close()
	_ = t.f.Close()
	_ = os.Remove(c.stagingPath())
	t.offer.Finish(false)
	c.cur = nil
	return core.ErrorEvent{Kind: kind, Err: err}
}

// Close discards a transfer in progress and stops the sources.
func (c *Channel) Close() error {
	if c.cur != nil {
		c.abort(core.ErrReceive, errors.New("channel closed"))
	}
	var errs []error
	for _, s := range c.sources {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

// within runs fn and cancels the transfer context if fn outlives the
// timeout. It reports whether the timeout fired.
func (c *Channel) within(cancel context.CancelFunc, fn func()) bool {
	timer := time.AfterFunc(c.timeout, cancel)
	fn()
	return !timer.Stop()
}

func (c *Channel) stagingPath() string {
	return c.installPath + ".part"
}

func eventLabel(ev core.Event) string {
	switch e := ev.(type) {
	case core.StartEvent:
		return "start"
	case core.ProgressEvent:
		return "progress"
	case core.EndEvent:
		return "end"
	case core.ErrorEvent:
		return "error_" + strings.ToLower(e.Kind.String())
	}
	return "unknown"
}
