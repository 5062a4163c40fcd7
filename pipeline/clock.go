package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/khaledhikmat/handpose-go/service/lgr"
)

var ErrNotReady = errors.New("session clock has no origin yet")

// SessionClock latches the capture timestamp of ordinal 0 and expresses every
// later timestamp relative to it. Frames that arrive before ordinal 0 wait on
// Ready, until the clock is abandoned because ordinal 0 will never decode.
type SessionClock struct {
	once   sync.Once
	ready  chan struct{}
	origin uint64

	abandonOnce sync.Once
	abandoned   chan struct{}
}

func NewSessionClock() *SessionClock {
	return &SessionClock{
		ready:     make(chan struct{}),
		abandoned: make(chan struct{}),
	}
}

// Observe latches ts as the origin when ordinal is 0. Repeated calls are no-ops.
func (c *SessionClock) Observe(ordinal uint64, ts uint64) {
	if ordinal != 0 {
		return
	}

	c.once.Do(func() {
		c.origin = ts
		close(c.ready)
		lgr.Logger.Info(
			"session clock origin latched",
			slog.Uint64("origin", ts),
		)
	})
}

func (c *SessionClock) Ready() <-chan struct{} {
	return c.ready
}

func (c *SessionClock) IsReady() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// Abandon releases every current and future waiter with ErrNotReady. It is a
// no-op once the origin is latched.
func (c *SessionClock) Abandon(reason string) {
	if c.IsReady() {
		return
	}

	c.abandonOnce.Do(func() {
		close(c.abandoned)
		lgr.Logger.Warn(
			"session clock abandoned without an origin",
			slog.String("reason", reason),
		)
	})
}

// Wait blocks until the origin is latched, the clock is abandoned or ctx is
// done.
func (c *SessionClock) Wait(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	default:
	}

	select {
	case <-c.ready:
		return nil
	case <-c.abandoned:
		if c.IsReady() {
			return nil
		}
		return ErrNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Relative returns ts minus the origin. Timestamps older than the origin come
// out negative.
func (c *SessionClock) Relative(ts uint64) (int64, error) {
	if !c.IsReady() {
		return 0, ErrNotReady
	}
	return int64(ts - c.origin), nil
}
