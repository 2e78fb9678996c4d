// Package netact suspends a network stack once the link has been idle for
// a while and resumes it on the next frame. Backends report every frame
// crossing the NIC with [Handler.Mark].
package netact

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// WaitForever disables the timeout of [Handler.WaitNetSuspend].
const WaitForever time.Duration = math.MaxInt64

const (
	levelTrace slog.Level = slog.LevelDebug - 1
	minPoll               = time.Millisecond
)

var (
	errBadInterval    = errors.New("netact: inactivity interval and window must be positive")
	errWindowTooLarge = errors.New("netact: inactivity window exceeds interval")
)

// Result is the outcome of a call to [Handler.WaitNetSuspend].
type Result uint8

const (
	// ResultTimeout means the network never stayed idle long enough before the timeout.
	ResultTimeout Result = iota
	// ResultSuspended means the stack was suspended and has since been resumed.
	ResultSuspended
)

func (r Result) String() string {
	switch r {
	case ResultTimeout:
		return "timeout"
	case ResultSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// Stack is a network stack whose timers and transmit path can be paused.
type Stack interface {
	Suspend() error
	Resume() error
}

// Config configures a Handler.
type Config struct {
	Logger *slog.Logger
	// PollPeriod is the activity sampling period. Zero picks an eighth of
	// the inactivity window, never less than a millisecond.
	PollPeriod time.Duration
}

// Stats are cumulative counters of a Handler.
type Stats struct {
	Frames        uint64
	Suspends      uint64
	Timeouts      uint64
	LastSuspended time.Duration
}

// Handler tracks network activity and suspends its Stack when idle.
// Mark may be called concurrently with WaitNetSuspend; WaitNetSuspend
// itself must not be called concurrently.
type Handler struct {
	stack         Stack
	logger        *slog.Logger
	poll          time.Duration
	frames        atomic.Uint64
	suspended     atomic.Bool
	wake          chan struct{}
	suspends      atomic.Uint64
	timeouts      atomic.Uint64
	lastSuspended atomic.Int64
}

// NewHandler returns a Handler suspending stack. A nil logger disables logging.
func NewHandler(stack Stack, cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(127),
		}))
	}
	return &Handler{
		stack:  stack,
		logger: logger,
		poll:   cfg.PollPeriod,
		wake:   make(chan struct{}, 1),
	}
}

// Mark records one frame sent or received. A suspended stack is woken up.
func (h *Handler) Mark() {
	h.frames.Add(1)
	if h.suspended.Load() {
		select {
		case h.wake <- struct{}{}:
		default:
		}
	}
}

// Suspended reports whether the stack is currently suspended.
func (h *Handler) Suspended() bool { return h.suspended.Load() }

// Stats returns a snapshot of the counters.
func (h *Handler) Stats() Stats {
	return Stats{
		Frames:        h.frames.Load(),
		Suspends:      h.suspends.Load(),
		Timeouts:      h.timeouts.Load(),
		LastSuspended: time.Duration(h.lastSuspended.Load()),
	}
}

// WaitNetSuspend blocks until the network has been inactive for a continuous
// window inside an interval, then suspends the stack until the next frame
// arrives. If inactivity is not observed before timeout it returns
// ResultTimeout. A suspended stack is resumed when the timeout expires
// or ctx is done.
func (h *Handler) WaitNetSuspend(ctx context.Context, timeout, interval, window time.Duration) (Result, error) {
	if interval <= 0 || window <= 0 {
		return ResultTimeout, errBadInterval
	} else if window > interval {
		return ResultTimeout, errWindowTooLarge
	}
	var deadline time.Time
	if timeout != WaitForever {
		deadline = time.Now().Add(timeout)
	}
	for {
		idle, seen, err := h.waitInactive(ctx, interval, window, deadline)
		if err != nil {
			return ResultTimeout, err
		}
		if idle {
			return h.suspend(ctx, seen, deadline)
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			h.timeouts.Add(1)
			h.trace("netact:timeout", slog.Duration("timeout", timeout))
			return ResultTimeout, nil
		}
	}
}

// waitInactive watches the frame counter for at most interval and returns
// true once no frame was marked for window. seen is the last counter value.
func (h *Handler) waitInactive(ctx context.Context, interval, window time.Duration, deadline time.Time) (idle bool, seen uint64, err error) {
	start := time.Now()
	end := start.Add(interval)
	if !deadline.IsZero() && deadline.Before(end) {
		end = deadline
	}
	poll := h.poll
	if poll <= 0 {
		poll = max(window/8, minPoll)
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	seen = h.frames.Load()
	idleSince := start
	for {
		now := time.Now()
		if now.Sub(idleSince) >= window {
			return true, seen, nil
		} else if !now.Before(end) {
			return false, seen, nil
		}
		select {
		case <-ctx.Done():
			return false, seen, ctx.Err()
		case <-ticker.C:
		}
		if n := h.frames.Load(); n != seen {
			seen = n
			idleSince = time.Now()
		}
	}
}

func (h *Handler) suspend(ctx context.Context, seen uint64, deadline time.Time) (Result, error) {
	// Discard a wake token left over from a previous suspension.
	select {
	case <-h.wake:
	default:
	}
	if err := h.stack.Suspend(); err != nil {
		return ResultTimeout, errors.Join(errors.New("netact: suspend failed"), err)
	}
	h.suspended.Store(true)
	start := time.Now()
	h.trace("netact:suspended")

	var expired <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		expired = timer.C
	}
	var err error
	// A frame marked between the idle check and the suspended flag being set
	// did not send a wake token, so check the counter before blocking.
	if h.frames.Load() == seen {
		select {
		case <-h.wake:
		case <-expired:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	h.suspended.Store(false)
	elapsed := time.Since(start)
	h.suspends.Add(1)
	h.lastSuspended.Store(int64(elapsed))
	if rerr := h.stack.Resume(); rerr != nil {
		err = errors.Join(err, errors.New("netact: resume failed"), rerr)
	}
	h.trace("netact:resumed", slog.Duration("suspended", elapsed))
	return ResultSuspended, err
}

func (h *Handler) trace(msg string, attrs ...slog.Attr) {
	h.logger.LogAttrs(context.Background(), levelTrace, msg, attrs...)
}
