// Package icmpdiscard drives the discard packet filter low-power demo: it
// joins a Wi-Fi network once and then keeps asking the network stack to
// suspend while idle so the host can stay in deep sleep. ICMP traffic is
// dropped by the radio firmware and never wakes the host.
package icmpdiscard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/soypat/icmpdiscard/netact"
	"github.com/soypat/icmpdiscard/wlan"
)

const (
	// DefaultInactiveInterval is how long the network is monitored for inactivity.
	// If it is inactive for less than DefaultInactiveWindow within the
	// interval, the stack is not suspended.
	DefaultInactiveInterval = 500 * time.Millisecond
	// DefaultInactiveWindow is the continuous idle time required before
	// the stack is suspended. A suspended stack does not service its
	// timers so the host can stay longer in deep sleep.
	DefaultInactiveWindow = 250 * time.Millisecond
)

var (
	// ErrInvalidArgument is returned for a missing station, bad credentials
	// or suspend parameters that could never suspend the stack.
	ErrInvalidArgument = errors.New("icmpdiscard: invalid argument")
	// ErrConnectionFailed is returned when the network could not be joined.
	ErrConnectionFailed = errors.New("icmpdiscard: connection failed")
)

// FailurePolicy selects what Run does when the network cannot be joined.
type FailurePolicy uint8

const (
	// ReturnOnFailure makes Run return the connection error.
	ReturnOnFailure FailurePolicy = iota
	// HaltOnFailure makes Run panic with the connection error.
	HaltOnFailure
)

func (p FailurePolicy) String() string {
	switch p {
	case ReturnOnFailure:
		return "return"
	case HaltOnFailure:
		return "halt"
	default:
		return "unknown"
	}
}

// Suspender suspends the network stack while the network is idle.
// It is implemented by [netact.Handler].
type Suspender interface {
	WaitNetSuspend(ctx context.Context, timeout, interval, window time.Duration) (netact.Result, error)
}

var _ Suspender = (*netact.Handler)(nil)

// SuspendConfig holds the arguments passed on every suspend attempt.
type SuspendConfig struct {
	Timeout  time.Duration
	Interval time.Duration
	Window   time.Duration
}

// DefaultSuspendConfig waits forever per attempt for 250ms of inactivity
// within a 500ms interval.
func DefaultSuspendConfig() SuspendConfig {
	return SuspendConfig{
		Timeout:  netact.WaitForever,
		Interval: DefaultInactiveInterval,
		Window:   DefaultInactiveWindow,
	}
}

// Validate rejects parameters the suspend helper would refuse on every
// call. All durations must be positive and the window must fit in the interval.
func (c SuspendConfig) Validate() error {
	switch {
	case c.Timeout <= 0:
		return fmt.Errorf("%w: suspend timeout %s", ErrInvalidArgument, c.Timeout)
	case c.Interval <= 0 || c.Window <= 0:
		return fmt.Errorf("%w: inactivity interval %s and window %s must be positive", ErrInvalidArgument, c.Interval, c.Window)
	case c.Window > c.Interval:
		return fmt.Errorf("%w: inactivity window %s exceeds interval %s", ErrInvalidArgument, c.Window, c.Interval)
	}
	return nil
}

// SuspendEvent describes one iteration of the suspend loop.
type SuspendEvent struct {
	Iteration uint64
	Result    netact.Result
	Err       error
	Elapsed   time.Duration
}

// Observer is called after every suspend attempt.
type Observer func(SuspendEvent)

// Config configures a Driver.
type Config struct {
	Credentials wlan.Credentials
	Policy      FailurePolicy
	// CheckStatus skips joining when the station reports an existing connection.
	CheckStatus bool
	// ClearScreen clears the terminal before printing the banner.
	ClearScreen bool
	Suspend     SuspendConfig
	// Console receives the banner. Nil disables it.
	Console  io.Writer
	Logger   *slog.Logger
	Observer Observer
}

// Driver sequences the demo. The station and suspender are passed to
// each call and owned by the caller for the lifetime of the process.
type Driver struct {
	cfg    Config
	logger *slog.Logger
}

// New returns a Driver. Zero suspend parameters are replaced by the defaults.
func New(cfg Config) *Driver {
	def := DefaultSuspendConfig()
	if cfg.Suspend.Timeout == 0 {
		cfg.Suspend.Timeout = def.Timeout
	}
	if cfg.Suspend.Interval == 0 {
		cfg.Suspend.Interval = def.Interval
	}
	if cfg.Suspend.Window == 0 {
		cfg.Suspend.Window = def.Window
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(127), // Make temporary logger that does no logging.
		}))
	}
	return &Driver{cfg: cfg, logger: logger}
}

// Config returns the configuration in use after defaults were applied.
func (d *Driver) Config() Config { return d.cfg }

// Run prints the banner, joins the configured network and enters the
// suspend loop. It only returns on connection failure under
// ReturnOnFailure or when ctx is done.
func (d *Driver) Run(ctx context.Context, sta wlan.Station, sus Suspender) error {
	d.printBanner()
	if err := d.cfg.Suspend.Validate(); err != nil {
		d.logerr("netsuspend:bad config", slog.String("err", err.Error()))
		return err
	}
	err := d.Connect(sta, d.cfg.Credentials)
	if err != nil {
		d.logerr("failed to connect to AP, check Wi-Fi credentials", slog.String("err", err.Error()))
		if d.cfg.Policy == HaltOnFailure {
			panic(err)
		}
		return err
	}
	return d.SuspendLoop(ctx, sta, sus)
}
