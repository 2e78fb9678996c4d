package icmpdiscard

import (
	"context"
	"log/slog"
	"time"

	"github.com/soypat/icmpdiscard/wlan"
)

// SuspendLoop asks sus to suspend the network stack over and over with the
// same parameters. Results are reported to the observer and otherwise
// ignored: the host keeps trying to sleep whether the last attempt timed
// out or suspended. The loop returns only when ctx is done or, before the
// first attempt, when the suspend configuration is invalid.
func (d *Driver) SuspendLoop(ctx context.Context, sta wlan.Station, sus Suspender) error {
	cfg := d.cfg.Suspend
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.info("netsuspend:start",
		slog.Duration("interval", cfg.Interval),
		slog.Duration("window", cfg.Window),
		slog.String("status", sta.ConnectionStatus().String()),
	)
	for i := uint64(1); ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		result, err := sus.WaitNetSuspend(ctx, cfg.Timeout, cfg.Interval, cfg.Window)
		ev := SuspendEvent{
			Iteration: i,
			Result:    result,
			Err:       err,
			Elapsed:   time.Since(start),
		}
		if err != nil {
			d.debug("netsuspend:wait", slog.Uint64("iter", i), slog.String("err", err.Error()))
		} else {
			d.trace("netsuspend:wait", slog.Uint64("iter", i), slog.String("result", result.String()), slog.Duration("elapsed", ev.Elapsed))
		}
		if d.cfg.Observer != nil {
			d.cfg.Observer(ev)
		}
	}
}
