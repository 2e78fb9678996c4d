// Command icmpdiscard-sim runs the discard packet filter demo against a
// simulated radio on the host. A peer pings the host periodically; with
// --discard-icmp the radio drops the pings and the stack stays suspended.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/soypat/icmpdiscard"
	"github.com/soypat/icmpdiscard/internal/observability"
	"github.com/soypat/icmpdiscard/netact"
	"github.com/soypat/icmpdiscard/sim"
	"github.com/soypat/icmpdiscard/wlan"
)

const levelTrace slog.Level = slog.LevelDebug - 1

type options struct {
	creds       wlan.Credentials
	policy      icmpdiscard.FailurePolicy
	checkStatus bool
	alreadyUp   bool
	failConnect bool
	clearScreen bool
	suspend     icmpdiscard.SuspendConfig
	iterations  uint64
	pingPeriod  time.Duration
	discardICMP bool
	metricsAddr string
	level       slog.Level
}

func newRootCmd() *cobra.Command {
	opts := options{
		creds:       wlan.Credentials{Security: wlan.SecurityWPA2},
		suspend:     icmpdiscard.DefaultSuspendConfig(),
		discardICMP: true,
		pingPeriod:  time.Second,
		level:       slog.LevelInfo,
	}
	opts.suspend.Timeout = 2 * time.Second
	cmd := &cobra.Command{
		Use:   "icmpdiscard-sim",
		Short: "Run the ICMP discard filter low-power demo on a simulated radio",
		Long: `
Joins a simulated Wi-Fi network and repeatedly suspends the network stack
while it is idle. A simulated peer pings the host every --ping-period.
With --discard-icmp the radio drops the pings before they reach the host.
		`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.creds.SSID, "ssid", "", "network name to join")
	flags.StringVar(&opts.creds.Password, "password", "", "network passphrase")
	flags.Var(securityValue{&opts.creds.Security}, "security", "security mode: NONE, WEP, WPA, WPA2, WPA_WPA2, WPA3 or WPA3_WPA2")
	flags.Var(policyValue{&opts.policy}, "policy", "behaviour on connection failure: return or halt")
	flags.BoolVar(&opts.checkStatus, "check-status", false, "skip joining when the station is already connected")
	flags.BoolVar(&opts.alreadyUp, "already-up", false, "simulate a station that is connected at start")
	flags.BoolVar(&opts.failConnect, "fail-connect", false, "simulate a radio that never associates")
	flags.BoolVar(&opts.clearScreen, "clear-screen", false, "clear the terminal before printing the banner")
	flags.DurationVar(&opts.suspend.Interval, "interval", opts.suspend.Interval, "inactivity monitoring interval")
	flags.DurationVar(&opts.suspend.Window, "window", opts.suspend.Window, "continuous idle time required to suspend")
	flags.DurationVar(&opts.suspend.Timeout, "timeout", opts.suspend.Timeout, "per-attempt timeout, 0 waits forever")
	flags.Uint64Var(&opts.iterations, "iterations", 0, "stop after this many suspend attempts, 0 runs until interrupted")
	flags.DurationVar(&opts.pingPeriod, "ping-period", opts.pingPeriod, "interval between pings from the peer, 0 disables them")
	flags.BoolVar(&opts.discardICMP, "discard-icmp", opts.discardICMP, "drop ICMP frames in the radio")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.Var(levelValue{&opts.level}, "log-level", "log level: trace, debug, info, warn or error")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	return runStation(ctx, opts, newStation(opts))
}

func newStation(opts options) *sim.Station {
	stacfg := sim.DefaultStationConfig()
	if opts.alreadyUp {
		stacfg.InitialStatus = wlan.StatusGlobalUp
	}
	if opts.failConnect {
		stacfg.ConnectErr = errors.New("sim: radio did not associate")
	}
	return sim.NewStation(stacfg)
}

// runStation runs the demo on sta until the iteration bound is reached or
// ctx is done.
func runStation(ctx context.Context, opts options, sta *sim.Station) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: opts.level,
	}))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stack sim.Stack
	handler := netact.NewHandler(&stack, netact.Config{Logger: logger})
	traffic := sim.NewTraffic(handler, sim.TrafficConfig{
		PingPeriod:  opts.pingPeriod,
		DiscardICMP: opts.discardICMP,
	})
	go traffic.Run(ctx)

	collector, err := observability.NewSuspendCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	if opts.metricsAddr != "" {
		ln, err := net.Listen("tcp", opts.metricsAddr)
		if err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go srv.Serve(ln)
		defer srv.Close()
		logger.Info("metrics:listen", slog.String("addr", ln.Addr().String()))
	}

	d := icmpdiscard.New(icmpdiscard.Config{
		Credentials: opts.creds,
		Policy:      opts.policy,
		CheckStatus: opts.checkStatus,
		ClearScreen: opts.clearScreen,
		Suspend:     opts.suspend,
		Console:     os.Stdout,
		Logger:      logger,
		Observer: func(ev icmpdiscard.SuspendEvent) {
			collector.Observe(ev)
			if opts.iterations > 0 && ev.Iteration >= opts.iterations {
				cancel()
			}
		},
	})
	err = d.Run(ctx, sta, handler)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	delivered, discarded := traffic.Counts()
	stats := handler.Stats()
	logger.Info("sim:done",
		slog.Uint64("delivered", delivered),
		slog.Uint64("discarded", discarded),
		slog.Uint64("frames", stats.Frames),
		slog.Uint64("suspends", stats.Suspends),
		slog.Uint64("timeouts", stats.Timeouts),
		slog.Duration("lastSuspended", stats.LastSuspended),
	)
	return err
}
