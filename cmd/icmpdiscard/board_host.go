//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/soypat/icmpdiscard"
	"github.com/soypat/icmpdiscard/netact"
	"github.com/soypat/icmpdiscard/sim"
	"github.com/soypat/icmpdiscard/wlan"
)

const startupDelay = 0

type board struct {
	console   io.Writer
	logger    *slog.Logger
	station   wlan.Station
	suspender icmpdiscard.Suspender
	policy    icmpdiscard.FailurePolicy
}

// newBoard wires a simulated radio. A peer pings the host every second and
// the radio discards the pings.
func newBoard() board {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(GetEnv("ICMPDISCARD_LOG_LEVEL", "INFO"))); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	var stack sim.Stack
	handler := netact.NewHandler(&stack, netact.Config{Logger: logger})
	traffic := sim.NewTraffic(handler, sim.TrafficConfig{
		PingPeriod:  time.Second,
		DiscardICMP: true,
	})
	go traffic.Run(context.Background())
	return board{
		console:   os.Stdout,
		logger:    logger,
		station:   sim.NewStation(sim.DefaultStationConfig()),
		suspender: handler,
		policy:    icmpdiscard.ReturnOnFailure,
	}
}

// override replaces embedded credentials with ICMPDISCARD_SSID,
// ICMPDISCARD_PASSWORD and ICMPDISCARD_SECURITY when set.
func (b board) override(creds wlan.Credentials) wlan.Credentials {
	creds.SSID = GetEnv("ICMPDISCARD_SSID", creds.SSID)
	creds.Password = GetEnv("ICMPDISCARD_PASSWORD", creds.Password)
	if s, ok := os.LookupEnv("ICMPDISCARD_SECURITY"); ok {
		sec, err := wlan.ParseSecurity(s)
		if err != nil {
			b.logger.Error("ICMPDISCARD_SECURITY", slog.String("err", err.Error()))
		} else {
			creds.Security = sec
		}
	}
	return creds
}

func GetEnv(name string, defaultValue string) string {
	value, ok := os.LookupEnv(name)
	if !ok {
		return defaultValue
	}
	return value
}
