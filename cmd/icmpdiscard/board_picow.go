//go:build rp2040 || rp2350

package main

import (
	"io"
	"log/slog"
	"machine"
	"time"

	"github.com/soypat/icmpdiscard"
	"github.com/soypat/icmpdiscard/picow"
	"github.com/soypat/icmpdiscard/wlan"
)

const startupDelay = 2 * time.Second

type board struct {
	console   io.Writer
	logger    *slog.Logger
	station   wlan.Station
	suspender icmpdiscard.Suspender
	policy    icmpdiscard.FailurePolicy
}

func newBoard() board {
	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	sta := picow.New(picow.Config{
		Hostname: "icmpdiscard",
		Logger:   logger,
	})
	return board{
		console:   machine.Serial,
		logger:    logger,
		station:   sta,
		suspender: sta.Handler(),
		policy:    icmpdiscard.HaltOnFailure,
	}
}

// override is a no-op on the board: credentials are embedded at build time.
func (b board) override(creds wlan.Credentials) wlan.Credentials { return creds }
