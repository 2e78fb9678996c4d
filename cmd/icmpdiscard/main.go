// Command icmpdiscard is the discard packet filter low-power demo. Flash it
// to a Pico W with
//
//	tinygo flash -target=pico -stack-size=8kb -monitor ./cmd/icmpdiscard
//
// after writing the network credentials to the credentials package. Host
// builds run against a simulated radio.
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/soypat/icmpdiscard"
	"github.com/soypat/icmpdiscard/credentials"
)

func main() {
	time.Sleep(startupDelay) // Give time to connect to USB and monitor output.
	b := newBoard()
	creds, err := credentials.Credentials()
	if err != nil {
		b.logger.Error("credentials: using WPA2", slog.String("err", err.Error()))
	}
	creds = b.override(creds)

	d := icmpdiscard.New(icmpdiscard.Config{
		Credentials: creds,
		Policy:      b.policy,
		CheckStatus: true,
		ClearScreen: true,
		Console:     b.console,
		Logger:      b.logger,
	})
	err = d.Run(context.Background(), b.station, b.suspender)
	if err != nil {
		b.logger.Error("icmpdiscard:exit", slog.String("err", err.Error()))
	}
}
