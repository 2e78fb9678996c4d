package icmpdiscard

import (
	"context"
	"io"
	"log/slog"
)

// levelTrace is below debug and used for per-iteration suspend records.
const levelTrace slog.Level = slog.LevelDebug - 1

const (
	clearScreen = "\x1b[2J\x1b[;H"
	bannerRule  = "=====================================================\n"
	bannerTitle = "Discard Packet (ICMP) Filter Offload Demo\n"
	bannerBody  = `ICMP packets trying to reach the host will be discarded by
the WLAN. To allow ICMP packets to reach the host, remove the
ICMP discard filter from the radio firmware configuration.

`
)

func (d *Driver) printBanner() {
	w := d.cfg.Console
	if w == nil {
		return
	}
	if d.cfg.ClearScreen {
		io.WriteString(w, clearScreen)
	}
	io.WriteString(w, bannerRule)
	io.WriteString(w, bannerTitle)
	io.WriteString(w, bannerRule+"\n")
	io.WriteString(w, bannerBody)
}

func (d *Driver) logerr(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelError, msg, attrs...)
}

func (d *Driver) info(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelInfo, msg, attrs...)
}

func (d *Driver) debug(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelDebug, msg, attrs...)
}

func (d *Driver) trace(msg string, attrs ...slog.Attr) {
	d.logattrs(levelTrace, msg, attrs...)
}

func (d *Driver) logattrs(level slog.Level, msg string, attrs ...slog.Attr) {
	d.logger.LogAttrs(context.Background(), level, msg, attrs...)
}
