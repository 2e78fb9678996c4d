package sim

import (
	"context"
	"sync/atomic"
	"time"
)

// FrameKind classifies simulated frames arriving at the radio.
type FrameKind uint8

const (
	FrameICMP FrameKind = iota
	FrameTCP
)

// String returns the protocol name of the frame kind.
func (k FrameKind) String() string {
	switch k {
	case FrameICMP:
		return "icmp"
	case FrameTCP:
		return "tcp"
	default:
		return "unknown"
	}
}

// Marker records a frame reaching the host. Implemented by netact.Handler.
type Marker interface {
	Mark()
}

type TrafficConfig struct {
	// PingPeriod is the interval between ICMP echo requests from a peer. Zero disables them.
	PingPeriod time.Duration
	// DataPeriod is the interval between TCP frames. Zero disables them.
	DataPeriod time.Duration
	// DiscardICMP models the radio firmware dropping ICMP frames before they reach the host.
	DiscardICMP bool
}

// Traffic feeds simulated frames through a modelled radio into a Marker.
type Traffic struct {
	cfg       TrafficConfig
	host      Marker
	delivered atomic.Uint64
	discarded atomic.Uint64
}

func NewTraffic(host Marker, cfg TrafficConfig) *Traffic {
	return &Traffic{cfg: cfg, host: host}
}

// Deliver passes a single frame through the radio.
func (t *Traffic) Deliver(kind FrameKind) {
	if kind == FrameICMP && t.cfg.DiscardICMP {
		t.discarded.Add(1)
		return
	}
	t.delivered.Add(1)
	t.host.Mark()
}

// Counts returns the number of frames that reached the host and the number
// discarded by the radio.
func (t *Traffic) Counts() (delivered, discarded uint64) {
	return t.delivered.Load(), t.discarded.Load()
}

// Run generates frames until ctx is done.
func (t *Traffic) Run(ctx context.Context) {
	var ping, data <-chan time.Time
	if t.cfg.PingPeriod > 0 {
		ticker := time.NewTicker(t.cfg.PingPeriod)
		defer ticker.Stop()
		ping = ticker.C
	}
	if t.cfg.DataPeriod > 0 {
		ticker := time.NewTicker(t.cfg.DataPeriod)
		defer ticker.Stop()
		data = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping:
			t.Deliver(FrameICMP)
		case <-data:
			t.Deliver(FrameTCP)
		}
	}
}
