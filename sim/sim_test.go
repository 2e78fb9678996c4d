package sim

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/soypat/icmpdiscard/netact"
	"github.com/soypat/icmpdiscard/wlan"
)

func TestStationConnect(t *testing.T) {
	c := qt.New(t)
	cfg := DefaultStationConfig()
	cfg.Networks = map[string]string{"HomeAP": "secret123"}
	sta := NewStation(cfg)

	_, err := sta.IPAddr()
	c.Assert(errors.Is(err, wlan.ErrNotConnected), qt.IsTrue)

	err = sta.Connect(wlan.Credentials{SSID: "HomeAP", Password: "wrong", Security: wlan.SecurityWPA2})
	c.Assert(err, qt.Not(qt.IsNil))
	c.Assert(sta.ConnectionStatus(), qt.Equals, wlan.StatusDisconnected)

	err = sta.Connect(wlan.Credentials{SSID: "OtherAP", Password: "secret123"})
	c.Assert(err, qt.Equals, errNoSuchNetwork)

	creds := wlan.Credentials{SSID: "HomeAP", Password: "secret123", Security: wlan.SecurityWPA2}
	c.Assert(sta.Connect(creds), qt.IsNil)
	c.Assert(sta.ConnectionStatus(), qt.Equals, wlan.StatusGlobalUp)
	n, last := sta.Connects()
	c.Assert(n, qt.Equals, 3)
	c.Assert(last, qt.Equals, creds)

	ip, err := sta.IPAddr()
	c.Assert(err, qt.IsNil)
	c.Assert(ip.String(), qt.Equals, "192.168.1.42")
	mask, _ := sta.Netmask()
	c.Assert(mask.String(), qt.Equals, "255.255.255.0")
	rssi, err := sta.RSSI()
	c.Assert(err, qt.IsNil)
	c.Assert(rssi, qt.Equals, -54)
}

func TestStationScriptedFailure(t *testing.T) {
	c := qt.New(t)
	cfg := DefaultStationConfig()
	cfg.ConnectErr = errors.New("radio off")
	sta := NewStation(cfg)
	c.Assert(sta.Connect(wlan.Credentials{SSID: "a", Password: "b"}), qt.Equals, cfg.ConnectErr)
	c.Assert(sta.ConnectionStatus().IsUp(), qt.IsFalse)
}

func TestStackDoubleSuspend(t *testing.T) {
	c := qt.New(t)
	var s Stack
	c.Assert(s.Resume(), qt.Not(qt.IsNil))
	c.Assert(s.Suspend(), qt.IsNil)
	c.Assert(s.Suspend(), qt.Not(qt.IsNil))
	c.Assert(s.Suspended(), qt.IsTrue)
	c.Assert(s.Resume(), qt.IsNil)
	suspends, resumes := s.Counts()
	c.Assert(suspends, qt.Equals, uint64(1))
	c.Assert(resumes, qt.Equals, uint64(1))
}

type countMarker struct{ n atomic.Uint64 }

func (m *countMarker) Mark() { m.n.Add(1) }

func TestTrafficDiscardICMP(t *testing.T) {
	c := qt.New(t)
	var host countMarker
	tr := NewTraffic(&host, TrafficConfig{DiscardICMP: true})
	tr.Deliver(FrameICMP)
	tr.Deliver(FrameICMP)
	tr.Deliver(FrameTCP)
	delivered, discarded := tr.Counts()
	c.Assert(delivered, qt.Equals, uint64(1))
	c.Assert(discarded, qt.Equals, uint64(2))
	c.Assert(host.n.Load(), qt.Equals, uint64(1))

	tr = NewTraffic(&host, TrafficConfig{})
	tr.Deliver(FrameICMP)
	c.Assert(host.n.Load(), qt.Equals, uint64(2))
	c.Assert(FrameICMP.String(), qt.Equals, "icmp")
	c.Assert(FrameTCP.String(), qt.Equals, "tcp")
}

// Pings discarded by the radio must not keep the host awake.
func TestDiscardedPingsLetStackSuspend(t *testing.T) {
	c := qt.New(t)
	var stack Stack
	h := netact.NewHandler(&stack, netact.Config{})
	tr := NewTraffic(h, TrafficConfig{PingPeriod: time.Millisecond, DiscardICMP: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	res, err := h.WaitNetSuspend(ctx, 80*time.Millisecond, 20*time.Millisecond, 10*time.Millisecond)
	c.Assert(err, qt.IsNil)
	c.Assert(res, qt.Equals, netact.ResultSuspended)
	suspends, resumes := stack.Counts()
	c.Assert(suspends, qt.Equals, uint64(1))
	c.Assert(resumes, qt.Equals, uint64(1))
	_, discarded := tr.Counts()
	c.Assert(discarded > 0, qt.IsTrue)
}

func TestDeliveredPingsKeepHostAwake(t *testing.T) {
	c := qt.New(t)
	var stack Stack
	h := netact.NewHandler(&stack, netact.Config{PollPeriod: time.Millisecond})
	tr := NewTraffic(h, TrafficConfig{PingPeriod: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	res, err := h.WaitNetSuspend(ctx, 60*time.Millisecond, 20*time.Millisecond, 15*time.Millisecond)
	c.Assert(err, qt.IsNil)
	c.Assert(res, qt.Equals, netact.ResultTimeout)
	suspends, _ := stack.Counts()
	c.Assert(suspends, qt.Equals, uint64(0))
}
