//go:build rp2040 || rp2350

// Package picow implements the Wi-Fi station on the Raspberry Pi Pico W
// using the CYW43439 driver and the seqs network stack.
package picow

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/seqs/eth/dhcp"
	"github.com/soypat/seqs/stacks"

	"github.com/soypat/icmpdiscard/netact"
	"github.com/soypat/icmpdiscard/wlan"
)

const mtu = cyw43439.MTU

var (
	errStaticNotRequested = errors.New("picow: DHCP did not complete and no static IP was requested")
	errAlreadyJoined      = errors.New("picow: already joined")
)

type Config struct {
	// DHCP requested hostname.
	Hostname string
	// DHCP requested IP address. On failing to find DHCP server is used as static IP.
	RequestedIP string
	// DHCPTimeout defaults to 8 seconds.
	DHCPTimeout time.Duration
	Logger      *slog.Logger
	// Number of UDP ports to open for the stack. One more is opened for DHCP.
	UDPPorts uint16
	// Number of TCP ports to open for the stack.
	TCPPorts uint16
}

// Station is a wlan.Station backed by the Pico W radio. Frames crossing the
// NIC are reported to the activity handler returned by Handler.
type Station struct {
	cfg      Config
	logger   *slog.Logger
	dev      *cyw43439.Device
	stack    *stacks.PortStack
	dhcpc    *stacks.DHCPClient
	nic      nic
	stopNIC  chan struct{}
	activity *netact.Handler
	status   atomic.Uint32
	inited   bool
	addr     netip.Addr
	gateway  netip.Addr
	cidrBits uint8
}

var _ wlan.Station = (*Station)(nil)

func New(cfg Config) *Station {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(127), // Make temporary logger that does no logging.
		}))
	}
	if cfg.DHCPTimeout <= 0 {
		cfg.DHCPTimeout = 8 * time.Second
	}
	s := &Station{
		cfg:    cfg,
		logger: logger,
		dev:    cyw43439.NewPicoWDevice(),
	}
	s.nic.logger = logger
	s.activity = netact.NewHandler(&s.nic, netact.Config{Logger: logger})
	return s
}

// Handler returns the network activity handler that suspends this
// station's stack.
func (s *Station) Handler() *netact.Handler { return s.activity }

// Connect initializes the radio, joins the network and leases an address.
// The link is GLOBAL UP after a DHCP lease and LOCAL UP when falling back
// to the requested static address. If no address is obtained the NIC loop
// is stopped and the stack discarded so Connect may be called again.
func (s *Station) Connect(creds wlan.Credentials) (err error) {
	if s.stack != nil {
		return errAlreadyJoined
	}
	pass := creds.Password
	switch creds.Security {
	case wlan.SecurityNone:
		pass = ""
	case wlan.SecurityWPA2, wlan.SecurityWPAWPA2:
	default:
		return errors.Join(wlan.ErrNotSupported, errors.New("picow: security mode "+creds.Security.String()))
	}
	var reqAddr netip.Addr
	if s.cfg.RequestedIP != "" {
		reqAddr, err = netip.ParseAddr(s.cfg.RequestedIP)
		if err != nil {
			return err
		}
	}
	s.setStatus(wlan.StatusConnecting)
	defer func() {
		if err != nil {
			s.setStatus(wlan.StatusDisconnected)
		}
	}()

	if !s.inited {
		wificfg := cyw43439.DefaultWifiConfig()
		wificfg.Logger = s.logger
		s.logger.Info("initializing pico W device...")
		devInitTime := time.Now()
		err = s.dev.Init(wificfg)
		if err != nil {
			return errors.New("wifi init failed:" + err.Error())
		}
		s.inited = true
		s.logger.Info("cyw43439:Init", slog.Duration("duration", time.Since(devInitTime)))
	}

	if len(pass) == 0 {
		s.logger.Info("joining open network:", slog.String("ssid", creds.SSID))
	} else {
		s.logger.Info("joining WPA secure network", slog.String("ssid", creds.SSID), slog.Int("passlen", len(pass)))
	}
	err = s.dev.JoinWPA2(creds.SSID, pass)
	if err != nil {
		return err
	}
	mac, err := s.dev.HardwareAddr6()
	if err != nil {
		return err
	}

	s.stack = stacks.NewPortStack(stacks.PortStackConfig{
		MAC:             mac,
		MaxOpenPortsUDP: int(s.cfg.UDPPorts) + 1, // Extra UDP port for DHCP client.
		MaxOpenPortsTCP: int(s.cfg.TCPPorts),
		MTU:             mtu,
		Logger:          s.logger,
	})
	stack := s.stack
	s.dev.RecvEthHandle(func(pkt []byte) error {
		s.activity.Mark()
		return stack.RecvEth(pkt)
	})

	// Begin asynchronous packet handling.
	s.stopNIC = make(chan struct{})
	go s.nic.loop(s.dev, stack, s.activity, s.stopNIC)

	err = s.doDHCP(reqAddr)
	if err != nil {
		s.teardown()
	}
	return err
}

// teardown stops the NIC loop and drops the stack after a failed join.
func (s *Station) teardown() {
	if s.stopNIC != nil {
		close(s.stopNIC)
		s.stopNIC = nil
	}
	s.stack = nil
	s.dhcpc = nil
	s.addr = netip.Addr{}
	s.gateway = netip.Addr{}
	s.cidrBits = 0
}

func (s *Station) doDHCP(reqAddr netip.Addr) error {
	s.dhcpc = stacks.NewDHCPClient(s.stack, dhcp.DefaultClientPort)
	err := s.dhcpc.BeginRequest(stacks.DHCPRequestConfig{
		RequestedAddr: reqAddr,
		Xid:           uint32(time.Now().Nanosecond()),
		Hostname:      s.cfg.Hostname,
	})
	if err != nil {
		return errors.New("dhcp begin request:" + err.Error())
	}
	const pollPeriod = time.Second / 2
	deadline := time.Now().Add(s.cfg.DHCPTimeout)
	for s.dhcpc.State() != dhcp.StateBound {
		if time.Since(deadline) > 0 {
			if !reqAddr.IsValid() {
				return errStaticNotRequested
			}
			s.logger.Info("DHCP did not complete, assigning static IP", slog.String("ip", reqAddr.String()))
			s.stack.SetAddr(reqAddr)
			s.addr = reqAddr
			s.cidrBits = 24
			s.setStatus(wlan.StatusLocalUp)
			return nil
		}
		s.logger.Info("DHCP ongoing...")
		time.Sleep(pollPeriod)
	}
	ip := s.dhcpc.Offer()
	s.addr = ip
	s.cidrBits = uint8(s.dhcpc.CIDRBits())
	s.gateway = s.dhcpc.Gateway()
	if !s.gateway.IsValid() || s.gateway.IsUnspecified() {
		s.gateway = s.dhcpc.Router()
	}
	s.logger.Info("DHCP complete",
		slog.Uint64("cidrbits", uint64(s.cidrBits)),
		slog.String("ourIP", ip.String()),
		slog.String("gateway", s.dhcpc.Gateway().String()),
		slog.String("router", s.dhcpc.Router().String()),
		slog.String("dhcp", s.dhcpc.DHCPServer().String()),
		slog.Duration("lease", s.dhcpc.IPLeaseTime()),
	)
	s.stack.SetAddr(ip) // It's important to set the IP address after DHCP completes.
	s.setStatus(wlan.StatusGlobalUp)
	return nil
}

func (s *Station) setStatus(status wlan.ConnStatus) {
	s.status.Store(uint32(status))
}

func (s *Station) ConnectionStatus() wlan.ConnStatus {
	return wlan.ConnStatus(s.status.Load())
}

func (s *Station) HardwareAddr() (net.HardwareAddr, error) {
	mac, err := s.dev.HardwareAddr6()
	if err != nil {
		return nil, err
	}
	return net.HardwareAddr(mac[:]), nil
}

func (s *Station) IPAddr() (netip.Addr, error) {
	if !s.ConnectionStatus().IsUp() {
		return netip.Addr{}, wlan.ErrNotConnected
	}
	return s.addr, nil
}

func (s *Station) Netmask() (netip.Addr, error) {
	if !s.ConnectionStatus().IsUp() {
		return netip.Addr{}, wlan.ErrNotConnected
	}
	return wlan.PrefixMask(int(s.cidrBits)), nil
}

func (s *Station) Gateway() (netip.Addr, error) {
	if !s.ConnectionStatus().IsUp() {
		return netip.Addr{}, wlan.ErrNotConnected
	} else if !s.gateway.IsValid() {
		return netip.Addr{}, errors.New("picow: no gateway")
	}
	return s.gateway, nil
}

// RSSI is not exposed by the CYW43439 driver.
func (s *Station) RSSI() (int, error) {
	return 0, wlan.ErrNotSupported
}
