// Package sim provides host-side stand-ins for the Wi-Fi station, the
// network stack and the traffic reaching the radio. It lets the demo run
// and be tested without hardware.
package sim

import (
	"errors"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soypat/icmpdiscard/wlan"
)

var errNoSuchNetwork = errors.New("sim: no such network")

// StationConfig scripts the behaviour of a simulated Station.
type StationConfig struct {
	// Networks maps SSID to password of the reachable access points.
	// A nil map accepts any credentials.
	Networks map[string]string
	// ConnectErr, if set, is returned by every Connect call.
	ConnectErr error
	// InitialStatus is reported before the first Connect.
	InitialStatus wlan.ConnStatus
	ConnectDelay  time.Duration
	MAC           net.HardwareAddr
	IP            netip.Addr
	Netmask       netip.Addr
	Gateway       netip.Addr
	// RSSI in dBm. Zero reports wlan.ErrNotSupported.
	RSSI int
}

// DefaultStationConfig returns a station that joins any network and
// leases a private address.
func DefaultStationConfig() StationConfig {
	return StationConfig{
		MAC:     net.HardwareAddr{0x28, 0xcd, 0xc1, 0x00, 0x00, 0x01},
		IP:      netip.AddrFrom4([4]byte{192, 168, 1, 42}),
		Netmask: wlan.PrefixMask(24),
		Gateway: netip.AddrFrom4([4]byte{192, 168, 1, 1}),
		RSSI:    -54,
	}
}

// Station is a simulated wlan.Station.
type Station struct {
	mu       sync.Mutex
	cfg      StationConfig
	status   wlan.ConnStatus
	connects int
	last     wlan.Credentials
}

var _ wlan.Station = (*Station)(nil)

func NewStation(cfg StationConfig) *Station {
	return &Station{cfg: cfg, status: cfg.InitialStatus}
}

func (s *Station) Connect(creds wlan.Credentials) error {
	s.mu.Lock()
	s.connects++
	s.last = creds
	s.status = wlan.StatusConnecting
	delay := s.cfg.ConnectDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.cfg.ConnectErr
	if err == nil && s.cfg.Networks != nil {
		pass, ok := s.cfg.Networks[creds.SSID]
		if !ok {
			err = errNoSuchNetwork
		} else if pass != creds.Password {
			err = errors.New("sim: authentication failed")
		}
	}
	if err != nil {
		s.status = wlan.StatusDisconnected
		return err
	}
	s.status = wlan.StatusGlobalUp
	return nil
}

func (s *Station) ConnectionStatus() wlan.ConnStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Connects returns the number of Connect calls and the last credentials used.
func (s *Station) Connects() (int, wlan.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects, s.last
}

func (s *Station) HardwareAddr() (net.HardwareAddr, error) {
	return s.cfg.MAC, nil
}

func (s *Station) IPAddr() (netip.Addr, error) {
	if !s.ConnectionStatus().IsUp() {
		return netip.Addr{}, wlan.ErrNotConnected
	}
	return s.cfg.IP, nil
}

func (s *Station) Netmask() (netip.Addr, error) {
	if !s.ConnectionStatus().IsUp() {
		return netip.Addr{}, wlan.ErrNotConnected
	}
	return s.cfg.Netmask, nil
}

func (s *Station) Gateway() (netip.Addr, error) {
	if !s.ConnectionStatus().IsUp() {
		return netip.Addr{}, wlan.ErrNotConnected
	}
	return s.cfg.Gateway, nil
}

func (s *Station) RSSI() (int, error) {
	if !s.ConnectionStatus().IsUp() {
		return 0, wlan.ErrNotConnected
	} else if s.cfg.RSSI == 0 {
		return 0, wlan.ErrNotSupported
	}
	return s.cfg.RSSI, nil
}

// Stack counts suspensions of a simulated network stack.
type Stack struct {
	suspended atomic.Bool
	suspends  atomic.Uint64
	resumes   atomic.Uint64
}

func (s *Stack) Suspend() error {
	if s.suspended.Swap(true) {
		return errors.New("sim: stack already suspended")
	}
	s.suspends.Add(1)
	return nil
}

func (s *Stack) Resume() error {
	if !s.suspended.Swap(false) {
		return errors.New("sim: stack not suspended")
	}
	s.resumes.Add(1)
	return nil
}

func (s *Stack) Suspended() bool { return s.suspended.Load() }

// Counts returns the number of Suspend and Resume calls that succeeded.
func (s *Stack) Counts() (suspends, resumes uint64) {
	return s.suspends.Load(), s.resumes.Load()
}
