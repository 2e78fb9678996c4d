// Package wlan defines the wireless station interface consumed by the
// low-power demo along with the value types that travel through it.
package wlan

import (
	"errors"
	"net"
	"net/netip"
	"strings"
)

const (
	// MaxSSIDLen is the largest SSID accepted by 802.11.
	MaxSSIDLen = 32
	// MaxPassphraseLen is the largest WPA passphrase the radio accepts.
	MaxPassphraseLen = 64
)

var (
	ErrInvalidArgument = errors.New("wlan: invalid argument")
	ErrNotSupported    = errors.New("wlan: not supported")
	ErrNotConnected    = errors.New("wlan: not connected")
)

// Station is a wireless interface acting as a client of an access point.
// Connect blocks until the link is up or the implementation gives up.
type Station interface {
	Connect(creds Credentials) error
	ConnectionStatus() ConnStatus
	HardwareAddr() (net.HardwareAddr, error)
	IPAddr() (netip.Addr, error)
	Netmask() (netip.Addr, error)
	Gateway() (netip.Addr, error)
	// RSSI returns the received signal strength of the current link in dBm.
	RSSI() (int, error)
}

// Credentials identify and authenticate against an access point.
type Credentials struct {
	SSID     string
	Password string
	Security Security
}

// Validate checks the credentials can be handed to a radio. It does no I/O.
func (c Credentials) Validate() error {
	switch {
	case c.SSID == "":
		return errors.Join(ErrInvalidArgument, errors.New("empty ssid"))
	case c.Password == "":
		return errors.Join(ErrInvalidArgument, errors.New("empty password"))
	case len(c.SSID) > MaxSSIDLen:
		return errors.Join(ErrInvalidArgument, errors.New("ssid too long"))
	case len(c.Password) > MaxPassphraseLen:
		return errors.Join(ErrInvalidArgument, errors.New("passphrase too long"))
	case !c.Security.IsValid():
		return errors.Join(ErrInvalidArgument, errors.New("unknown security mode"))
	}
	return nil
}

// Security is the authentication scheme used to join a network.
type Security uint8

const (
	SecurityNone Security = iota
	SecurityWEP
	SecurityWPA
	SecurityWPA2
	SecurityWPAWPA2
	SecurityWPA3
	SecurityWPA3WPA2
	SecurityUnknown
)

// IsValid reports whether s names a known security mode.
func (s Security) IsValid() bool {
	return s < SecurityUnknown
}

func (s Security) String() string {
	switch s {
	case SecurityNone:
		return "NONE"
	case SecurityWEP:
		return "WEP"
	case SecurityWPA:
		return "WPA"
	case SecurityWPA2:
		return "WPA2"
	case SecurityWPAWPA2:
		return "WPA_WPA2"
	case SecurityWPA3:
		return "WPA3"
	case SecurityWPA3WPA2:
		return "WPA3_WPA2"
	default:
		return "UNKNOWN"
	}
}

// ParseSecurity parses a security mode name. Case is ignored and an
// NSAPI_SECURITY_ prefix is accepted so configuration values written for
// mbed style projects work unchanged.
func ParseSecurity(s string) (Security, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "NSAPI_SECURITY_")
	name = strings.ReplaceAll(name, "-", "_")
	for sec := SecurityNone; sec < SecurityUnknown; sec++ {
		if sec.String() == name {
			return sec, nil
		}
	}
	if name == "OPEN" {
		return SecurityNone, nil
	}
	return SecurityUnknown, errors.Join(ErrInvalidArgument, errors.New("unknown security mode "+s))
}

// ConnStatus is the link state reported by a Station.
type ConnStatus uint8

const (
	StatusDisconnected ConnStatus = iota
	StatusConnecting
	// StatusLocalUp means the link is up with a locally assigned address.
	StatusLocalUp
	// StatusGlobalUp means the link is up with an address leased from the network.
	StatusGlobalUp
	StatusUnsupported
)

// IsUp reports whether the station has an established connection.
func (cs ConnStatus) IsUp() bool {
	return cs == StatusLocalUp || cs == StatusGlobalUp
}

func (cs ConnStatus) String() string {
	switch cs {
	case StatusDisconnected:
		return "DISCONNECTED"
	case StatusConnecting:
		return "CONNECTING"
	case StatusLocalUp:
		return "LOCAL UP"
	case StatusGlobalUp:
		return "GLOBAL UP"
	default:
		return "UNSUPPORTED"
	}
}

// PrefixMask returns the IPv4 netmask with the first bits set,
// i.e. PrefixMask(24) is 255.255.255.0. bits is clamped to [0, 32].
func PrefixMask(bits int) netip.Addr {
	bits = max(0, min(bits, 32))
	var mask uint32
	if bits > 0 {
		mask = ^uint32(0) << (32 - bits)
	}
	return netip.AddrFrom4([4]byte{byte(mask >> 24), byte(mask >> 16), byte(mask >> 8), byte(mask)})
}
