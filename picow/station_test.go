//go:build rp2040 || rp2350

package picow

import (
	"errors"
	"testing"

	"github.com/soypat/seqs/stacks"

	"github.com/soypat/icmpdiscard/wlan"
)

func TestTeardownAllowsReconnect(t *testing.T) {
	s := New(Config{})
	stop := make(chan struct{})
	s.stack = &stacks.PortStack{}
	s.stopNIC = stop

	wpa3 := wlan.Credentials{SSID: "HomeAP", Password: "secret123", Security: wlan.SecurityWPA3}
	if err := s.Connect(wpa3); err != errAlreadyJoined {
		t.Fatalf("got %v, want errAlreadyJoined", err)
	}
	s.teardown()
	select {
	case <-stop:
	default:
		t.Fatal("NIC loop not stopped")
	}
	if s.stack != nil || s.stopNIC != nil {
		t.Fatal("stack kept after teardown")
	}
	if err := s.Connect(wpa3); !errors.Is(err, wlan.ErrNotSupported) {
		t.Fatalf("got %v, want wlan.ErrNotSupported", err)
	}
	if s.ConnectionStatus() != wlan.StatusDisconnected {
		t.Error("status not disconnected", s.ConnectionStatus())
	}
}

func TestRSSINotSupported(t *testing.T) {
	_, err := New(Config{}).RSSI()
	if !errors.Is(err, wlan.ErrNotSupported) {
		t.Fatal(err)
	}
}
