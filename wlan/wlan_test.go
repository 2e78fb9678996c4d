package wlan

import (
	"errors"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestCredentialsValidate(t *testing.T) {
	c := qt.New(t)
	good := Credentials{SSID: "HomeAP", Password: "secret123", Security: SecurityWPA2}
	c.Assert(good.Validate(), qt.IsNil)

	bad := []Credentials{
		{Password: "secret123", Security: SecurityWPA2},
		{SSID: "HomeAP", Security: SecurityWPA2},
		{},
		{SSID: strings.Repeat("s", MaxSSIDLen+1), Password: "secret123"},
		{SSID: "HomeAP", Password: strings.Repeat("p", MaxPassphraseLen+1)},
		{SSID: "HomeAP", Password: "secret123", Security: SecurityUnknown},
	}
	for _, creds := range bad {
		err := creds.Validate()
		c.Assert(errors.Is(err, ErrInvalidArgument), qt.IsTrue, qt.Commentf("creds=%+v err=%v", creds, err))
	}
}

func TestParseSecurity(t *testing.T) {
	c := qt.New(t)
	for input, want := range map[string]Security{
		"WPA2":                     SecurityWPA2,
		"wpa2":                     SecurityWPA2,
		" NSAPI_SECURITY_WPA_WPA2": SecurityWPAWPA2,
		"wpa3-wpa2":                SecurityWPA3WPA2,
		"none":                     SecurityNone,
		"open":                     SecurityNone,
		"WEP":                      SecurityWEP,
	} {
		got, err := ParseSecurity(input)
		c.Assert(err, qt.IsNil, qt.Commentf("input %q", input))
		c.Assert(got, qt.Equals, want, qt.Commentf("input %q", input))
	}
	_, err := ParseSecurity("WPA4")
	c.Assert(errors.Is(err, ErrInvalidArgument), qt.IsTrue)
}

func TestSecurityStringRoundTrip(t *testing.T) {
	for sec := SecurityNone; sec < SecurityUnknown; sec++ {
		got, err := ParseSecurity(sec.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != sec {
			t.Errorf("got %s, want %s", got, sec)
		}
	}
	if SecurityUnknown.IsValid() {
		t.Error("unknown security should not be valid")
	}
}

func TestConnStatusIsUp(t *testing.T) {
	up := map[ConnStatus]bool{
		StatusDisconnected: false,
		StatusConnecting:   false,
		StatusLocalUp:      true,
		StatusGlobalUp:     true,
		StatusUnsupported:  false,
	}
	for status, want := range up {
		if status.IsUp() != want {
			t.Errorf("%s.IsUp()=%v, want %v", status, !want, want)
		}
	}
}

func TestPrefixMask(t *testing.T) {
	c := qt.New(t)
	c.Assert(PrefixMask(24).String(), qt.Equals, "255.255.255.0")
	c.Assert(PrefixMask(20).String(), qt.Equals, "255.255.240.0")
	c.Assert(PrefixMask(32).String(), qt.Equals, "255.255.255.255")
	c.Assert(PrefixMask(0).String(), qt.Equals, "0.0.0.0")
	c.Assert(PrefixMask(40).String(), qt.Equals, "255.255.255.255")
	c.Assert(PrefixMask(-1).String(), qt.Equals, "0.0.0.0")
}
