// Package credentials holds the build-time Wi-Fi configuration of the demo.
//
// Write the network name to ssid.text, its password to password.text and
// the security mode (NONE, WEP, WPA, WPA2, WPA_WPA2, WPA3 or WPA3_WPA2) to
// security.text before flashing. The files are embedded into the binary.
// Keep your real password out of version control.
package credentials

import (
	_ "embed"
	"strings"

	"github.com/soypat/icmpdiscard/wlan"
)

var (
	//go:embed ssid.text
	ssid string
	//go:embed password.text
	pass string
	//go:embed security.text
	security string
)

// SSID returns the contents of ssid.text without surrounding whitespace.
func SSID() string {
	return strings.TrimSpace(ssid)
}

// Password returns the contents of password.text. Only the trailing line
// break is removed since passphrases may contain spaces.
func Password() string {
	return strings.TrimRight(pass, "\r\n")
}

// Credentials parses the embedded configuration. An empty SSID or password
// is returned as is and rejected later when connecting. If security.text
// cannot be parsed the error is returned along with the SSID and password
// and the security mode falls back to WPA2.
func Credentials() (wlan.Credentials, error) {
	return parse(SSID(), Password(), security)
}

func parse(ssid, pass, security string) (wlan.Credentials, error) {
	creds := wlan.Credentials{SSID: ssid, Password: pass, Security: wlan.SecurityWPA2}
	if strings.TrimSpace(security) == "" {
		return creds, nil
	}
	sec, err := wlan.ParseSecurity(security)
	if err != nil {
		return creds, err
	}
	creds.Security = sec
	return creds, nil
}
