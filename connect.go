package icmpdiscard

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/soypat/icmpdiscard/wlan"
)

// Connect joins the network described by creds exactly once. Arguments are
// validated before any I/O. With CheckStatus set an existing connection is
// reported instead of joining again. On success the link details are logged
// as one record: MAC, netmask, gateway, RSSI and IP address.
func (d *Driver) Connect(sta wlan.Station, creds wlan.Credentials) error {
	d.info("wifi:credentials", slog.String("ssid", creds.SSID), slog.String("security", creds.Security.String()))
	if sta == nil {
		d.logerr("wifi:connect bad args", slog.Bool("station", false))
		return fmt.Errorf("%w: nil station", ErrInvalidArgument)
	}
	if err := creds.Validate(); err != nil {
		d.logerr("wifi:connect bad args", slog.String("err", err.Error()))
		return errors.Join(ErrInvalidArgument, err)
	}

	if d.cfg.CheckStatus {
		if status := sta.ConnectionStatus(); status != wlan.StatusDisconnected {
			return d.reportStatus(sta, status)
		}
	}

	d.info("wifi:connecting", slog.String("ssid", creds.SSID))
	err := sta.Connect(creds)
	if err != nil {
		d.logerr("wifi:connect failed", slog.String("ssid", creds.SSID), slog.String("err", err.Error()))
		return errors.Join(ErrConnectionFailed, err)
	}

	mac, macErr := sta.HardwareAddr()
	netmask, maskErr := sta.Netmask()
	gateway, gwErr := sta.Gateway()
	rssi, rssiErr := sta.RSSI()
	ip, ipErr := sta.IPAddr()
	macAttr := slog.Any("mac", macErr)
	if macErr == nil {
		macAttr = slog.String("mac", mac.String())
	}
	rssiAttr := slog.Any("rssi", rssiErr)
	if rssiErr == nil {
		rssiAttr = slog.Int("rssi", rssi)
	}
	d.info("wifi:connected",
		macAttr,
		addrAttr("netmask", netmask, maskErr),
		addrAttr("gateway", gateway, gwErr),
		rssiAttr,
		addrAttr("ip", ip, ipErr),
	)
	return nil
}

// reportStatus handles a station that was not disconnected before joining.
func (d *Driver) reportStatus(sta wlan.Station, status wlan.ConnStatus) error {
	ip, ipErr := sta.IPAddr()
	switch status {
	case wlan.StatusLocalUp, wlan.StatusGlobalUp:
		d.info("wifi:connection already established", slog.String("status", status.String()), addrAttr("ip", ip, ipErr))
		return nil
	default:
		d.info("wifi:connect status", slog.String("status", status.String()), addrAttr("ip", ip, ipErr))
		return fmt.Errorf("%w: station status %s", ErrConnectionFailed, status)
	}
}

func addrAttr(key string, addr netip.Addr, err error) slog.Attr {
	if err != nil {
		return slog.Any(key, err)
	}
	return slog.String(key, addr.String())
}
