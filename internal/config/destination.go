package config

import (
	"net"

	"github.com/LeoCommon/egrim/internal/transport"
)

type TransportKind string

const (
	TransportUDP    TransportKind = "udp"
	TransportSerial TransportKind = "serial"
)

const (
	DefaultAddress = "224.0.0.0"
	DefaultPort    = 1024
)

type SerialConfig struct {
	Path     string `toml:"path,omitempty"`
	BaudRate int    `toml:"baud_rate"`
	DataBits int    `toml:"data_bits,omitempty"`
	StopBits int    `toml:"stop_bits,omitempty"`
	Parity   string `toml:"parity,omitempty"`
}

func (s SerialConfig) Options() transport.SerialOptions {
	return transport.SerialOptions{
		Path:     s.Path,
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		StopBits: s.StopBits,
		Parity:   s.Parity,
	}
}

type DestinationConfig struct {
	Transport TransportKind `toml:"transport"`
	Address   string        `toml:"address"`
	Port      uint16        `toml:"port"`
	Serial    SerialConfig  `toml:"serial"`
}

// Dialer returns the dialer matching the configured transport
func (d DestinationConfig) Dialer() transport.Dialer {
	if d.Transport == TransportSerial {
		return transport.Serial(d.Serial.Options())
	}
	return transport.UDP
}

type DestinationConfigManager struct {
	BaseConfigManager[DestinationConfig]
}

func (a *DestinationConfigManager) Verify() error {
	a.rlock()
	defer a.runlock()

	switch a.conf.Transport {
	case TransportUDP:
		ip := net.ParseIP(a.conf.Address)
		if ip == nil || ip.To4() == nil {
			return &InvalidValueError{Section: "destination", Key: "address", Reason: "not an IPv4 address"}
		}
	case TransportSerial:
		if _, err := a.conf.Serial.Options().Normalize(); err != nil {
			return &InvalidValueError{Section: "destination.serial", Key: "path", Reason: err.Error()}
		}
	default:
		return &InvalidValueError{Section: "destination", Key: "transport", Reason: "must be udp or serial"}
	}

	return nil
}

func NewDestinationConfigManager(config *DestinationConfig, mgr *Manager) *DestinationConfigManager {
	j := DestinationConfigManager{}
	j.conf = config
	j.mgr = mgr

	return &j
}
