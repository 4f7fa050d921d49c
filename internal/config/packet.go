package config

import "github.com/LeoCommon/egrim/pkg/packet"

// PacketConfig holds the static fields copied into every generated packet
type PacketConfig struct {
	SystemID          uint16 `toml:"system_id"`
	ModeSetting       uint16 `toml:"mode_setting"`
	Transmitter       uint8  `toml:"transmitter"`
	AntennaPhasing    uint8  `toml:"antenna_phasing"`
	IntegrationFilter uint8  `toml:"integration_filter"`
	RangeScale        uint8  `toml:"range_scale"`
	ChannelSelect     uint8  `toml:"channel_select"`
	AntennaMode       uint8  `toml:"antenna_mode"`
	ModeSwitch        uint8  `toml:"mode_switch"`
	PRISelect         uint8  `toml:"pri_select"`
	ModeMSelect       uint8  `toml:"mode_m_select"`
	AFC               uint8  `toml:"afc"`
	AGC               uint8  `toml:"agc"`
	MGCVoltage        uint8  `toml:"mgc_voltage"`
	AdjRangeScale     uint8  `toml:"adj_range_scale"`
}

func (c PacketConfig) Template() packet.StatusPacket {
	p := packet.New()
	p.SystemID = c.SystemID
	p.ModeSetting = c.ModeSetting
	p.Transmitter = c.Transmitter
	p.AntennaPhasing = c.AntennaPhasing
	p.IntegrationFilter = c.IntegrationFilter
	p.RangeScale = c.RangeScale
	p.ChannelSelect = c.ChannelSelect
	p.AntennaMode = c.AntennaMode
	p.ModeSwitch = c.ModeSwitch
	p.PRISelect = c.PRISelect
	p.ModeMSelect = c.ModeMSelect
	p.AFC = c.AFC
	p.AGC = c.AGC
	p.MGCVoltage = c.MGCVoltage
	p.AdjRangeScale = c.AdjRangeScale
	return p
}

type PacketConfigManager struct {
	BaseConfigManager[PacketConfig]
}

// Verify accepts everything, oversized values are masked to their field width on encode
func (a *PacketConfigManager) Verify() error {
	return nil
}

func NewPacketConfigManager(config *PacketConfig, mgr *Manager) *PacketConfigManager {
	j := PacketConfigManager{}
	j.conf = config
	j.mgr = mgr

	return &j
}
