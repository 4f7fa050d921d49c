package config

import "time"

const (
	DefaultQueueLength   = 100
	DefaultPeriod        = 83 * time.Millisecond
	DefaultRotationStart = 0.0
	DefaultRotationRate  = 60.0
	DefaultStatsInterval = 10 * time.Second
)

type GeneratorConfig struct {
	QueueLength   int          `toml:"queue_length"`
	Period        TOMLDuration `toml:"period"`
	RotationStart float64      `toml:"rotation_start"`
	RotationRate  float64      `toml:"rotation_rate"`
	// Zero disables the periodic statistics log
	StatsInterval TOMLDuration `toml:"stats_interval"`
}

type GeneratorConfigManager struct {
	BaseConfigManager[GeneratorConfig]
}

// Verify only rejects values nothing can run with, the control surface checks the operator ranges
func (a *GeneratorConfigManager) Verify() error {
	a.rlock()
	defer a.runlock()

	if a.conf.QueueLength < 1 {
		return &InvalidValueError{Section: "generator", Key: "queue_length", Reason: "must be at least 1"}
	}
	if a.conf.Period.Value() < 0 {
		return &InvalidValueError{Section: "generator", Key: "period", Reason: "must not be negative"}
	}
	if a.conf.StatsInterval.Value() < 0 {
		return &InvalidValueError{Section: "generator", Key: "stats_interval", Reason: "must not be negative"}
	}

	return nil
}

func NewGeneratorConfigManager(config *GeneratorConfig, mgr *Manager) *GeneratorConfigManager {
	j := GeneratorConfigManager{}
	j.conf = config
	j.mgr = mgr

	return &j
}
