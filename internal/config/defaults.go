package config

import "github.com/LeoCommon/egrim/internal/transport"

// Default returns the configuration used when no file is present
func Default() *MainConfig {
	return &MainConfig{
		Generator: GeneratorConfig{
			QueueLength:   DefaultQueueLength,
			Period:        TOMLDuration(DefaultPeriod),
			RotationStart: DefaultRotationStart,
			RotationRate:  DefaultRotationRate,
			StatsInterval: TOMLDuration(DefaultStatsInterval),
		},
		Destination: DestinationConfig{
			Transport: TransportUDP,
			Address:   DefaultAddress,
			Port:      DefaultPort,
			Serial: SerialConfig{
				BaudRate: transport.DefaultBaudRate,
			},
		},
	}
}
