// Package config loads and saves the TOML configuration of the simulator.
package config

import (
	"flag"
	"os"
	"sync"
	"time"

	"github.com/LeoCommon/egrim/pkg/log"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

const (
	ProductName  = "egrim"
	ConfigFolder = "/etc/" + ProductName + "/"
	ConfigFile   = "config.toml"

	DefaultConfigPath = ConfigFolder + ConfigFile

	DefaultDebugModeValue = false
)

type CLIFlags struct {
	ConfigPath string
	Debug      bool
}

type MainConfig struct {
	Client      ClientConfig      `toml:"client"`
	Generator   GeneratorConfig   `toml:"generator"`
	Destination DestinationConfig `toml:"destination"`
	Packet      PacketConfig      `toml:"packet"`
}

type ConfigManager interface {
	lock()
	unlock()
	rlock()
	runlock()
	Verify() error
}

type ConfigManagerKey string

const (
	CMClient      ConfigManagerKey = "client"
	CMGenerator   ConfigManagerKey = "generator"
	CMDestination ConfigManagerKey = "destination"
	CMPacket      ConfigManagerKey = "packet"
)

type ConfigManagerStore map[ConfigManagerKey]ConfigManager

type Manager struct {
	mu sync.RWMutex

	// The actual config, never share this with other code
	config *MainConfig

	// The config manager store (pointers)
	store ConfigManagerStore

	// The config path
	path string
}

func (m *Manager) Client() *ClientConfigManager {
	return section[*ClientConfigManager](m, CMClient)
}

func (m *Manager) Generator() *GeneratorConfigManager {
	return section[*GeneratorConfigManager](m, CMGenerator)
}

func (m *Manager) Destination() *DestinationConfigManager {
	return section[*DestinationConfigManager](m, CMDestination)
}

func (m *Manager) Packet() *PacketConfigManager {
	return section[*PacketConfigManager](m, CMPacket)
}

func section[T ConfigManager](m *Manager, key ConfigManagerKey) T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[key].(T)
	if !ok {
		log.Panic("implementation mistake, config section not found", zap.String("section", string(key)))
	}
	return cm
}

// Load reads path over the defaults. A missing or broken file is only
// accepted when acceptEmptyConfig is set, the defaults are used then.
func (m *Manager) Load(path string, acceptEmptyConfig bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(path)
	if err == nil {
		if err = toml.Unmarshal(data, m.config); err != nil {
			log.Error("failed to unmarshal config file", zap.Error(err))
		}
	}

	if err != nil && !acceptEmptyConfig {
		return err
	}

	// Store the load path
	m.path = path

	// Verify all configs contain the mandatory values
	for _, value := range m.store {
		if err := value.Verify(); err != nil {
			return err
		}
	}

	// Debug log output
	log.Debug("active config", zap.Any("config", m.config), zap.String("path", m.path))

	return nil
}

// Save locks all configs and writes it to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Lock all config managers
	for _, value := range m.store {
		value.rlock()
	}

	// Unlock the config managers when we are done
	defer func() {
		for _, value := range m.store {
			value.runlock()
		}
	}()

	configData, err := toml.Marshal(m.config)
	if err != nil {
		return err
	}

	if err := os.WriteFile(m.path, configData, 0644); err != nil {
		log.Error("failed to write config file", zap.Error(err))
		return err
	}

	return nil
}

// Path returns the file the config was loaded from
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Snapshot returns a copy of the whole configuration
func (m *Manager) Snapshot() MainConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, value := range m.store {
		value.rlock()
	}
	defer func() {
		for _, value := range m.store {
			value.runlock()
		}
	}()

	return *m.config
}

func NewManager() *Manager {
	m := &Manager{
		config: Default(),
	}

	// Each config section manager gets his own locking primitive
	m.store = ConfigManagerStore{
		CMClient:      NewClientConfigManager(&m.config.Client, m),
		CMGenerator:   NewGeneratorConfigManager(&m.config.Generator, m),
		CMDestination: NewDestinationConfigManager(&m.config.Destination, m),
		CMPacket:      NewPacketConfigManager(&m.config.Packet, m),
	}

	return m
}

// ParseCLIFlags parses the process arguments into fs
func ParseCLIFlags(fs *flag.FlagSet, args []string) (CLIFlags, error) {
	flags := CLIFlags{}

	fs.StringVar(&flags.ConfigPath, "config", DefaultConfigPath, "relative or absolute path to the config file")
	fs.BoolVar(&flags.Debug, "debug", DefaultDebugModeValue, "true if the debug logging should be enabled")

	err := fs.Parse(args)
	return flags, err
}

type TOMLDuration time.Duration

func (d *TOMLDuration) UnmarshalText(b []byte) error {
	x, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = TOMLDuration(x)
	return nil
}

func (c TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(c).String()), nil
}

func (c TOMLDuration) Value() time.Duration {
	return time.Duration(c)
}
