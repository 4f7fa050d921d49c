package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/LeoCommon/egrim/internal/config"
	"github.com/LeoCommon/egrim/pkg/log"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// Sample config export, every key is written with its default value
func main() {
	out := flag.String("out", "./config/"+config.ConfigFile, "where to write the sample config")
	flag.Parse()

	log.Init(false)
	defer log.Sync()

	cf := config.Default()
	cf.Client.Name = "sample"
	cf.Destination.Serial.Path = "/dev/ttyUSB0"

	defaultConfigBytes, err := toml.Marshal(cf)
	if err != nil {
		log.Fatal("failed to marshal the default config", zap.Error(err))
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatal("failed to create the config directory", zap.Error(err))
	}

	if err := os.WriteFile(*out, defaultConfigBytes, 0644); err != nil {
		log.Fatal("failed to write config file", zap.Error(err))
	}

	log.Info("sample config written", zap.String("path", *out))
}
