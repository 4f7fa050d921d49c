package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/LeoCommon/egrim/internal/config"
	"github.com/LeoCommon/egrim/internal/control"
	"github.com/LeoCommon/egrim/internal/pipeline"
	"github.com/LeoCommon/egrim/internal/tui"
	"github.com/LeoCommon/egrim/pkg/log"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const logFile = "egrim-tui.log"

func main() {
	flags, err := config.ParseCLIFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	// the terminal belongs to the panel, log to a file instead
	log.InitToFile(flags.Debug, logFile)

	conf := config.NewManager()
	if err := conf.Load(flags.ConfigPath, true); err != nil {
		fmt.Println("invalid configuration:", err)
		os.Exit(1)
	}

	p := pipeline.New(pipeline.WithDialer(conf.Destination().C().Dialer()))
	ctrl := control.NewController(p, conf.Packet().C().Template())

	params := control.ParamsFromConfig(conf.Snapshot())
	if _, err := tea.NewProgram(tui.New(ctrl, params)).Run(); err != nil {
		log.Error("panel terminated", zap.Error(err))
	}

	if err := ctrl.Close(); err != nil {
		log.Error("failed to stop generation", zap.Error(err))
	}
	log.Sync()
}
