// Package app wires configuration, the control surface and process signals
// into the long running simulator daemon.
package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/LeoCommon/egrim/internal/config"
	"github.com/LeoCommon/egrim/internal/control"
	"github.com/LeoCommon/egrim/internal/pipeline"
	"github.com/LeoCommon/egrim/pkg/log"
	"github.com/LeoCommon/egrim/pkg/systemd"
	"go.uber.org/zap"
)

// App global app struct that contains all services
type App struct {
	// All go routines that should terminate with the application are registered here
	WG sync.WaitGroup

	ToggleSignal chan os.Signal
	ExitSignal   chan os.Signal

	Conf       *config.Manager
	Controller *control.Controller

	TestRunning bool
}

func (a *App) loadConfiguration(configPath string, acceptEmptyConfig bool) error {
	a.Conf = config.NewManager()
	if err := a.Conf.Load(configPath, acceptEmptyConfig); err != nil {
		log.Error("an error occurred while trying to load the config file", zap.String("path", configPath), zap.Error(err))
		return err
	}

	return nil
}

// Setup parses args, loads the configuration and prepares the controller.
// With instrumentation set a missing config file is accepted, debug logging
// is forced and no process signals are registered.
func Setup(args []string, instrumentation bool, opts ...pipeline.Option) (*App, error) {
	app := App{TestRunning: instrumentation}

	flags, err := config.ParseCLIFlags(flag.NewFlagSet("egrim", flag.ContinueOnError), args)
	if err != nil {
		return nil, err
	}

	app.ExitSignal = make(chan os.Signal, 1)
	app.ToggleSignal = make(chan os.Signal, 1)

	if !instrumentation {
		signal.Notify(app.ExitSignal, os.Interrupt, syscall.SIGTERM)
		signal.Notify(app.ToggleSignal, syscall.SIGUSR1)
	} else {
		flags.Debug = true
	}

	log.Init(flags.Debug)
	log.Info("simulator starting")

	if err := app.loadConfiguration(flags.ConfigPath, instrumentation); err != nil {
		app.Shutdown()
		return nil, err
	}

	if app.Conf.Client().C().Debug && !flags.Debug {
		log.Init(true)
	}

	dst := app.Conf.Destination().C()
	opts = append([]pipeline.Option{pipeline.WithDialer(dst.Dialer())}, opts...)

	app.Controller = control.NewController(pipeline.New(opts...), app.Conf.Packet().C().Template())

	log.Info("simulator ready",
		zap.String("name", app.Conf.Client().C().Name),
		zap.String("transport", string(dst.Transport)))

	return &app, nil
}

// Params returns the generation parameters from the configuration
func (a *App) Params() control.Params {
	return control.ParamsFromConfig(a.Conf.Snapshot())
}

// Run starts generating and serves signals until an exit signal arrives
func (a *App) Run() error {
	if err := a.Controller.Start(a.Params()); err != nil {
		log.Error("could not start generation", zap.Error(err))
		return err
	}

	notify(systemd.Ready())

	var statsC <-chan time.Time
	if interval := a.Conf.Generator().C().StatsInterval.Value(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		statsC = ticker.C
	}

	var watchdogC <-chan time.Time
	if interval := systemd.WatchdogInterval(); interval > 0 {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		watchdogC = ticker.C
	}

	for {
		select {
		case <-statsC:
			a.logStats()

		case <-watchdogC:
			notify(systemd.EntertainWatchdog())

		case <-a.ToggleSignal:
			running, err := a.Controller.Toggle(a.Params())
			if err != nil {
				log.Error("toggle failed", zap.Error(err))
				continue
			}
			log.Info("toggle signal received", zap.Bool("running", running))

		case <-a.ExitSignal:
			log.Info("exit signal received, stopping generation")
			notify(systemd.Stopping())
			a.logStats()
			return nil
		}
	}
}

func (a *App) logStats() {
	s := a.Controller.Stats()
	log.Info("transmission statistics",
		zap.String("episode", s.Episode),
		zap.Stringer("state", s.State),
		zap.Uint64("generated", s.Generated),
		zap.Uint64("sent", s.Sent),
		zap.Uint64("failed", s.Failed),
		zap.Int("queue_depth", s.QueueDepth),
		zap.Duration("interval_mean", s.IntervalMean),
		zap.Duration("interval_stddev", s.IntervalStdDev),
		zap.NamedError("last_error", s.LastError))

	notify(systemd.Status(fmt.Sprintf("%s, sent %d, failed %d", s.State, s.Sent, s.Failed)))
}

func notify(err error) {
	if err != nil && !errors.Is(err, systemd.ErrNoNotifySocket) {
		log.Warn("systemd notification failed", zap.Error(err))
	}
}

func (a *App) Shutdown() {
	if !a.TestRunning {
		signal.Stop(a.ExitSignal)
		signal.Stop(a.ToggleSignal)
	}

	if a.Controller != nil {
		if err := a.Controller.Close(); err != nil {
			log.Error("failed to stop generation", zap.Error(err))
		}
	}

	log.Sync()
}
