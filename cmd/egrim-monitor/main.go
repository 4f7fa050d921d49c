package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/LeoCommon/egrim/internal/config"
	"github.com/LeoCommon/egrim/internal/monitor"
	"github.com/LeoCommon/egrim/pkg/log"
	"go.uber.org/zap"
)

type flags struct {
	address string
	port    int
	pcap    string
	count   int
	verbose bool
	debug   bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.address, "address", config.DefaultAddress, "IPv4 unicast or multicast address to listen on")
	flag.IntVar(&f.port, "port", config.DefaultPort, "UDP port of the status stream")
	flag.StringVar(&f.pcap, "pcap", "", "replay this pcap capture instead of listening")
	flag.IntVar(&f.count, "count", 0, "stop after this many datagrams, 0 runs until interrupted")
	flag.BoolVar(&f.verbose, "verbose", false, "log every received packet")
	flag.BoolVar(&f.debug, "debug", false, "true if the debug logging should be enabled")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
	log.Init(f.debug)
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var tracker monitor.Tracker
	seen := 0
	handle := func(o monitor.Observation) {
		tracker.Observe(o)
		seen++

		if f.verbose && o.Status != nil {
			p := o.Status.Packet
			log.Info("status packet",
				zap.String("source", o.Source),
				zap.Uint32("number", p.PacketNumber),
				zap.Uint32("time_reference", p.TimeReference),
				zap.Float64("azimuth", p.Degrees()),
				zap.Uint16("system_id", p.SystemID),
				zap.Int("words", o.Status.Words))
		}

		if f.count > 0 && seen >= f.count {
			cancel()
		}
	}

	var err error
	if f.pcap != "" {
		_, err = monitor.ReadPCAPFile(ctx, f.pcap, f.port, handle)
	} else {
		var r *monitor.Receiver
		r, err = monitor.Listen(f.address, f.port)
		if err == nil {
			err = r.Run(ctx, handle)
		}
	}

	s := tracker.Summary()
	log.Info("stream summary",
		zap.Uint64("packets", s.Packets),
		zap.Uint64("malformed", s.Malformed),
		zap.Uint64("lost", s.Lost),
		zap.Uint64("duplicates", s.Duplicates),
		zap.Uint64("reordered", s.Reordered),
		zap.Uint32("last_number", s.LastNumber),
		zap.Duration("interval_mean", s.IntervalMean),
		zap.Duration("interval_stddev", s.IntervalStdDev),
		zap.Float64("step_mean_deg", s.StepMean))

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "monitor failed: %s\n", err)
		log.Sync()
		os.Exit(1)
	}
}
