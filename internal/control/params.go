// Package control is the operator surface of the simulator: it validates the
// six form parameters and starts or stops the transmission pipeline.
package control

import (
	"fmt"
	"math"
	"net"
	"time"

	"github.com/LeoCommon/egrim/internal/config"
	"github.com/LeoCommon/egrim/internal/pipeline"
	"github.com/LeoCommon/egrim/pkg/packet"
)

// Range is an inclusive bound
type Range struct {
	Min float64
	Max float64
}

func (r Range) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= r.Min && v <= r.Max
}

// Operator ranges of the form fields
var (
	QueueLengthRange   = Range{Min: 1, Max: 100}
	PeriodRange        = Range{Min: 0, Max: 10}
	RotationStartRange = Range{Min: 0, Max: 360}
	RotationRateRange  = Range{Min: 0, Max: 60}
	PortRange          = Range{Min: 1024, Max: 49151}
)

// Params are the values the operator sets before generation starts
type Params struct {
	QueueLength   int
	Period        time.Duration
	RotationStart float64 // degrees
	RotationRate  float64 // degrees per second
	Address       string
	Port          int
}

// DefaultParams mirrors the default configuration
func DefaultParams() Params {
	return ParamsFromConfig(*config.Default())
}

func ParamsFromConfig(c config.MainConfig) Params {
	return Params{
		QueueLength:   c.Generator.QueueLength,
		Period:        c.Generator.Period.Value(),
		RotationStart: c.Generator.RotationStart,
		RotationRate:  c.Generator.RotationRate,
		Address:       c.Destination.Address,
		Port:          int(c.Destination.Port),
	}
}

// Validate checks every field against its range and returns the first violation
func (p Params) Validate() error {
	if !QueueLengthRange.Contains(float64(p.QueueLength)) {
		return &ValidationError{Field: "queue_length", Value: p.QueueLength, Range: QueueLengthRange}
	}
	if !PeriodRange.Contains(p.Period.Seconds()) {
		return &ValidationError{Field: "period", Value: p.Period, Range: PeriodRange}
	}
	if !RotationStartRange.Contains(p.RotationStart) {
		return &ValidationError{Field: "rotation_start", Value: p.RotationStart, Range: RotationStartRange}
	}
	if !RotationRateRange.Contains(p.RotationRate) {
		return &ValidationError{Field: "rotation_rate", Value: p.RotationRate, Range: RotationRateRange}
	}
	if !PortRange.Contains(float64(p.Port)) {
		return &ValidationError{Field: "port", Value: p.Port, Range: PortRange}
	}

	ip := net.ParseIP(p.Address)
	if ip == nil || ip.To4() == nil {
		return &ValidationError{Field: "address", Value: p.Address, Reason: "not an IPv4 address"}
	}

	return nil
}

// PipelineConfig combines the parameters with a packet template
func (p Params) PipelineConfig(template packet.StatusPacket) pipeline.Config {
	return pipeline.Config{
		Address:       p.Address,
		Port:          uint16(p.Port),
		QueueCapacity: p.QueueLength,
		Period:        p.Period,
		InitialAngle:  p.RotationStart,
		RotationRate:  p.RotationRate,
		Template:      template,
	}
}

type ValidationError struct {
	Field  string
	Value  any
	Range  Range
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: must be within [%g, %g]", e.Field, e.Value, e.Range.Min, e.Range.Max)
}

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}
