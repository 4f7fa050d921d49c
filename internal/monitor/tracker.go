package monitor

import (
	"time"

	"github.com/LeoCommon/egrim/pkg/packet"
	"gonum.org/v1/gonum/stat"
)

const numberMask = 0xFFFFFF

// Observation is one received status packet
type Observation struct {
	At     time.Time
	Source string
	Size   int
	Status *StatusLayer
}

// Summary describes a received stream
type Summary struct {
	Packets    uint64
	Malformed  uint64
	Lost       uint64
	Duplicates uint64
	Reordered  uint64
	LastNumber uint32

	IntervalMean   time.Duration
	IntervalStdDev time.Duration
	// Mean antenna advance between consecutive packets in degrees
	StepMean float64
}

// Tracker checks packet numbering and cadence of a single stream.
// It is not safe for concurrent use.
type Tracker struct {
	summary Summary

	have      bool
	last      uint32
	lastAt    time.Time
	lastPos   uint32
	intervals []float64
	steps     []float64
}

func (t *Tracker) Observe(o Observation) {
	if o.Status == nil {
		t.summary.Malformed++
		return
	}
	t.summary.Packets++

	num := o.Status.Packet.PacketNumber & numberMask
	pos := o.Status.Packet.AntennaPosition % packet.RotationFull

	if !t.have {
		t.have = true
		t.accept(num, pos, o.At)
		return
	}

	switch diff := (num - t.last) & numberMask; {
	case diff == 0:
		t.summary.Duplicates++
		return
	case diff < numberMask/2:
		t.summary.Lost += uint64(diff - 1)
		// only consecutive packets describe the cadence
		if diff == 1 {
			t.intervals = append(t.intervals, o.At.Sub(t.lastAt).Seconds())
			step := (pos + packet.RotationFull - t.lastPos) % packet.RotationFull
			t.steps = append(t.steps, float64(step)*packet.RotationStep)
		}
		t.accept(num, pos, o.At)
	default:
		t.summary.Reordered++
	}
}

func (t *Tracker) accept(num, pos uint32, at time.Time) {
	t.last = num
	t.lastPos = pos
	t.lastAt = at
	t.summary.LastNumber = num
}

func (t *Tracker) Summary() Summary {
	s := t.summary

	switch len(t.intervals) {
	case 0:
	case 1:
		s.IntervalMean = seconds(t.intervals[0])
		s.StepMean = t.steps[0]
	default:
		m, sd := stat.MeanStdDev(t.intervals, nil)
		s.IntervalMean = seconds(m)
		s.IntervalStdDev = seconds(sd)
		s.StepMean = stat.Mean(t.steps, nil)
	}

	return s
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
