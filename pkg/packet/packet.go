// Package packet defines the antenna status packet sent to the FPGA ingest
// pipeline and the arithmetic used to advance the simulated antenna.
package packet

import (
	"math"
	"time"
)

const (
	// RotationFull is the number of angle steps in one revolution (2^18)
	RotationFull = 262144

	// RotationStep is the size of one angle step in degrees
	RotationStep = 360.0 / RotationFull

	// Length is the declared packet length in words
	Length = 6
)

// StatusPacket is a single antenna status record.
//
// Every field is stored wider than its wire width, Encode masks each one to
// the number of bits it owns in the layout.
type StatusPacket struct {
	SystemID     uint16 // word 0, 16 bits
	ModeSetting  uint16 // word 0, 16 bits
	PacketLength uint8  // word 1, 8 bits (=6)
	PacketNumber uint32 // word 1, 24 bits

	// TimeReference is the IRIG time, LSB = 1 millisecond
	TimeReference uint32

	// AntennaPosition is the antenna angle, LSB = 360/2^18 degree
	AntennaPosition uint32

	Transmitter       uint8 // 0=off, 1=on
	AntennaPhasing    uint8 // 0=phase I, 1=phase II
	IntegrationFilter uint8 // 0=off, 1=on
	RangeScale        uint8 // 0=100km, 1=150km, 2=250km, 3=0.5-50km
	ChannelSelect     uint8 // 0..7 = CH1..CH8
	AntennaMode       uint8 // 0=fixed 6rpm, 1=fixed 12rpm, 2=manual cw, 3=manual ccw, 4=stopped
	ModeSwitch        uint8 // 0=A, 1=N, 2=K, 3=S
	PRISelect         uint8 // 0=PRI 1, 1=PRI 2
	ModeMSelect       uint8 // 0=sector, 1=flicker 1, 2=flicker 2, 3=not selected
	AFC               uint8 // 0=off, 1=on
	AGC               uint8 // 0=off, 1=on

	MGCVoltage    uint8 // LSB = 10/2^7 V
	AdjRangeScale uint8 // 0.5-50km, LSB = 10/2^7 V
}

// New returns a zeroed packet with the declared length set
func New() StatusPacket {
	return StatusPacket{PacketLength: Length}
}

// SetInitialPosition re-wraps the stored antenna position into a single
// revolution. The requested angle is not applied, receivers in the field
// were validated against this behaviour.
func (p *StatusPacket) SetInitialPosition(angleDegrees float64) {
	p.AntennaPosition %= RotationFull
}

// AdvancePosition rotates the antenna by rate*elapsed degrees, rounded down
// to whole angle steps, and wraps the result into [0, RotationFull).
func (p *StatusPacket) AdvancePosition(rateDegPerSec, elapsedSeconds float64) {
	p.AntennaPosition = (p.AntennaPosition%RotationFull + Steps(rateDegPerSec, elapsedSeconds)) % RotationFull
}

// Steps converts a rotation into whole angle steps modulo one revolution.
// Adding the result to a position and wrapping is identical to 32 bit
// unsigned wrap-around because 2^32 is a multiple of RotationFull.
func Steps(rateDegPerSec, elapsedSeconds float64) uint32 {
	steps := math.Floor(elapsedSeconds * rateDegPerSec / RotationStep)
	if math.IsNaN(steps) || math.IsInf(steps, 0) {
		return 0
	}

	steps = math.Mod(steps, RotationFull)
	if steps < 0 {
		// reverse rotation
		steps += RotationFull
	}

	return uint32(steps) % RotationFull
}

// Degrees returns the antenna position in degrees
func (p StatusPacket) Degrees() float64 {
	return float64(p.AntennaPosition%RotationFull) * RotationStep
}

// TimeOfDayMillis returns the milliseconds elapsed since UTC midnight, the
// unit used by the IRIG time reference field.
func TimeOfDayMillis(t time.Time) uint32 {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return uint32(t.Sub(midnight).Milliseconds())
}
