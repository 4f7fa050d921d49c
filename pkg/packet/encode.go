package packet

import (
	"encoding/binary"
)

const (
	// WordCount is the number of 32 bit words in an encoded packet
	WordCount = 6

	// EncodedLength is the size of all six words in bytes
	EncodedLength = WordCount * 4

	// WireLength is the number of bytes put on the wire per packet.
	// Only the first five words are sent, word 5 (MGC voltage and
	// adjustable range scale) never leaves the host.
	WireLength = 20
)

// ByteOrder is the order the words are serialised in
var ByteOrder = binary.LittleEndian

// Bit positions within word 4
const (
	transmitterShift = 1
	phasingShift     = 2
	integrationShift = 3
	rangeScaleShift  = 4
	channelShift     = 6
	antennaModeShift = 9
	modeSwitchShift  = 12
	priShift         = 14
	modeMShift       = 16
	afcShift         = 18
	agcShift         = 19
)

func bits(v uint32, width uint) uint32 {
	return v & (1<<width - 1)
}

// Encode converts the packet into its six word representation.
// Bit 0 and bit 15 of word 4 are always zero.
func (p StatusPacket) Encode() [WordCount]uint32 {
	var w [WordCount]uint32

	w[0] = uint32(p.SystemID) | uint32(p.ModeSetting)<<16
	w[1] = uint32(p.PacketLength) | bits(p.PacketNumber, 24)<<8
	w[2] = p.TimeReference
	w[3] = p.AntennaPosition

	w[4] = bits(uint32(p.Transmitter), 1)<<transmitterShift |
		bits(uint32(p.AntennaPhasing), 1)<<phasingShift |
		bits(uint32(p.IntegrationFilter), 1)<<integrationShift |
		bits(uint32(p.RangeScale), 2)<<rangeScaleShift |
		bits(uint32(p.ChannelSelect), 3)<<channelShift |
		bits(uint32(p.AntennaMode), 3)<<antennaModeShift |
		bits(uint32(p.ModeSwitch), 2)<<modeSwitchShift |
		bits(uint32(p.PRISelect), 1)<<priShift |
		bits(uint32(p.ModeMSelect), 2)<<modeMShift |
		bits(uint32(p.AFC), 1)<<afcShift |
		bits(uint32(p.AGC), 1)<<agcShift

	w[5] = uint32(p.MGCVoltage) | uint32(p.AdjRangeScale)<<8

	return w
}

// Decode extracts the fields from six encoded words
func Decode(w [WordCount]uint32) StatusPacket {
	return StatusPacket{
		SystemID:      uint16(w[0]),
		ModeSetting:   uint16(w[0] >> 16),
		PacketLength:  uint8(w[1]),
		PacketNumber:  w[1] >> 8,
		TimeReference: w[2],

		AntennaPosition: w[3],

		Transmitter:       uint8(bits(w[4]>>transmitterShift, 1)),
		AntennaPhasing:    uint8(bits(w[4]>>phasingShift, 1)),
		IntegrationFilter: uint8(bits(w[4]>>integrationShift, 1)),
		RangeScale:        uint8(bits(w[4]>>rangeScaleShift, 2)),
		ChannelSelect:     uint8(bits(w[4]>>channelShift, 3)),
		AntennaMode:       uint8(bits(w[4]>>antennaModeShift, 3)),
		ModeSwitch:        uint8(bits(w[4]>>modeSwitchShift, 2)),
		PRISelect:         uint8(bits(w[4]>>priShift, 1)),
		ModeMSelect:       uint8(bits(w[4]>>modeMShift, 2)),
		AFC:               uint8(bits(w[4]>>afcShift, 1)),
		AGC:               uint8(bits(w[4]>>agcShift, 1)),

		MGCVoltage:    uint8(w[5]),
		AdjRangeScale: uint8(w[5] >> 8),
	}
}

// PutWords serialises the words into b, which must hold EncodedLength bytes
func PutWords(b []byte, w [WordCount]uint32) {
	_ = b[EncodedLength-1]
	for i, word := range w {
		ByteOrder.PutUint32(b[i*4:], word)
	}
}

// Words reads as many complete words as b holds and reports how many were read.
// A payload of WireLength bytes yields five words, word 5 stays zero.
func Words(b []byte) (w [WordCount]uint32, n int) {
	for n < WordCount && len(b) >= (n+1)*4 {
		w[n] = ByteOrder.Uint32(b[n*4:])
		n++
	}
	return w, n
}
