package packet

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullPacket() StatusPacket {
	return StatusPacket{
		SystemID:          0xBEEF,
		ModeSetting:       0x1234,
		PacketLength:      Length,
		PacketNumber:      0xABCDEF,
		TimeReference:     0xDEADBEEF,
		AntennaPosition:   RotationFull - 1,
		Transmitter:       1,
		AntennaPhasing:    1,
		IntegrationFilter: 1,
		RangeScale:        3,
		ChannelSelect:     7,
		AntennaMode:       7,
		ModeSwitch:        3,
		PRISelect:         1,
		ModeMSelect:       3,
		AFC:               1,
		AGC:               1,
		MGCVoltage:        0xA5,
		AdjRangeScale:     0x5A,
	}
}

func randomPacket(rng *rand.Rand) StatusPacket {
	return StatusPacket{
		SystemID:          uint16(rng.Uint32()),
		ModeSetting:       uint16(rng.Uint32()),
		PacketLength:      uint8(rng.Uint32()),
		PacketNumber:      rng.Uint32() & 0xFFFFFF,
		TimeReference:     rng.Uint32(),
		AntennaPosition:   rng.Uint32() % RotationFull,
		Transmitter:       uint8(rng.Intn(2)),
		AntennaPhasing:    uint8(rng.Intn(2)),
		IntegrationFilter: uint8(rng.Intn(2)),
		RangeScale:        uint8(rng.Intn(4)),
		ChannelSelect:     uint8(rng.Intn(8)),
		AntennaMode:       uint8(rng.Intn(8)),
		ModeSwitch:        uint8(rng.Intn(4)),
		PRISelect:         uint8(rng.Intn(2)),
		ModeMSelect:       uint8(rng.Intn(4)),
		AFC:               uint8(rng.Intn(2)),
		AGC:               uint8(rng.Intn(2)),
		MGCVoltage:        uint8(rng.Uint32()),
		AdjRangeScale:     uint8(rng.Uint32()),
	}
}

func TestEncodeLayout(t *testing.T) {
	w := fullPacket().Encode()

	assert.Equal(t, uint32(0x1234BEEF), w[0])
	assert.Equal(t, uint32(0xABCDEF06), w[1])
	assert.Equal(t, uint32(0xDEADBEEF), w[2])
	assert.Equal(t, uint32(0x3FFFF), w[3])
	// every flag set, bit 0 and bit 15 stay clear
	assert.Equal(t, uint32(0x000F7FFE), w[4])
	assert.Equal(t, uint32(0x5AA5), w[5])
}

func TestEncodeSingleFields(t *testing.T) {
	cases := []struct {
		name string
		set  func(p *StatusPacket)
		word int
		want uint32
	}{
		{"transmitter", func(p *StatusPacket) { p.Transmitter = 1 }, 4, 1 << 1},
		{"phasing", func(p *StatusPacket) { p.AntennaPhasing = 1 }, 4, 1 << 2},
		{"integration", func(p *StatusPacket) { p.IntegrationFilter = 1 }, 4, 1 << 3},
		{"range scale", func(p *StatusPacket) { p.RangeScale = 2 }, 4, 2 << 4},
		{"channel", func(p *StatusPacket) { p.ChannelSelect = 5 }, 4, 5 << 6},
		{"antenna mode", func(p *StatusPacket) { p.AntennaMode = 4 }, 4, 4 << 9},
		{"mode switch", func(p *StatusPacket) { p.ModeSwitch = 3 }, 4, 3 << 12},
		{"pri", func(p *StatusPacket) { p.PRISelect = 1 }, 4, 1 << 14},
		{"mode m", func(p *StatusPacket) { p.ModeMSelect = 2 }, 4, 2 << 16},
		{"afc", func(p *StatusPacket) { p.AFC = 1 }, 4, 1 << 18},
		{"agc", func(p *StatusPacket) { p.AGC = 1 }, 4, 1 << 19},
		{"mgc", func(p *StatusPacket) { p.MGCVoltage = 0x80 }, 5, 0x80},
		{"adjustable range", func(p *StatusPacket) { p.AdjRangeScale = 0x01 }, 5, 0x100},
		{"system id", func(p *StatusPacket) { p.SystemID = 0xFFFF }, 0, 0xFFFF},
		{"mode setting", func(p *StatusPacket) { p.ModeSetting = 1 }, 0, 1 << 16},
		{"packet number", func(p *StatusPacket) { p.PacketNumber = 1 }, 1, 1 << 8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p StatusPacket
			tc.set(&p)
			w := p.Encode()
			for i, word := range w {
				if i == tc.word {
					assert.Equal(t, tc.want, word)
				} else {
					assert.Zero(t, word, "word %d", i)
				}
			}
		})
	}
}

func TestEncodeTruncatesOversizedFields(t *testing.T) {
	p := StatusPacket{
		PacketNumber: 0x1FFFFFF,
		Transmitter:  0xFF,
		RangeScale:   0xFF,
	}
	w := p.Encode()

	// The 25th bit of the packet number is lost
	assert.Equal(t, uint32(0xFFFFFF00), w[1])
	// Oversized flags never bleed into neighbours
	assert.Equal(t, uint32(1<<1|3<<4), w[4])
}

func TestEncodeIsDeterministic(t *testing.T) {
	p := fullPacket()
	assert.Equal(t, p.Encode(), p.Encode())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		p := randomPacket(rng)
		w := p.Encode()

		assert.Zero(t, w[4]&(1<<0|1<<15), "gap bits set")
		assert.Zero(t, w[4]>>20, "bits above AGC set")
		assert.Zero(t, w[5]>>16, "bits above adjustable range set")

		if diff := cmp.Diff(p, Decode(w)); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestDistinctFieldsDistinctEncodings(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 500; i++ {
		a := randomPacket(rng)
		b := a
		b.ChannelSelect = (a.ChannelSelect + 1) % 8
		assert.NotEqual(t, a.Encode(), b.Encode())

		b = a
		b.AntennaPosition = (a.AntennaPosition + 1) % RotationFull
		assert.NotEqual(t, a.Encode(), b.Encode())
	}
}

func TestPutWordsAndWords(t *testing.T) {
	w := fullPacket().Encode()

	var buf [EncodedLength]byte
	PutWords(buf[:], w)

	// little endian: least significant byte of word 0 first
	assert.Equal(t, []byte{0xEF, 0xBE, 0x34, 0x12}, buf[:4])

	got, n := Words(buf[:])
	require.Equal(t, WordCount, n)
	assert.Equal(t, w, got)

	// The wire payload only carries five words
	got, n = Words(buf[:WireLength])
	require.Equal(t, 5, n)
	assert.Equal(t, w[:5], got[:5])
	assert.Zero(t, got[5])

	// Partial trailing words are ignored
	_, n = Words(buf[:7])
	assert.Equal(t, 1, n)
}
