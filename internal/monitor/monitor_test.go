package monitor

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/LeoCommon/egrim/internal/transport"
	"github.com/LeoCommon/egrim/pkg/log"
	"github.com/LeoCommon/egrim/pkg/packet"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func SetupMonitorTest(t *testing.T) func() {
	t.Helper()
	log.Init(true)

	return func() {
		goleak.VerifyNone(t)
	}
}

func wire(p packet.StatusPacket) []byte {
	var buf [packet.EncodedLength]byte
	packet.PutWords(buf[:], p.Encode())
	return buf[:packet.WireLength]
}

func numberedAt(n uint32, pos uint32) packet.StatusPacket {
	p := packet.New()
	p.SystemID = 0x00AA
	p.PacketNumber = n
	p.AntennaPosition = pos
	return p
}

func TestDecodeLayer(t *testing.T) {
	p := numberedAt(42, 1000)
	p.AntennaMode = 3

	s, err := Decode(wire(p))
	require.NoError(t, err)
	assert.Equal(t, 5, s.Words)
	assert.Equal(t, uint32(42), s.Packet.PacketNumber)
	assert.Equal(t, uint32(1000), s.Packet.AntennaPosition)
	assert.Equal(t, uint8(3), s.Packet.AntennaMode)
	assert.Equal(t, uint8(packet.Length), s.Packet.PacketLength)
	assert.Len(t, s.LayerContents(), packet.WireLength)
	assert.Empty(t, s.LayerPayload())
}

func TestDecodeTrailingBytes(t *testing.T) {
	b := append(wire(numberedAt(1, 0)), 0xDE, 0xAD, 0xBE, 0xEF, 0x01)

	s, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, 6, s.Words)
	assert.Equal(t, []byte{0x01}, s.LayerPayload())
}

func TestDecodeTruncated(t *testing.T) {
	_, err := Decode(make([]byte, packet.WireLength-1))
	assert.Error(t, err)

	_, err = Decode(nil)
	assert.Error(t, err)
}

func TestTracker(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := uint32(655)

	var tr Tracker
	observe := func(n uint32, i int) {
		tr.Observe(Observation{
			At:     base.Add(time.Duration(i) * 10 * time.Millisecond),
			Status: &StatusLayer{Packet: numberedAt(n, uint32(i)*step)},
		})
	}

	observe(0, 0)
	observe(1, 1)
	observe(2, 2)
	observe(5, 5) // 3 and 4 lost
	observe(5, 5)
	observe(4, 4)
	tr.Observe(Observation{At: base})

	s := tr.Summary()
	assert.Equal(t, uint64(6), s.Packets)
	assert.Equal(t, uint64(1), s.Malformed)
	assert.Equal(t, uint64(2), s.Lost)
	assert.Equal(t, uint64(1), s.Duplicates)
	assert.Equal(t, uint64(1), s.Reordered)
	assert.Equal(t, uint32(5), s.LastNumber)

	assert.InDelta(t, float64(10*time.Millisecond), float64(s.IntervalMean), float64(time.Microsecond))
	assert.InDelta(t, 0, float64(s.IntervalStdDev), float64(time.Microsecond))
	assert.InDelta(t, float64(step)*packet.RotationStep, s.StepMean, 1e-9)
}

func TestTrackerWraps(t *testing.T) {
	var tr Tracker
	now := time.Now()

	tr.Observe(Observation{At: now, Status: &StatusLayer{Packet: numberedAt(0xFFFFFF, packet.RotationFull-1)}})
	tr.Observe(Observation{At: now.Add(time.Millisecond), Status: &StatusLayer{Packet: numberedAt(0, 0)}})

	s := tr.Summary()
	assert.Zero(t, s.Lost)
	assert.Zero(t, s.Reordered)
	assert.InDelta(t, float64(time.Millisecond), float64(s.IntervalMean), float64(time.Microsecond))
	assert.InDelta(t, packet.RotationStep, s.StepMean, 1e-12)
}

func writeCapture(t *testing.T, datagrams []struct {
	port    uint16
	payload []byte
}) *bytes.Buffer {
	t.Helper()

	var out bytes.Buffer
	w := pcapgo.NewWriter(&out)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, d := range datagrams {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{0x01, 0, 0x5e, 0, 0, 1},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      1,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(10, 0, 0, 2),
			DstIP:    net.IPv4(224, 0, 0, 1),
		}
		udp := &layers.UDP{SrcPort: 40000, DstPort: layers.UDPPort(d.port)}
		require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(d.payload)))

		data := buf.Bytes()
		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(time.Duration(i) * 83 * time.Millisecond),
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
	}

	return &out
}

func TestReadPCAP(t *testing.T) {
	defer SetupMonitorTest(t)()

	capture := writeCapture(t, []struct {
		port    uint16
		payload []byte
	}{
		{1024, wire(numberedAt(0, 0))},
		{1024, wire(numberedAt(1, 3626))},
		{1024, wire(numberedAt(2, 7252))},
		{5353, []byte("unrelated")},
		{1024, []byte{1, 2, 3}},
	})

	var tr Tracker
	var seen []Observation
	n, err := ReadPCAP(context.Background(), capture, 1024, func(o Observation) {
		seen = append(seen, o)
		tr.Observe(o)
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Len(t, seen, 4)

	assert.Equal(t, "10.0.0.2:40000", seen[0].Source)
	assert.Equal(t, packet.WireLength, seen[0].Size)
	assert.Nil(t, seen[3].Status)

	s := tr.Summary()
	assert.Equal(t, uint64(3), s.Packets)
	assert.Equal(t, uint64(1), s.Malformed)
	assert.Zero(t, s.Lost)
	assert.InDelta(t, float64(83*time.Millisecond), float64(s.IntervalMean), float64(time.Microsecond))
	assert.InDelta(t, 3626*packet.RotationStep, s.StepMean, 1e-9)
}

func TestReadPCAPAnyPort(t *testing.T) {
	defer SetupMonitorTest(t)()

	capture := writeCapture(t, []struct {
		port    uint16
		payload []byte
	}{
		{1024, wire(numberedAt(0, 0))},
		{2048, wire(numberedAt(1, 0))},
	})

	n, err := ReadPCAP(context.Background(), capture, 0, func(Observation) {})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReadPCAPErrors(t *testing.T) {
	defer SetupMonitorTest(t)()

	_, err := ReadPCAP(context.Background(), bytes.NewReader([]byte("not a capture")), 0, func(Observation) {})
	assert.Error(t, err)

	_, err = ReadPCAPFile(context.Background(), "/nonexistent/capture.pcap", 0, func(Observation) {})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	capture := writeCapture(t, []struct {
		port    uint16
		payload []byte
	}{{1024, wire(numberedAt(0, 0))}})
	n, err := ReadPCAP(ctx, capture, 0, func(Observation) {})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestReceiverLoopback(t *testing.T) {
	defer SetupMonitorTest(t)()

	r, err := Listen("127.0.0.1", 0)
	require.NoError(t, err)

	received := make(chan Observation, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, func(o Observation) { received <- o })
	}()

	s, err := transport.DialUDP(transport.Endpoint{Address: "127.0.0.1", Port: uint16(r.Port())})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send(wire(numberedAt(7, 100))))
	require.NoError(t, s.Send([]byte{0xFF}))

	var obs []Observation
	for len(obs) < 2 {
		select {
		case o := <-received:
			obs = append(obs, o)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for datagrams")
		}
	}

	require.NotNil(t, obs[0].Status)
	assert.Equal(t, uint32(7), obs[0].Status.Packet.PacketNumber)
	assert.Equal(t, s.LocalAddr().String(), obs[0].Source)
	assert.Nil(t, obs[1].Status)
	assert.Equal(t, 1, obs[1].Size)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestListenRejectsBadAddress(t *testing.T) {
	_, err := Listen("localhost", 0)
	assert.Error(t, err)

	_, err = Listen("::1", 0)
	assert.Error(t, err)
}
