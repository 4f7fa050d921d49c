package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/LeoCommon/egrim/pkg/log"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"go.uber.org/zap"
)

// ReadPCAP replays a capture in pcap format and hands every UDP datagram
// addressed to udpPort to handle. A zero port accepts every UDP datagram.
// It returns the number of datagrams handed out.
func ReadPCAP(ctx context.Context, r io.Reader, udpPort int, handle Handler) (int, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read pcap header: %w", err)
	}

	source := gopacket.NewPacketSource(reader, reader.LinkType())
	source.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	count := 0
	for {
		if err := ctx.Err(); err != nil {
			log.Info("pcap replay cancelled", zap.Int("datagrams", count))
			return count, err
		}

		pkt, err := source.NextPacket()
		if errors.Is(err, io.EOF) {
			log.Debug("pcap replay complete", zap.Int("datagrams", count))
			return count, nil
		}
		if err != nil {
			return count, err
		}

		udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok {
			continue
		}
		if udpPort != 0 && int(udp.DstPort) != udpPort {
			continue
		}

		obs := Observation{
			At:   pkt.Metadata().Timestamp,
			Size: len(udp.Payload),
		}
		if nl := pkt.NetworkLayer(); nl != nil {
			obs.Source = fmt.Sprintf("%s:%d", nl.NetworkFlow().Src(), udp.SrcPort)
		}

		status, err := Decode(udp.Payload)
		if err != nil {
			log.Debug("malformed datagram in capture", zap.Int("index", count), zap.Error(err))
		}
		obs.Status = status

		count++
		handle(obs)
	}
}

// ReadPCAPFile opens path and replays it with ReadPCAP
func ReadPCAPFile(ctx context.Context, path string, udpPort int, handle Handler) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pcap file %s: %w", path, err)
	}
	defer f.Close()

	return ReadPCAP(ctx, f, udpPort, handle)
}
