// Package monitor receives status packets back from the wire and checks them
// for conformance, live from a UDP socket or offline from a pcap capture.
package monitor

import (
	"fmt"

	"github.com/LeoCommon/egrim/pkg/packet"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// LayerTypeStatus decodes a UDP payload as an antenna status packet
var LayerTypeStatus = gopacket.RegisterLayerType(1917, gopacket.LayerTypeMetadata{
	Name:    "AntennaStatus",
	Decoder: gopacket.DecodeFunc(decodeStatus),
})

// StatusLayer is the decoded form of one datagram. Words tells how many
// complete words were present, a conforming sender transmits five.
type StatusLayer struct {
	layers.BaseLayer

	Packet packet.StatusPacket
	Words  int
}

func (s *StatusLayer) LayerType() gopacket.LayerType { return LayerTypeStatus }

func (s *StatusLayer) CanDecode() gopacket.LayerClass { return LayerTypeStatus }

func (s *StatusLayer) NextLayerType() gopacket.LayerType { return gopacket.LayerTypePayload }

func (s *StatusLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < packet.WireLength {
		df.SetTruncated()
		return fmt.Errorf("status packet too short: %d bytes", len(data))
	}

	w, n := packet.Words(data)
	s.Packet = packet.Decode(w)
	s.Words = n
	s.Contents = data[:n*4]
	s.Payload = data[n*4:]

	return nil
}

func decodeStatus(data []byte, p gopacket.PacketBuilder) error {
	s := &StatusLayer{}
	if err := s.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(s)
	if len(s.Payload) == 0 {
		return nil
	}
	return p.NextDecoder(s.NextLayerType())
}

// Decode parses a single datagram payload
func Decode(payload []byte) (*StatusLayer, error) {
	pkt := gopacket.NewPacket(payload, LayerTypeStatus, gopacket.DecodeOptions{NoCopy: true})
	if errLayer := pkt.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}

	s, ok := pkt.Layer(LayerTypeStatus).(*StatusLayer)
	if !ok {
		return nil, fmt.Errorf("no status layer in %d bytes", len(payload))
	}
	return s, nil
}
