package transport

import (
	"fmt"
	"net"

	"github.com/LeoCommon/egrim/pkg/log"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
)

// MulticastTTL keeps multicast traffic on the local segment
const MulticastTTL = 1

// UDPSender sends datagrams over a connected IPv4 UDP socket
type UDPSender struct {
	conn      *net.UDPConn
	remote    *net.UDPAddr
	multicast bool
}

// DialUDP opens the socket for an IPv4 unicast or multicast destination
func DialUDP(e Endpoint) (*UDPSender, error) {
	remote, err := net.ResolveUDPAddr("udp4", e.String())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination %s: %w", e, err)
	}

	if remote.IP.To4() == nil {
		return nil, fmt.Errorf("destination %s is not an IPv4 address", e)
	}

	conn, err := net.DialUDP("udp4", nil, remote)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket for %s: %w", e, err)
	}

	s := &UDPSender{
		conn:      conn,
		remote:    remote,
		multicast: remote.IP.IsMulticast(),
	}

	if s.multicast {
		if err := ipv4.NewPacketConn(conn).SetMulticastTTL(MulticastTTL); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set multicast ttl: %w", err)
		}
	}

	log.Debug("udp sender ready", zap.Stringer("remote", remote), zap.Bool("multicast", s.multicast),
		zap.Stringer("local", conn.LocalAddr()))

	return s, nil
}

// Send writes b as a single datagram
func (s *UDPSender) Send(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

// Multicast reports whether the destination is a multicast group
func (s *UDPSender) Multicast() bool {
	return s.multicast
}

// LocalAddr returns the address the socket was bound to
func (s *UDPSender) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *UDPSender) Close() error {
	return s.conn.Close()
}

func (s *UDPSender) String() string {
	return "udp://" + s.remote.String()
}
