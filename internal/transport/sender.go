// Package transport contains the best-effort links used to hand encoded
// status packets to the receiving device.
package transport

import (
	"net"
	"strconv"
)

// Sender delivers a single datagram without acknowledgement.
// Send is only ever called from one goroutine at a time.
type Sender interface {
	Send(b []byte) error
	Close() error
	String() string
}

// Endpoint is the destination of a pipeline
type Endpoint struct {
	Address string
	Port    uint16
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Address, strconv.Itoa(int(e.Port)))
}

// Dialer creates a sender for an endpoint, it is called once per running episode
type Dialer func(Endpoint) (Sender, error)

// UDP is the default dialer
func UDP(e Endpoint) (Sender, error) {
	s, err := DialUDP(e)
	if err != nil {
		return nil, err
	}
	return s, nil
}
