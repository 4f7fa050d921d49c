package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/LeoCommon/egrim/pkg/log"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
)

const maxDatagram = 1500

// Handler is called for every received datagram, Status is nil if it did not decode
type Handler func(Observation)

// Receiver listens for status packets on one UDP port
type Receiver struct {
	conn  *net.UDPConn
	group net.IP
}

// Listen binds to address:port. A multicast address binds to the wildcard
// address and joins the group on the default interface.
func Listen(address string, port int) (*Receiver, error) {
	ip := net.ParseIP(address)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("listen address %q is not an IPv4 address", address)
	}

	bind := &net.UDPAddr{IP: ip, Port: port}
	if ip.IsMulticast() {
		bind = &net.UDPAddr{IP: net.IPv4zero, Port: port}
	}

	conn, err := net.ListenUDP("udp4", bind)
	if err != nil {
		return nil, err
	}

	r := &Receiver{conn: conn}
	if ip.IsMulticast() {
		if err := ipv4.NewPacketConn(conn).JoinGroup(nil, &net.UDPAddr{IP: ip}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to join %s: %w", ip, err)
		}
		r.group = ip
	}

	log.Info("monitor listening", zap.Stringer("local", conn.LocalAddr()), zap.Stringer("group", r.group))
	return r, nil
}

func (r *Receiver) LocalAddr() *net.UDPAddr {
	return r.conn.LocalAddr().(*net.UDPAddr)
}

// Port returns the bound port, useful after listening on port 0
func (r *Receiver) Port() int {
	return r.LocalAddr().Port
}

func (r *Receiver) String() string {
	return net.JoinHostPort(r.LocalAddr().IP.String(), strconv.Itoa(r.Port()))
}

// Run reads datagrams until ctx is done or the socket fails.
// It closes the receiver before returning.
func (r *Receiver) Run(ctx context.Context, handle Handler) error {
	stop := context.AfterFunc(ctx, func() {
		r.conn.Close()
	})
	defer func() {
		if stop() {
			r.conn.Close()
		}
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, src, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			return err
		}

		obs := Observation{At: time.Now(), Source: src.String(), Size: n}

		// the status layer references buf, hand out a copy
		payload := append([]byte(nil), buf[:n]...)
		status, err := Decode(payload)
		if err != nil {
			log.Debug("malformed datagram", zap.String("source", obs.Source), zap.Int("size", n), zap.Error(err))
		}
		obs.Status = status

		handle(obs)
	}
}

func (r *Receiver) Close() error {
	return r.conn.Close()
}
