package net

import (
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

// UDPTransport implements the Transport interface with IPv4 UDP datagrams sent
// to a broadcast or multicast address.
type UDPTransport struct {
	bindAddr  string
	target    *net.UDPAddr
	iface     *net.Interface
	hops      int
	logger    *logrus.Entry
	multicast bool
}

// NewUDPTransport returns a UDPTransport that listens on bindAddr and sends to
// broadcastAddr. ifaceName optionally selects the interface used for
// multicast; hops is the IP TTL of outgoing datagrams.
func NewUDPTransport(
	bindAddr string,
	broadcastAddr string,
	ifaceName string,
	hops int,
	logger *logrus.Entry,
) (*UDPTransport, error) {

	target, err := net.ResolveUDPAddr("udp4", broadcastAddr)
	if err != nil {
		return nil, err
	}
	if target.IP == nil || target.IP.To4() == nil {
		return nil, fmt.Errorf("broadcast address %q is not an IPv4 address", broadcastAddr)
	}

	var iface *net.Interface
	if ifaceName != "" {
		if iface, err = net.InterfaceByName(ifaceName); err != nil {
			return nil, err
		}
	}

	if hops <= 0 {
		hops = 1
	}

	return &UDPTransport{
		bindAddr:  bindAddr,
		target:    target,
		iface:     iface,
		hops:      hops,
		logger:    logger,
		multicast: target.IP.IsMulticast(),
	}, nil
}

// Target returns the address beacons are sent to.
func (u *UDPTransport) Target() *net.UDPAddr {
	return u.target
}

// OpenSender implements the Transport interface.
func (u *UDPTransport) OpenSender() (Sender, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, err
	}

	p := ipv4.NewPacketConn(conn)

	if u.multicast {
		if u.iface != nil {
			if err := p.SetMulticastInterface(u.iface); err != nil {
				p.Close()
				return nil, err
			}
		}
		if err := p.SetMulticastTTL(u.hops); err != nil {
			p.Close()
			return nil, err
		}
		if err := p.SetMulticastLoopback(true); err != nil {
			p.Close()
			return nil, err
		}
	} else if err := p.SetTTL(u.hops); err != nil {
		p.Close()
		return nil, err
	}

	u.logger.WithFields(logrus.Fields{
		"target": u.target.String(),
		"hops":   u.hops,
	}).Debug("Opened UDP sender")

	return &udpSender{conn: p, target: u.target}, nil
}

// OpenReceiver implements the Transport interface.
func (u *UDPTransport) OpenReceiver() (Receiver, error) {
	conn, err := net.ListenPacket("udp4", u.bindAddr)
	if err != nil {
		return nil, err
	}

	p := ipv4.NewPacketConn(conn)

	if u.multicast {
		if err := p.JoinGroup(u.iface, &net.UDPAddr{IP: u.target.IP}); err != nil {
			p.Close()
			return nil, err
		}
	}

	u.logger.WithField("bind", conn.LocalAddr().String()).Debug("Opened UDP receiver")

	return &UDPReceiver{conn: p, local: conn.LocalAddr()}, nil
}

// Close implements the Transport interface. Senders and receivers own their
// sockets, so there is nothing to release here.
func (u *UDPTransport) Close() error {
	return nil
}

type udpSender struct {
	conn   *ipv4.PacketConn
	target *net.UDPAddr
}

func (s *udpSender) Send(data []byte) error {
	_, err := s.conn.WriteTo(data, nil, s.target)
	return err
}

func (s *udpSender) Close() error {
	return s.conn.Close()
}

// UDPReceiver is the receiving side of a UDPTransport.
type UDPReceiver struct {
	conn  *ipv4.PacketConn
	local net.Addr
}

// Addr returns the local address the receiver is bound to.
func (r *UDPReceiver) Addr() net.Addr {
	return r.local
}

// Receive implements the Receiver interface.
func (r *UDPReceiver) Receive(buf []byte, timeout time.Duration) (int, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	n, _, _, err := r.conn.ReadFrom(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, ErrTimeout
		}
		return 0, err
	}
	return n, nil
}

// Close implements the Receiver interface.
func (r *UDPReceiver) Close() error {
	return r.conn.Close()
}
