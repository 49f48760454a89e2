package node

import (
	"sync/atomic"

	"github.com/mosaicnetworks/firefly/src/beacon"
	"github.com/mosaicnetworks/firefly/src/config"
	"github.com/mosaicnetworks/firefly/src/net"
	"github.com/sirupsen/logrus"
)

// receiveLoop opens a receiver and runs receive cycles until shutdown. A
// failed receiver is closed and reopened on the next iteration.
func (n *Node) receiveLoop() {
	for !n.shuttingDown() {
		receiver, err := n.trans.OpenReceiver()
		if err != nil {
			n.transportError("receive", "Opening receiver", err)
			n.sleep(n.conf.TransmitInterval())
			continue
		}

		err = n.receive(receiver)

		if cerr := receiver.Close(); cerr != nil {
			n.transportError("receive", "Closing receiver", cerr)
		}
		if err != nil {
			n.transportError("receive", "Receiving beacon", err)
		}
	}
}

// receive runs receive cycles until shutdown or until the receiver fails.
// Each cycle waits for at most one receive timeout and hands the result to
// the role that is active when the wait ends.
func (n *Node) receive(receiver net.Receiver) error {
	timeout := n.conf.ReceiveTimeout()
	buf := make([]byte, config.DefaultMaxDatagramLen)

	for !n.shuttingDown() {
		if n.controller.Role() == nil {
			n.sleep(timeout)
			continue
		}

		size, err := receiver.Receive(buf, timeout)

		if n.shuttingDown() {
			return nil
		}

		switch {
		case err == nil:
			n.handleDatagram(buf[:size])
		case net.IsTimeout(err):
			n.handleTimeout()
		default:
			return err
		}
	}

	return nil
}

func (n *Node) handleDatagram(data []byte) {
	b, err := n.codec.DecodeStrict(data)
	if err != nil {
		atomic.AddUint64(&n.malformedDatagrams, 1)
		n.metrics.DatagramsDropped.WithLabelValues(dropReason(err)).Inc()
		n.logger.WithError(err).WithField("size", len(data)).Debug("Discarding datagram")
		n.checkSilence()
		return
	}

	atomic.AddUint64(&n.beaconsReceived, 1)
	n.metrics.BeaconsReceived.Inc()

	if role := n.controller.Role(); role != nil {
		role.Receive(b)
	}
}

func (n *Node) handleTimeout() {
	atomic.AddUint64(&n.receiveTimeouts, 1)
	n.metrics.ReceiveTimeouts.Inc()

	n.checkSilence()
}

// checkSilence gives the active role the same chance to act on a discarded
// datagram as on a receive timeout, without counting a timeout.
func (n *Node) checkSilence() {
	if role := n.controller.Role(); role != nil {
		role.OnReceiveTimeout()
	}
}

func (n *Node) beaconSent() {
	atomic.AddUint64(&n.beaconsSent, 1)
	n.metrics.BeaconsSent.Inc()
}

// transportError counts and logs a failure of the transport. Failures caused
// by the transport being closed on shutdown are not reported.
func (n *Node) transportError(loop, msg string, err error) {
	if n.shuttingDown() {
		return
	}

	atomic.AddUint64(&n.transportErrors, 1)
	n.metrics.TransportErrors.WithLabelValues(loop).Inc()

	n.logger.WithFields(logrus.Fields{
		"loop":  loop,
		"error": err,
	}).Warn(msg)
}

func dropReason(err error) string {
	switch err {
	case beacon.ErrBadMagic:
		return "bad_magic"
	case beacon.ErrShortPacket:
		return "short"
	default:
		return "other"
	}
}
