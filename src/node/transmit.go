package node

import (
	"github.com/mosaicnetworks/firefly/src/beacon"
	"github.com/mosaicnetworks/firefly/src/net"
)

// transmitLoop opens a sender and runs transmit cycles until shutdown. A
// failed sender is closed and reopened on the next iteration.
func (n *Node) transmitLoop() {
	interval := n.conf.TransmitInterval()

	for !n.shuttingDown() {
		sender, err := n.trans.OpenSender()
		if err != nil {
			n.transportError("transmit", "Opening sender", err)
			n.sleep(interval)
			continue
		}

		err = n.transmit(sender)

		if cerr := sender.Close(); cerr != nil {
			n.transportError("transmit", "Closing sender", cerr)
		}
		if err != nil {
			n.transportError("transmit", "Sending beacon", err)
		}
	}
}

// transmit runs transmit cycles for each successive role until shutdown or
// until a send fails.
func (n *Node) transmit(sender net.Sender) error {
	buf := make([]byte, beacon.Size)

	for !n.shuttingDown() {
		role := n.controller.Role()
		if role == nil {
			n.sleep(n.conf.TransmitInterval())
			continue
		}

		if err := n.transmitAs(role, sender, buf); err != nil {
			return err
		}
	}

	return nil
}

// transmitAs runs transmit cycles on behalf of role until it is halted. Each
// cycle starts one interval after the previous one. A cycle that overruns the
// interval is followed immediately by the next one, without catching up on
// the cycles it missed.
func (n *Node) transmitAs(role Role, sender net.Sender, buf []byte) error {
	interval := n.conf.TransmitInterval()

	for !role.Halted() && !n.shuttingDown() {
		next := n.now().Add(interval)

		if b, ok := role.CreateBeacon(); ok {
			n.codec.EncodeTo(buf, b)

			if err := sender.Send(buf); err != nil {
				return err
			}

			n.beaconSent()
			role.OnTransmitted(b)
		}

		if delay := next.Sub(n.now()) - n.conf.TransmitSlack; delay > 0 {
			n.sleep(delay)
		}
	}

	return nil
}
