package node

import (
	"sync/atomic"

	"github.com/mosaicnetworks/firefly/src/beacon"
	"github.com/mosaicnetworks/firefly/src/node/state"
	"github.com/sirupsen/logrus"
)

// Indicator is the colour of the status light shown for a role.
type Indicator string

// Role indicators
const (
	Orange Indicator = "orange"
	Green  Indicator = "green"
	Red    Indicator = "red"
)

// Role is the behaviour of a node in the synchronisation protocol. There are
// exactly two implementations, Master and Slave, and exactly one of them is
// active at any time (see Controller).
//
// The handlers are called from the node's loops. Once a role is halted its
// handlers do nothing, so a loop that raced with a role change cannot act on
// behalf of a stale role.
type Role interface {
	// Name is Master or Slave.
	Name() string

	// State is the node state corresponding to the role.
	State() state.State

	// Indicator is the status colour shown by the display.
	Indicator() Indicator

	// CreateBeacon returns the beacon to broadcast in this transmit cycle,
	// if any.
	CreateBeacon() (beacon.Beacon, bool)

	// OnTransmitted is called after a beacon was broadcast.
	OnTransmitted(b beacon.Beacon)

	// Receive handles a beacon heard on the channel.
	Receive(b beacon.Beacon)

	// OnReceiveTimeout is called when a receive cycle ended without a
	// datagram.
	OnReceiveTimeout()

	// Fields describe the role for logging.
	Fields() logrus.Fields

	start()
	Halt()
	Halted() bool
}

// roleBase holds what every role shares: the node it acts for and the
// cooperative halt flag.
type roleBase struct {
	node   *Node
	halted int32
}

// Halt asks the role to stop. Loops observe the flag on their next
// iteration.
func (r *roleBase) Halt() {
	atomic.StoreInt32(&r.halted, 1)
}

// Halted reports whether Halt was called.
func (r *roleBase) Halted() bool {
	return atomic.LoadInt32(&r.halted) == 1
}

func (r *roleBase) fields(name string) logrus.Fields {
	return logrus.Fields{
		"role":      name,
		"beacons/s": r.node.conf.BeaconRate,
	}
}
