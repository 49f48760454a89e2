package node

import (
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/firefly/src/beacon"
	"github.com/mosaicnetworks/firefly/src/identity"
	"github.com/mosaicnetworks/firefly/src/node/state"
	"github.com/sirupsen/logrus"
)

// Slave mirrors the phase broadcast by the master it tracks. It never
// transmits, retargets to any higher master it hears, and elects itself
// master when its master goes silent for longer than the slave timeout.
type Slave struct {
	roleBase

	master       identity.Address
	lastReceived int64 // unix nanoseconds
}

func newSlave(n *Node, master identity.Address) *Slave {
	return &Slave{
		roleBase:     roleBase{node: n},
		master:       master,
		lastReceived: n.now().UnixNano(),
	}
}

// Name implements the Role interface.
func (s *Slave) Name() string {
	return "Slave"
}

// State implements the Role interface.
func (s *Slave) State() state.State {
	return state.Slave
}

// Indicator implements the Role interface.
func (s *Slave) Indicator() Indicator {
	return Green
}

// Master returns the address of the tracked master.
func (s *Slave) Master() identity.Address {
	return s.master
}

// LastReceived returns the time of the last accepted beacon, or the creation
// time of the role if none was accepted yet.
func (s *Slave) LastReceived() time.Time {
	return time.Unix(0, atomic.LoadInt64(&s.lastReceived))
}

// CreateBeacon implements the Role interface. Slaves are silent.
func (s *Slave) CreateBeacon() (beacon.Beacon, bool) {
	return beacon.Beacon{}, false
}

// OnTransmitted implements the Role interface.
func (s *Slave) OnTransmitted(b beacon.Beacon) {}

// Receive implements the Role interface.
func (s *Slave) Receive(b beacon.Beacon) {
	if s.Halted() {
		return
	}
	switch {
	case b.MasterAddress > s.master:
		s.node.logger.WithFields(logrus.Fields{
			"from": s.master.String(),
			"to":   b.MasterAddress.String(),
		}).Debug("Retargeting to higher master")
		s.node.setRole(newSlave(s.node, b.MasterAddress))
	case b.MasterAddress == s.master:
		s.node.controller.setSharedState(b.SharedState)
		atomic.StoreInt64(&s.lastReceived, s.node.now().UnixNano())
	default:
		s.checkSilence()
	}
}

// OnReceiveTimeout implements the Role interface.
func (s *Slave) OnReceiveTimeout() {
	if s.Halted() {
		return
	}
	s.checkSilence()
}

// checkSilence elects the node master once its master has been silent for
// longer than the slave timeout. Traffic that is not from the tracked master
// does not count.
func (s *Slave) checkSilence() {
	if s.node.now().Sub(s.LastReceived()) > s.node.conf.SlaveTimeout {
		s.node.logger.WithField("master", s.master.String()).Info("Master silent, taking over")
		s.node.setRole(newMaster(s.node))
	}
}

// Fields implements the Role interface.
func (s *Slave) Fields() logrus.Fields {
	f := s.fields(s.Name())
	f["sync_master"] = s.master.String()
	f["timeout"] = s.node.conf.SlaveTimeout
	return f
}

func (s *Slave) start() {}

// String ...
func (s *Slave) String() string {
	return "Slave(" + s.master.String() + ")"
}
