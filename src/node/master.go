package node

import (
	"sync/atomic"

	"github.com/mosaicnetworks/firefly/src/beacon"
	"github.com/mosaicnetworks/firefly/src/node/state"
	"github.com/sirupsen/logrus"
)

// Master runs its own oscillator and broadcasts its phase. It yields to any
// master with a higher address.
type Master struct {
	roleBase

	phase      int32
	oscillator *Oscillator
}

func newMaster(n *Node) *Master {
	m := &Master{
		roleBase: roleBase{node: n},
	}
	m.oscillator = NewOscillator(n.conf.BlinkInterval, m.toggle)
	return m
}

// Name implements the Role interface.
func (m *Master) Name() string {
	return "Master"
}

// State implements the Role interface.
func (m *Master) State() state.State {
	return state.Master
}

// Indicator implements the Role interface.
func (m *Master) Indicator() Indicator {
	return Orange
}

// Phase returns the current value of the oscillator, 0 or 1.
func (m *Master) Phase() int32 {
	return atomic.LoadInt32(&m.phase)
}

func (m *Master) toggle() {
	for {
		p := atomic.LoadInt32(&m.phase)
		if atomic.CompareAndSwapInt32(&m.phase, p, 1-p) {
			return
		}
	}
}

// CreateBeacon implements the Role interface. A master always has something to
// say until it is halted.
func (m *Master) CreateBeacon() (beacon.Beacon, bool) {
	if m.Halted() {
		return beacon.Beacon{}, false
	}
	return beacon.Beacon{
		MasterAddress: m.node.address,
		SenderAddress: m.node.address,
		SharedState:   m.Phase(),
	}, true
}

// OnTransmitted implements the Role interface. The master shows the phase it
// just broadcast, so that it blinks in step with its slaves.
func (m *Master) OnTransmitted(b beacon.Beacon) {
	if m.Halted() {
		return
	}
	m.node.controller.setSharedState(b.SharedState)
}

// Receive implements the Role interface.
func (m *Master) Receive(b beacon.Beacon) {
	if m.Halted() {
		return
	}
	// an equal address is our own echo
	if b.MasterAddress > m.node.address {
		m.node.logger.WithField("master", b.MasterAddress.String()).Debug("Pre-empted by higher master")
		m.node.setRole(newSlave(m.node, b.MasterAddress))
	}
}

// OnReceiveTimeout implements the Role interface. Silence does not concern a
// master.
func (m *Master) OnReceiveTimeout() {}

// Fields implements the Role interface.
func (m *Master) Fields() logrus.Fields {
	f := m.fields(m.Name())
	f["blink"] = m.node.conf.BlinkInterval
	return f
}

func (m *Master) start() {
	go m.oscillator.Run()
}

// Halt stops the oscillator along with the role.
func (m *Master) Halt() {
	m.roleBase.Halt()
	m.oscillator.Stop()
}

// String ...
func (m *Master) String() string {
	return "Master(" + m.node.address.String() + ")"
}
