package state

import (
	"sync"
	"sync/atomic"
)

// State captures the state of a firefly node: Master, Slave, Paused, or
// Shutdown
type State uint32

const (
	// Master is the state in which a node runs its own oscillator and
	// broadcasts beacons carrying its phase.
	Master State = iota

	// Slave is the state in which a node stays silent and mirrors the phase
	// of the highest-addressed master it hears.
	Slave

	// Paused is the administrative state in which no role is active. The
	// node neither sends nor processes beacons.
	Paused

	// Shutdown is the state in which a node stops its loops and closes its
	// transport.
	Shutdown
)

// WGLIMIT is the maximum number of goroutines that can be launched through
// state.GoFunc
const WGLIMIT = 20

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Master:
		return "Master"
	case Slave:
		return "Slave"
	case Paused:
		return "Paused"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Manager wraps a State with get and set methods. It is also used to limit the
// number of goroutines launched by the node, and to wait for all of them to
// complete.
type Manager struct {
	state   State
	wg      sync.WaitGroup
	wgCount int32
}

// GetState returns the current state.
func (b *Manager) GetState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

// SetState sets the state.
func (b *Manager) SetState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// GoFunc launches a goroutine for a given function, if there are currently
// less than WGLIMIT running. It increments the waitgroup, and reports whether
// the goroutine was launched.
func (b *Manager) GoFunc(f func()) bool {
	tempWgCount := atomic.LoadInt32(&b.wgCount)
	if tempWgCount >= WGLIMIT {
		return false
	}
	b.wg.Add(1)
	atomic.AddInt32(&b.wgCount, 1)
	go func() {
		defer b.wg.Done()
		defer atomic.AddInt32(&b.wgCount, -1)
		f()
	}()
	return true
}

// WaitRoutines waits for all the goroutines in the waitgroup.
func (b *Manager) WaitRoutines() {
	b.wg.Wait()
}
