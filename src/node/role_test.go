package node

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/firefly/src/beacon"
	"github.com/mosaicnetworks/firefly/src/common"
	"github.com/mosaicnetworks/firefly/src/config"
	"github.com/mosaicnetworks/firefly/src/identity"
	"github.com/mosaicnetworks/firefly/src/net"
	"github.com/mosaicnetworks/firefly/src/node/state"
)

type fakeClock struct {
	sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.Lock()
	defer c.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.Lock()
	defer c.Unlock()
	c.now = c.now.Add(d)
}

type recordingDisplay struct {
	sync.Mutex
	roles      []string
	indicators []Indicator
	states     []int32
}

func (d *recordingDisplay) ShowRole(name string, indicator Indicator) {
	d.Lock()
	defer d.Unlock()
	d.roles = append(d.roles, name)
	d.indicators = append(d.indicators, indicator)
}

func (d *recordingDisplay) ShowState(value int32) {
	d.Lock()
	defer d.Unlock()
	d.states = append(d.states, value)
}

func (d *recordingDisplay) lastRole() (string, Indicator) {
	d.Lock()
	defer d.Unlock()
	if len(d.roles) == 0 {
		return "", ""
	}
	return d.roles[len(d.roles)-1], d.indicators[len(d.indicators)-1]
}

// newIdleNode returns an initialised node whose loops are not running, with a
// manual clock, so that roles can be driven directly.
func newIdleNode(t *testing.T, address identity.Address) (*Node, *fakeClock, *recordingDisplay) {
	conf := config.NewTestConfig(t, common.TestLogLevel)
	_, trans := net.NewInmemTransport(net.NewInmemNetwork(), "")

	display := &recordingDisplay{}
	clock := newFakeClock()

	node := NewNode(conf, address, trans, display)
	node.now = clock.Now

	if err := node.Init(); err != nil {
		t.Fatalf("err: %v", err)
	}

	return node, clock, display
}

func activeSlave(t *testing.T, n *Node) *Slave {
	t.Helper()
	s, ok := n.Role().(*Slave)
	if !ok {
		t.Fatalf("expected Slave, got %v", n.Role())
	}
	return s
}

func activeMaster(t *testing.T, n *Node) *Master {
	t.Helper()
	m, ok := n.Role().(*Master)
	if !ok {
		t.Fatalf("expected Master, got %v", n.Role())
	}
	return m
}

func beaconFrom(master identity.Address, st int32) beacon.Beacon {
	return beacon.Beacon{MasterAddress: master, SenderAddress: master, SharedState: st}
}

func TestInitStartsAsMaster(t *testing.T) {
	node, _, display := newIdleNode(t, 10)
	defer node.Shutdown()

	activeMaster(t, node)

	if s := node.GetState(); s != state.Master {
		t.Fatalf("state should be Master, not %v", s)
	}
	if v := node.SharedState(); v != 0 {
		t.Fatalf("shared state should start at 0, not %d", v)
	}
	if name, ind := display.lastRole(); name != "Master" || ind != Orange {
		t.Fatalf("display should show Master/orange, not %s/%s", name, ind)
	}
}

func TestMasterPreemptedByHigherMaster(t *testing.T) {
	node, _, display := newIdleNode(t, 10)
	defer node.Shutdown()

	m := activeMaster(t, node)

	m.Receive(beaconFrom(20, 1))

	s := activeSlave(t, node)
	if s.Master() != 20 {
		t.Fatalf("slave should track 20, not %v", s.Master())
	}
	if !m.Halted() {
		t.Fatalf("pre-empted master should be halted")
	}
	if st := node.GetState(); st != state.Slave {
		t.Fatalf("state should be Slave, not %v", st)
	}
	if name, ind := display.lastRole(); name != "Slave" || ind != Green {
		t.Fatalf("display should show Slave/green, not %s/%s", name, ind)
	}
}

func TestMasterIgnoresLowerAndOwnBeacons(t *testing.T) {
	node, _, _ := newIdleNode(t, 10)
	defer node.Shutdown()

	m := activeMaster(t, node)

	m.Receive(beaconFrom(5, 1))
	m.Receive(beaconFrom(10, 1))

	if node.Role() != Role(m) {
		t.Fatalf("master should not have been replaced, got %v", node.Role())
	}
}

func TestMasterOnTransmittedWritesSharedState(t *testing.T) {
	node, _, display := newIdleNode(t, 10)
	defer node.Shutdown()

	m := activeMaster(t, node)

	b, ok := m.CreateBeacon()
	if !ok {
		t.Fatalf("master should always create a beacon")
	}
	if b.MasterAddress != 10 || b.SenderAddress != 10 {
		t.Fatalf("beacon should carry the node address, got %v", b)
	}

	m.OnTransmitted(beaconFrom(10, 1))

	if v := node.SharedState(); v != 1 {
		t.Fatalf("shared state should be 1, not %d", v)
	}
	display.Lock()
	defer display.Unlock()
	if len(display.states) != 1 || display.states[0] != 1 {
		t.Fatalf("display should have shown [1], not %v", display.states)
	}
}

func TestSlaveArbitrationIsMonotonic(t *testing.T) {
	node, _, _ := newIdleNode(t, 10)
	defer node.Shutdown()

	activeMaster(t, node).Receive(beaconFrom(20, 0))
	activeSlave(t, node).Receive(beaconFrom(30, 0))

	s := activeSlave(t, node)
	if s.Master() != 30 {
		t.Fatalf("slave should have retargeted to 30, not %v", s.Master())
	}

	s.Receive(beaconFrom(25, 1))
	s.Receive(beaconFrom(20, 1))

	if node.Role() != Role(s) {
		t.Fatalf("lower masters should be ignored, got %v", node.Role())
	}
	if v := node.SharedState(); v != 0 {
		t.Fatalf("lower masters should not write the shared state, got %d", v)
	}

	s.Receive(beaconFrom(30, 1))
	if v := node.SharedState(); v != 1 {
		t.Fatalf("shared state should follow the tracked master, got %d", v)
	}
}

func TestSlaveNeverTransmits(t *testing.T) {
	node, _, _ := newIdleNode(t, 10)
	defer node.Shutdown()

	activeMaster(t, node).Receive(beaconFrom(20, 0))

	if _, ok := activeSlave(t, node).CreateBeacon(); ok {
		t.Fatalf("slave should not create beacons")
	}
}

func TestSlaveTimeout(t *testing.T) {
	node, clock, _ := newIdleNode(t, 10)
	defer node.Shutdown()

	activeMaster(t, node).Receive(beaconFrom(20, 0))
	s := activeSlave(t, node)

	timeout := node.conf.SlaveTimeout

	clock.Advance(timeout / 2)
	s.Receive(beaconFrom(20, 1))

	clock.Advance(timeout - time.Millisecond)
	s.OnReceiveTimeout()
	if node.Role() != Role(s) {
		t.Fatalf("a beacon from the master should reset the timeout")
	}

	clock.Advance(2 * time.Millisecond)
	s.OnReceiveTimeout()

	activeMaster(t, node)
	if !s.Halted() {
		t.Fatalf("timed out slave should be halted")
	}
	if st := node.GetState(); st != state.Master {
		t.Fatalf("state should be Master, not %v", st)
	}
}

func TestSlavePromotesOnForeignTraffic(t *testing.T) {
	node, clock, _ := newIdleNode(t, 10)
	defer node.Shutdown()

	activeMaster(t, node).Receive(beaconFrom(30, 0))
	s := activeSlave(t, node)

	clock.Advance(node.conf.SlaveTimeout / 2)
	s.Receive(beaconFrom(5, 1))
	if node.Role() != Role(s) {
		t.Fatalf("a lower master should not end the slave before the timeout")
	}

	clock.Advance(node.conf.SlaveTimeout)
	s.Receive(beaconFrom(5, 1))

	activeMaster(t, node)
	if v := node.SharedState(); v != 0 {
		t.Fatalf("a lower master should not write the shared state, got %d", v)
	}
}

func TestMalformedDatagramEndsSilentSlave(t *testing.T) {
	node, clock, _ := newIdleNode(t, 10)
	defer node.Shutdown()

	activeMaster(t, node).Receive(beaconFrom(30, 0))
	activeSlave(t, node)

	clock.Advance(node.conf.SlaveTimeout + time.Millisecond)
	node.handleDatagram([]byte{0x57, 0x00, 0x00, 0x00})

	activeMaster(t, node)
	if n := node.GetStats()["receive_timeouts"]; n != "0" {
		t.Fatalf("a malformed datagram should not count as a timeout, got %s", n)
	}
}

func TestSlavePromotesExactlyOnce(t *testing.T) {
	node, clock, _ := newIdleNode(t, 10)
	defer node.Shutdown()

	activeMaster(t, node).Receive(beaconFrom(20, 0))
	s := activeSlave(t, node)

	clock.Advance(node.conf.SlaveTimeout + time.Millisecond)

	s.OnReceiveTimeout()
	m := activeMaster(t, node)
	changes := node.GetStats()["role_changes"]

	s.OnReceiveTimeout()
	s.Receive(beaconFrom(30, 0))

	if node.Role() != Role(m) {
		t.Fatalf("a halted slave should not replace the active role")
	}
	if c := node.GetStats()["role_changes"]; c != changes {
		t.Fatalf("role changes should stay at %s, not %s", changes, c)
	}
}

func TestHaltedMasterIgnoresEvents(t *testing.T) {
	node, _, _ := newIdleNode(t, 10)
	defer node.Shutdown()

	m := activeMaster(t, node)
	m.Receive(beaconFrom(20, 0))
	s := activeSlave(t, node)

	m.Receive(beaconFrom(40, 0))
	m.OnTransmitted(beaconFrom(10, 1))

	if node.Role() != Role(s) {
		t.Fatalf("a halted master should not replace the active role")
	}
	if v := node.SharedState(); v != 0 {
		t.Fatalf("a halted master should not write the shared state, got %d", v)
	}
}

func TestPauseResume(t *testing.T) {
	node, _, display := newIdleNode(t, 10)
	defer node.Shutdown()

	m := activeMaster(t, node)

	node.Pause()

	if node.Role() != nil {
		t.Fatalf("paused node should have no role, got %v", node.Role())
	}
	if !m.Halted() {
		t.Fatalf("pausing should halt the active role")
	}
	if st := node.GetState(); st != state.Paused {
		t.Fatalf("state should be Paused, not %v", st)
	}
	if name, ind := display.lastRole(); name != "" || ind != Red {
		t.Fatalf("display should show red, not %s/%s", name, ind)
	}

	node.Resume()

	if activeMaster(t, node) == m {
		t.Fatalf("resume should install a fresh master")
	}
	if st := node.GetState(); st != state.Master {
		t.Fatalf("state should be Master, not %v", st)
	}
}

func TestNoRoleChangeAfterShutdown(t *testing.T) {
	node, _, _ := newIdleNode(t, 10)

	m := activeMaster(t, node)

	node.Shutdown()

	if !m.Halted() {
		t.Fatalf("shutdown should halt the active role")
	}

	m.Receive(beaconFrom(20, 0))
	node.Resume()

	if node.Role() != Role(m) {
		t.Fatalf("role should not change after shutdown, got %v", node.Role())
	}
	if st := node.GetState(); st != state.Shutdown {
		t.Fatalf("state should be Shutdown, not %v", st)
	}
}

func TestStatus(t *testing.T) {
	node, _, _ := newIdleNode(t, 10)
	defer node.Shutdown()

	status := node.Status()
	if status.Role != "Master" || status.Indicator != Orange || status.Phase == nil {
		t.Fatalf("unexpected master status %+v", status)
	}

	activeMaster(t, node).Receive(beaconFrom(20, 0))

	status = node.Status()
	if status.Role != "Slave" || status.SyncMaster != identity.Address(20).String() {
		t.Fatalf("unexpected slave status %+v", status)
	}
	if status.Phase != nil {
		t.Fatalf("slave status should have no phase")
	}

	raw, err := status.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !strings.Contains(string(raw), `"sync_master":"0000.0000.0000.0014"`) {
		t.Fatalf("unexpected status JSON %s", raw)
	}
	if strings.Contains(string(raw), `"phase"`) {
		t.Fatalf("status JSON should omit the phase of a slave: %s", raw)
	}

	var decoded Status
	if err := decoded.Unmarshal(raw); err != nil {
		t.Fatalf("err: %v", err)
	}
	if decoded.Address != status.Address || decoded.LastReceived != status.LastReceived {
		t.Fatalf("decoded status %+v does not match %+v", decoded, status)
	}
}

func TestHaltedMasterIsSilent(t *testing.T) {
	node, _, _ := newIdleNode(t, 10)
	defer node.Shutdown()

	m := activeMaster(t, node)
	node.Pause()

	if _, ok := m.CreateBeacon(); ok {
		t.Fatalf("a halted master should not create beacons")
	}
}
