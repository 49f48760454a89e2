package node

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/firefly/src/beacon"
	"github.com/mosaicnetworks/firefly/src/config"
	"github.com/mosaicnetworks/firefly/src/identity"
	"github.com/mosaicnetworks/firefly/src/net"
	"github.com/mosaicnetworks/firefly/src/node/state"
	"github.com/mosaicnetworks/firefly/src/telemetry"
	"github.com/mosaicnetworks/firefly/src/version"
	"github.com/sirupsen/logrus"
)

// roleNames are the values of the role label in metrics. Paused is the
// absence of a role.
var roleNames = []string{"Master", "Slave", "Paused"}

// Node runs the synchronisation protocol on top of a Transport. It owns a
// transmit loop and a receive loop, both of which act on behalf of whatever
// role is active in the Controller.
type Node struct {
	// The node's state is Master, Slave, Paused, or Shutdown, following the
	// active role.
	state state.Manager

	conf   *config.Config
	logger *logrus.Entry

	address identity.Address
	codec   *beacon.Codec
	trans   net.Transport

	controller *Controller
	metrics    *telemetry.Metrics

	// now is the clock used for timeouts.
	now func() time.Time

	start        time.Time
	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	beaconsSent        uint64
	beaconsReceived    uint64
	malformedDatagrams uint64
	receiveTimeouts    uint64
	transportErrors    uint64
	roleChanges        uint64
}

// NewNode is a factory method that returns a Node instance. A nil display
// logs role changes and blinks instead of showing them.
func NewNode(conf *config.Config,
	address identity.Address,
	trans net.Transport,
	display Display,
) *Node {
	logger := conf.Logger().WithField("address", address.String())

	if display == nil {
		display = NewLogDisplay(logger)
	}

	node := &Node{
		conf:       conf,
		logger:     logger,
		address:    address,
		codec:      beacon.NewCodec(conf.Magic),
		trans:      trans,
		controller: NewController(display, logger),
		metrics:    telemetry.NewMetrics(),
		now:        time.Now,
		start:      time.Now(),
		shutdownCh: make(chan struct{}),
	}

	node.metrics.SetBuildInfo(version.Version)
	node.controller.onChange = node.onRoleChange
	node.controller.onState = func(v int32) {
		node.metrics.SharedState.Set(float64(v))
	}

	return node
}

// Init resets the shared state and installs a Master role, the initial role of
// every node.
func (n *Node) Init() error {
	n.logger.WithFields(logrus.Fields{
		"beacons/s":         n.conf.BeaconRate,
		"transmit_interval": n.conf.TransmitInterval(),
		"receive_timeout":   n.conf.ReceiveTimeout(),
		"slave_timeout":     n.conf.SlaveTimeout,
		"blink":             n.conf.BlinkInterval,
	}).Debug("Init Node")

	n.controller.reset()
	n.setRole(newMaster(n))

	return nil
}

// Run starts the transmit and receive loops and blocks until Shutdown is
// called.
func (n *Node) Run() {
	if n.shuttingDown() {
		return
	}

	n.state.GoFunc(n.transmitLoop)
	n.state.GoFunc(n.receiveLoop)

	<-n.shutdownCh
}

// RunAsync runs the node in a separate goroutine.
func (n *Node) RunAsync() {
	n.logger.Debug("RunAsync")
	go n.Run()
}

// Shutdown halts the active role, closes the transport and waits for the
// loops to return. It is safe to call Shutdown several times.
func (n *Node) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.logger.Debug("Shutdown")

		n.state.SetState(state.Shutdown)
		close(n.shutdownCh)

		n.controller.Halt()

		if err := n.trans.Close(); err != nil {
			n.logger.WithError(err).Error("Closing transport")
		}

		n.state.WaitRoutines()
	})
}

// Pause halts the active role without replacing it. Both loops idle until
// Resume is called.
func (n *Node) Pause() {
	n.setRole(nil)
}

// Resume installs a fresh Master role if the node is paused.
func (n *Node) Resume() {
	if n.controller.Role() == nil {
		n.setRole(newMaster(n))
	}
}

// setRole replaces the active role, unless the node is shutting down.
func (n *Node) setRole(r Role) {
	if n.shuttingDown() {
		return
	}
	n.controller.SetRole(r)
}

func (n *Node) onRoleChange(old, next Role) {
	atomic.AddUint64(&n.roleChanges, 1)

	name, st := "Paused", state.Paused
	if next != nil {
		name, st = next.Name(), next.State()
	}

	if n.state.GetState() != state.Shutdown {
		n.state.SetState(st)
	}

	n.metrics.RoleChanges.WithLabelValues(name).Inc()
	n.metrics.SetRole(name, roleNames)
}

func (n *Node) shuttingDown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// sleep waits for d or for shutdown, whichever comes first. It returns false
// on shutdown.
func (n *Node) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-n.shutdownCh:
		return false
	}
}

// GetState returns the state of the node.
func (n *Node) GetState() state.State {
	return n.state.GetState()
}

// Address returns the address of the node.
func (n *Node) Address() identity.Address {
	return n.address
}

// Role returns the active role, or nil when the node is paused.
func (n *Node) Role() Role {
	return n.controller.Role()
}

// SharedState returns the synchronised value shown by the node.
func (n *Node) SharedState() int32 {
	return n.controller.SharedState()
}

// Metrics returns the collectors of the node.
func (n *Node) Metrics() *telemetry.Metrics {
	return n.metrics
}

// GetStats returns stats
func (n *Node) GetStats() map[string]string {
	timeElapsed := time.Since(n.start)

	sent := atomic.LoadUint64(&n.beaconsSent)

	var sentPerSecond float64
	if timeElapsed > 0 {
		sentPerSecond = float64(sent) / timeElapsed.Seconds()
	}

	role := "Paused"
	syncMaster := ""
	switch r := n.controller.Role().(type) {
	case *Master:
		role = r.Name()
		syncMaster = n.address.String()
	case *Slave:
		role = r.Name()
		syncMaster = r.Master().String()
	}

	s := map[string]string{
		"address":             n.address.String(),
		"state":               n.GetState().String(),
		"role":                role,
		"sync_master":         syncMaster,
		"shared_state":        strconv.Itoa(int(n.SharedState())),
		"beacon_rate":         strconv.Itoa(n.conf.BeaconRate),
		"beacons_sent":        strconv.FormatUint(sent, 10),
		"beacons_received":    strconv.FormatUint(atomic.LoadUint64(&n.beaconsReceived), 10),
		"beacons_per_second":  strconv.FormatFloat(sentPerSecond, 'f', 2, 64),
		"malformed_datagrams": strconv.FormatUint(atomic.LoadUint64(&n.malformedDatagrams), 10),
		"receive_timeouts":    strconv.FormatUint(atomic.LoadUint64(&n.receiveTimeouts), 10),
		"transport_errors":    strconv.FormatUint(atomic.LoadUint64(&n.transportErrors), 10),
		"role_changes":        strconv.FormatUint(atomic.LoadUint64(&n.roleChanges), 10),
		"time_elapsed":        strconv.FormatFloat(timeElapsed.Seconds(), 'f', 2, 64),
	}
	return s
}

// PrintInfo logs the role and the counters of the node.
func (n *Node) PrintInfo() {
	stats := n.GetStats()

	n.logger.WithFields(logrus.Fields{
		"role":                stats["role"],
		"state":               stats["state"],
		"sync_master":         stats["sync_master"],
		"shared_state":        stats["shared_state"],
		"beacons/s":           stats["beacon_rate"],
		"beacons_sent":        stats["beacons_sent"],
		"beacons_received":    stats["beacons_received"],
		"malformed_datagrams": stats["malformed_datagrams"],
		"receive_timeouts":    stats["receive_timeouts"],
		"transport_errors":    stats["transport_errors"],
		"role_changes":        stats["role_changes"],
		"timeout":             n.conf.SlaveTimeout,
	}).Info("Node info")
}
