package firefly

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/firefly/src/common"
	"github.com/mosaicnetworks/firefly/src/config"
	"github.com/mosaicnetworks/firefly/src/net"
	"github.com/mosaicnetworks/firefly/src/node/state"
)

func newInmemEngine(t *testing.T, network *net.InmemNetwork, address string) *Firefly {
	conf := config.NewTestConfig(t, common.TestLogLevel)
	conf.Address = address
	conf.BeaconRate = 50
	conf.SlaveTimeout = 300 * time.Millisecond

	_, trans := net.NewInmemTransport(network, "")

	engine := NewFirefly(conf)
	engine.Transport = trans

	if err := engine.Init(); err != nil {
		t.Fatalf("err: %v", err)
	}

	return engine
}

func TestEnginesConverge(t *testing.T) {
	network := net.NewInmemNetwork()

	low := newInmemEngine(t, network, "0000.0000.0000.000A")
	defer low.Shutdown()
	high := newInmemEngine(t, network, "0x14")
	defer high.Shutdown()

	go low.Run()
	go high.Run()

	deadline := time.Now().Add(2 * time.Second)
	for low.Node.GetState() != state.Slave {
		if time.Now().After(deadline) {
			t.Fatalf("low engine should have become a slave, state %v", low.Node.GetState())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if stats := low.Node.GetStats(); stats["sync_master"] != "0000.0000.0000.0014" {
		t.Fatalf("low engine should follow 0x14, got %s", stats["sync_master"])
	}
	if s := high.Node.GetState(); s != state.Master {
		t.Fatalf("high engine should be Master, not %v", s)
	}
}

func TestInitRejectsInvalidConfig(t *testing.T) {
	conf := config.NewTestConfig(t, common.TestLogLevel)
	conf.Address = "not an address"

	if err := NewFirefly(conf).Init(); err == nil {
		t.Fatalf("Init should fail with an invalid address")
	}

	conf = config.NewTestConfig(t, common.TestLogLevel)
	conf.Address = "1"
	conf.Transport = "carrier-pigeon"

	if err := NewFirefly(conf).Init(); err == nil {
		t.Fatalf("Init should fail with an unknown transport")
	}
}

func TestInitBuildsUDPTransport(t *testing.T) {
	conf := config.NewTestConfig(t, common.TestLogLevel)
	conf.Address = "1"
	conf.BindAddr = "127.0.0.1:0"
	conf.BroadcastAddr = "127.0.0.1:7676"

	engine := NewFirefly(conf)
	if err := engine.Init(); err != nil {
		t.Fatalf("err: %v", err)
	}
	defer engine.Shutdown()

	if _, ok := engine.Transport.(*net.UDPTransport); !ok {
		t.Fatalf("expected a UDP transport, got %T", engine.Transport)
	}
	if engine.Service != nil {
		t.Fatalf("test config disables the service")
	}
}
