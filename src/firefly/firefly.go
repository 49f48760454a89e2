// Package firefly assembles a firefly node from a Config: address, transport,
// node and HTTP service.
package firefly

import (
	"fmt"

	"github.com/mosaicnetworks/firefly/src/config"
	"github.com/mosaicnetworks/firefly/src/identity"
	"github.com/mosaicnetworks/firefly/src/net"
	"github.com/mosaicnetworks/firefly/src/node"
	"github.com/mosaicnetworks/firefly/src/service"
	"github.com/sirupsen/logrus"
)

// Firefly is a struct containing the key objects of a firefly node. Transport
// and Display may be set before Init to replace the ones built from the
// Config.
type Firefly struct {
	Config    *config.Config
	Address   identity.Address
	Transport net.Transport
	Display   node.Display
	Node      *node.Node
	Service   *service.Service
}

// NewFirefly ...
func NewFirefly(c *config.Config) *Firefly {
	engine := &Firefly{
		Config: c,
	}

	return engine
}

func (f *Firefly) initAddress() error {
	address, err := f.Config.NodeAddress()
	if err != nil {
		return err
	}

	f.Address = address

	return nil
}

func (f *Firefly) initTransport() error {
	if f.Transport != nil {
		return nil
	}

	logger := f.Config.Logger()

	switch f.Config.Transport {
	case config.UDPTransport:
		transport, err := net.NewUDPTransport(
			f.Config.BindAddr,
			f.Config.BroadcastAddr,
			f.Config.Interface,
			f.Config.Hops,
			logger.WithField("transport", "udp"),
		)
		if err != nil {
			return err
		}
		f.Transport = transport
	case config.WAMPTransport:
		f.Transport = net.NewWAMPTransport(
			f.Config.WAMPAddr,
			f.Config.WAMPRealm,
			f.Config.WAMPTopic,
			f.Config.WAMPTimeout,
			logger.WithField("transport", "wamp"),
		)
	default:
		return fmt.Errorf("unknown transport %q", f.Config.Transport)
	}

	return nil
}

func (f *Firefly) initNode() error {
	f.Config.Logger().WithFields(logrus.Fields{
		"address":   f.Address.String(),
		"transport": f.Config.Transport,
	}).Debug("Creating node")

	f.Node = node.NewNode(
		f.Config,
		f.Address,
		f.Transport,
		f.Display,
	)

	if err := f.Node.Init(); err != nil {
		return fmt.Errorf("failed to initialize node: %s", err)
	}

	return nil
}

func (f *Firefly) initService() error {
	if !f.Config.NoService {
		f.Service = service.NewService(f.Config.ServiceAddr, f.Node, f.Config.Logger())
	}
	return nil
}

// Init initialises the firefly engine
func (f *Firefly) Init() error {
	if err := f.Config.Validate(); err != nil {
		return err
	}

	if err := f.initAddress(); err != nil {
		return err
	}

	if err := f.initTransport(); err != nil {
		return err
	}

	if err := f.initNode(); err != nil {
		return err
	}

	if err := f.initService(); err != nil {
		return err
	}

	return nil
}

// Run starts the service, if any, and the node. It blocks until Shutdown is
// called.
func (f *Firefly) Run() {
	if f.Service != nil {
		go f.Service.Serve()
	}

	f.Node.Run()
}

// Shutdown stops the service and the node.
func (f *Firefly) Shutdown() {
	if f.Service != nil {
		if err := f.Service.Close(); err != nil {
			f.Config.Logger().WithError(err).Error("Closing service")
		}
	}

	f.Node.Shutdown()
}
