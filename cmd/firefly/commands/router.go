package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/firefly/src/config"
	"github.com/mosaicnetworks/firefly/src/net"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	routerAddr  = "127.0.0.1:8080"
	routerRealm = config.DefaultWAMPRealm
	routerCert  string
	routerKey   string
	routerLog   = config.DefaultLogLevel
)

// NewRouterCmd produces a RouterCmd which runs a WAMP router relaying beacons
// between nodes that use the WAMP transport.
func NewRouterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "router",
		Short: "Run a WAMP router for the wamp transport",
		RunE:  runRouter,
	}

	AddRouterFlags(cmd)

	return cmd
}

//AddRouterFlags adds flags to the router command
func AddRouterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&routerAddr, "listen", "l", routerAddr, "Listen IP:Port for websockets")
	cmd.Flags().StringVar(&routerRealm, "realm", routerRealm, "WAMP realm")
	cmd.Flags().StringVar(&routerCert, "cert", routerCert, "TLS certificate file")
	cmd.Flags().StringVar(&routerKey, "key", routerKey, "TLS key file")
	cmd.Flags().StringVar(&routerLog, "log", routerLog, "debug, info, warn, error, fatal, panic")
}

// runRouter starts the WAMP router and waits for a SIGINT or SIGTERM
func runRouter(cmd *cobra.Command, args []string) error {
	conf := config.NewDefaultConfig()
	conf.LogLevel = routerLog
	logger := conf.Logger().WithField("component", "router")

	server, err := net.NewWAMPRouter(routerAddr, routerRealm, routerCert, routerKey, logger)
	if err != nil {
		return err
	}

	go server.Run()

	logger.WithFields(logrus.Fields{
		"url":   server.URL(),
		"realm": routerRealm,
	}).Info("Serving WAMP router")

	//Prepare sigCh to relay SIGINT and SIGTERM system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh

	server.Shutdown()

	return nil
}
