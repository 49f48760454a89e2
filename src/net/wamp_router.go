package net

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	"github.com/gammazero/nexus/v3/router"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/sirupsen/logrus"
)

// WAMPRouter is a WAMP router served over websockets. It relays beacons
// between the nodes using the WAMP transport when no broadcast domain is
// available.
type WAMPRouter struct {
	address    string
	router     router.Router
	httpServer *http.Server
	listener   net.Listener
	tls        bool
	logger     *logrus.Entry
}

// NewWAMPRouter instantiates a router that accepts anonymous sessions on realm.
// Websockets are served over TLS when certFile and keyFile are both set.
func NewWAMPRouter(address string,
	realm string,
	certFile string,
	keyFile string,
	logger *logrus.Entry) (*WAMPRouter, error) {

	routerConfig := &router.Config{
		RealmConfigs: []*router.RealmConfig{
			{
				URI:           wamp.URI(realm),
				AnonymousAuth: true,
			},
		},
	}

	nxr, err := router.NewRouter(routerConfig, logger)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Handler: router.NewWebsocketServer(nxr),
		Addr:    address,
	}

	useTLS := certFile != "" && keyFile != ""
	if useTLS {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			nxr.Close()
			return nil, fmt.Errorf("error loading X509 key pair: %s", err)
		}
		httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		nxr.Close()
		return nil, err
	}

	res := &WAMPRouter{
		address:    listener.Addr().String(),
		router:     nxr,
		httpServer: httpServer,
		listener:   listener,
		tls:        useTLS,
		logger:     logger,
	}

	return res, nil
}

// Run serves websockets until Shutdown is called.
func (r *WAMPRouter) Run() error {
	var err error
	if r.tls {
		// the certificates are already in the TLSConfig
		err = r.httpServer.ServeTLS(r.listener, "", "")
	} else {
		err = r.httpServer.Serve(r.listener)
	}
	if err != nil && err != http.ErrServerClosed {
		r.logger.WithError(err).Error("Run")
		return err
	}
	return nil
}

// Shutdown stops the websocket server, and the wamp router
func (r *WAMPRouter) Shutdown() {
	defer r.router.Close()

	if err := r.httpServer.Shutdown(context.Background()); err != nil {
		r.logger.WithError(err).Error("Shutting down http server")
	}
}

// Addr returns the address the router listens on.
func (r *WAMPRouter) Addr() string {
	return r.address
}

// URL returns the websocket URL clients connect to.
func (r *WAMPRouter) URL() string {
	if r.tls {
		return "wss://" + r.address + "/ws"
	}
	return "ws://" + r.address + "/ws"
}

// Router returns the underlying router, for in-process sessions.
func (r *WAMPRouter) Router() router.Router {
	return r.router
}
