package service

import (
	"context"
	"encoding/json"
	"net/http"
	_ "net/http/pprof"
	"sync"

	"github.com/mosaicnetworks/firefly/src/node"
	"github.com/sirupsen/logrus"
)

// Service ...
type Service struct {
	sync.Mutex

	bindAddress string
	node        *node.Node
	mux         *http.ServeMux
	server      *http.Server
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, n *node.Node, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		node:        n,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.server = &http.Server{Addr: bindAddress, Handler: service.mux}

	service.registerHandlers()

	return &service
}

// registerHandlers registers the API handlers with the service's own mux, so
// that several nodes can serve their API from the same process.
func (s *Service) registerHandlers() {
	s.logger.Debug("Registering Firefly API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/status", s.makeHandler(s.GetStatus))
	s.mux.Handle("/metrics", s.node.Metrics().Handler())
	s.mux.Handle("/debug/pprof/", http.DefaultServeMux)
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the mux serving the API.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call that returns when Close
// is called, or immediately if Close was called first.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving Firefly API")

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}

// Close stops the server. Serve does not listen once Close has been called.
func (s *Service) Close() error {
	return s.server.Shutdown(context.Background())
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.node.GetStats()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}

// GetStatus returns the role and synchronised state of the node.
func (s *Service) GetStatus(w http.ResponseWriter, r *http.Request) {
	raw, err := s.node.Status().Marshal()
	if err != nil {
		s.logger.WithError(err).Error("Marshalling status")

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	w.Write(raw)
}
