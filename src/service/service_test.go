package service

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/firefly/src/common"
	"github.com/mosaicnetworks/firefly/src/config"
	"github.com/mosaicnetworks/firefly/src/net"
	"github.com/mosaicnetworks/firefly/src/node"
)

func newTestService(t *testing.T) (*Service, *node.Node) {
	conf := config.NewTestConfig(t, common.TestLogLevel)
	_, trans := net.NewInmemTransport(net.NewInmemNetwork(), "")

	n := node.NewNode(conf, 0x0014, trans, nil)
	if err := n.Init(); err != nil {
		t.Fatalf("err: %v", err)
	}

	s := NewService("127.0.0.1:0", n, common.NewTestEntry(t, common.TestLogLevel))

	return s, n
}

func get(t *testing.T, s *Service, path string) (*http.Response, string) {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	res := rec.Result()
	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	return res, string(body)
}

func TestGetStats(t *testing.T) {
	s, n := newTestService(t)
	defer n.Shutdown()

	res, body := get(t, s, "/stats")

	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if origin := res.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Fatalf("CORS header should be set, got %q", origin)
	}

	var stats map[string]string
	if err := json.Unmarshal([]byte(body), &stats); err != nil {
		t.Fatalf("err: %v", err)
	}
	if stats["role"] != "Master" || stats["address"] != "0000.0000.0000.0014" {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestGetStatus(t *testing.T) {
	s, n := newTestService(t)
	defer n.Shutdown()

	res, body := get(t, s, "/status")

	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var status node.Status
	if err := status.Unmarshal([]byte(body)); err != nil {
		t.Fatalf("err: %v", err)
	}
	if status.Role != "Master" || status.Indicator != node.Orange {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestGetMetrics(t *testing.T) {
	s, n := newTestService(t)
	defer n.Shutdown()

	_, body := get(t, s, "/metrics")

	for _, metric := range []string{
		"firefly_role_changes_total",
		"firefly_build_info",
		"firefly_role{",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("metrics should contain %s:\n%s", metric, body)
		}
	}
}

func TestGetPprof(t *testing.T) {
	s, n := newTestService(t)
	defer n.Shutdown()

	res, body := get(t, s, "/debug/pprof/")

	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if !strings.Contains(body, "goroutine") {
		t.Fatalf("pprof index should list the goroutine profile:\n%s", body)
	}
}

func TestCloseBeforeServe(t *testing.T) {
	s, n := newTestService(t)
	defer n.Shutdown()

	if err := s.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Serve()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.server.Close()
		t.Fatalf("Serve should return at once after Close")
	}
}
