package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/firefly/src/identity"
	"github.com/sirupsen/logrus"
)

func TestDefaultTiming(t *testing.T) {
	conf := NewDefaultConfig()

	if err := conf.Validate(); err != nil {
		t.Fatal(err)
	}
	if i := conf.TransmitInterval(); i != 200*time.Millisecond {
		t.Fatalf("TransmitInterval should be 200ms, not %v", i)
	}
	if r := conf.ReceiveTimeout(); r != 195*time.Millisecond {
		t.Fatalf("ReceiveTimeout should be 195ms, not %v", r)
	}
	if conf.SlaveTimeout != 3*time.Second {
		t.Fatalf("SlaveTimeout should be 3s, not %v", conf.SlaveTimeout)
	}
	if conf.BlinkInterval != time.Second {
		t.Fatalf("BlinkInterval should be 1s, not %v", conf.BlinkInterval)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rate", func(c *Config) { c.BeaconRate = 0 }},
		{"no receive window", func(c *Config) { c.ReceiveSlack = c.TransmitInterval() }},
		{"zero blink", func(c *Config) { c.BlinkInterval = 0 }},
		{"negative timeout", func(c *Config) { c.SlaveTimeout = -time.Second }},
		{"unknown transport", func(c *Config) { c.Transport = "carrier-pigeon" }},
		{"bad address", func(c *Config) { c.Address = "not-an-address" }},
	}

	for _, c := range cases {
		conf := NewDefaultConfig()
		c.mutate(conf)
		if err := conf.Validate(); err == nil {
			t.Fatalf("%s: Validate should fail", c.name)
		}
	}
}

func TestNodeAddress(t *testing.T) {
	conf := NewDefaultConfig()

	a, err := conf.NodeAddress()
	if err != nil {
		t.Fatal(err)
	}
	if a != identity.HardwareAddress() {
		t.Fatalf("default address should be the hardware address, not %v", a)
	}

	conf.Address = "0000.0000.0000.0014"
	a, err = conf.NodeAddress()
	if err != nil {
		t.Fatal(err)
	}
	if a != 20 {
		t.Fatalf("address should be 20, not %d", a)
	}
}

func TestLogLevel(t *testing.T) {
	if LogLevel("warn") != logrus.WarnLevel {
		t.Fatal("warn should map to logrus.WarnLevel")
	}
	if LogLevel("chatty") != logrus.DebugLevel {
		t.Fatal("unknown levels should map to logrus.DebugLevel")
	}
}

func TestLogFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "firefly-config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	conf := NewDefaultConfig()
	conf.LogFile = filepath.Join(dir, "firefly.log")
	conf.Logger().Info("hello from the log file")

	data, err := ioutil.ReadFile(conf.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello from the log file") {
		t.Fatalf("log file should contain the message, got %q", string(data))
	}
}
