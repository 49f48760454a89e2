package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/firefly/src/common"
	"github.com/mosaicnetworks/firefly/src/identity"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Transports
const (
	// UDPTransport broadcasts beacons as IPv4 UDP datagrams.
	UDPTransport = "udp"

	// WAMPTransport publishes beacons to a topic of a WAMP router.
	WAMPTransport = "wamp"
)

// Default configuration values.
const (
	DefaultLogLevel       = "info"
	DefaultBeaconRate     = 5
	DefaultBlinkInterval  = 1000 * time.Millisecond
	DefaultSlaveTimeout   = 3000 * time.Millisecond
	DefaultTransmitSlack  = 2 * time.Millisecond
	DefaultReceiveSlack   = 5 * time.Millisecond
	DefaultMagic          = 0x56
	DefaultTransport      = UDPTransport
	DefaultBindAddr       = ":7676"
	DefaultBroadcastAddr  = "255.255.255.255:7676"
	DefaultHops           = 1
	DefaultServiceAddr    = "127.0.0.1:8076"
	DefaultNoService      = false
	DefaultWAMPAddr       = "ws://127.0.0.1:8080/ws"
	DefaultWAMPRealm      = "firefly"
	DefaultWAMPTopic      = "firefly.beacon"
	DefaultWAMPTimeout    = 5 * time.Second
	DefaultMaxDatagramLen = 1024
)

// Config contains all the configuration properties of a firefly node. All
// values are static for the lifetime of a node.
type Config struct {
	// DataDir is the top-level directory containing the optional firefly
	// configuration file.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, receives a copy of every log line.
	LogFile string `mapstructure:"log-file"`

	// Address is the 64-bit node address, in dotted hex, 0x hex, or decimal.
	// When empty, an address is derived from the host's hardware address.
	Address string `mapstructure:"address"`

	// BeaconRate is the number of transmit cycles per second. It determines
	// the transmit interval and the receive timeout.
	BeaconRate int `mapstructure:"rate"`

	// BlinkInterval is the period at which a master toggles its phase.
	BlinkInterval time.Duration `mapstructure:"blink"`

	// SlaveTimeout is how long a slave waits for a beacon from its master
	// before electing itself.
	SlaveTimeout time.Duration `mapstructure:"slave-timeout"`

	// TransmitSlack is subtracted from the sleep between two transmit cycles
	// to absorb scheduling delays.
	TransmitSlack time.Duration `mapstructure:"transmit-slack"`

	// ReceiveSlack is subtracted from the transmit interval to obtain the
	// receive timeout, so that a node wakes up in time to notice silence.
	ReceiveSlack time.Duration `mapstructure:"receive-slack"`

	// Magic is the first byte of every beacon. Datagrams starting with any
	// other byte are ignored.
	Magic uint8 `mapstructure:"magic"`

	// Transport is either "udp" or "wamp".
	Transport string `mapstructure:"transport"`

	// BindAddr is the local address:port where the UDP transport listens.
	BindAddr string `mapstructure:"listen"`

	// BroadcastAddr is the broadcast or multicast address:port beacons are
	// sent to by the UDP transport.
	BroadcastAddr string `mapstructure:"broadcast"`

	// Interface optionally names the network interface used for multicast.
	Interface string `mapstructure:"interface"`

	// Hops is the maximum number of hops of a beacon (IP TTL). 1 keeps
	// beacons on the local link.
	Hops int `mapstructure:"hops"`

	// WAMPAddr is the URL of the WAMP router used by the WAMP transport.
	WAMPAddr string `mapstructure:"wamp-addr"`

	// WAMPRealm is the realm joined on the WAMP router.
	WAMPRealm string `mapstructure:"wamp-realm"`

	// WAMPTopic is the topic beacons are published to.
	WAMPTopic string `mapstructure:"wamp-topic"`

	// WAMPTimeout bounds the connection to the WAMP router.
	WAMPTimeout time.Duration `mapstructure:"wamp-timeout"`

	// NoService disables the HTTP status service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the HTTP status service.
	ServiceAddr string `mapstructure:"service-listen"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:       DefaultDataDir(),
		LogLevel:      DefaultLogLevel,
		BeaconRate:    DefaultBeaconRate,
		BlinkInterval: DefaultBlinkInterval,
		SlaveTimeout:  DefaultSlaveTimeout,
		TransmitSlack: DefaultTransmitSlack,
		ReceiveSlack:  DefaultReceiveSlack,
		Magic:         DefaultMagic,
		Transport:     DefaultTransport,
		BindAddr:      DefaultBindAddr,
		BroadcastAddr: DefaultBroadcastAddr,
		Hops:          DefaultHops,
		WAMPAddr:      DefaultWAMPAddr,
		WAMPRealm:     DefaultWAMPRealm,
		WAMPTopic:     DefaultWAMPTopic,
		WAMPTimeout:   DefaultWAMPTimeout,
		NoService:     DefaultNoService,
		ServiceAddr:   DefaultServiceAddr,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.NoService = true
	config.logger = common.NewTestLogger(t, level)
	return config
}

// Validate checks that the timing values are usable.
func (c *Config) Validate() error {
	if c.BeaconRate <= 0 {
		return fmt.Errorf("beacon rate must be positive, not %d", c.BeaconRate)
	}
	if c.BlinkInterval <= 0 {
		return fmt.Errorf("blink interval must be positive, not %v", c.BlinkInterval)
	}
	if c.SlaveTimeout <= 0 {
		return fmt.Errorf("slave timeout must be positive, not %v", c.SlaveTimeout)
	}
	if c.ReceiveTimeout() <= 0 {
		return fmt.Errorf("receive slack %v leaves no receive window in a %v transmit interval",
			c.ReceiveSlack, c.TransmitInterval())
	}
	if c.Transport != UDPTransport && c.Transport != WAMPTransport {
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if _, err := c.NodeAddress(); err != nil {
		return err
	}
	return nil
}

// TransmitInterval is the period of the transmit loop.
func (c *Config) TransmitInterval() time.Duration {
	return time.Second / time.Duration(c.BeaconRate)
}

// ReceiveTimeout is how long the receive loop blocks waiting for a datagram.
func (c *Config) ReceiveTimeout() time.Duration {
	return c.TransmitInterval() - c.ReceiveSlack
}

// NodeAddress returns the configured address, or one derived from the host's
// hardware address.
func (c *Config) NodeAddress() (identity.Address, error) {
	if c.Address == "" {
		return identity.HardwareAddress(), nil
	}
	return identity.Parse(c.Address)
}

// ConfigFile returns the full path of the optional configuration file, without
// extension.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "firefly")
}

// Logger returns a formatted logrus Entry, with prefix set to "firefly".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				c.LogFile,
				&logrus.TextFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "firefly")
}

// SetLogger replaces the logger returned by Logger. A nil logger is rebuilt
// from LogLevel and LogFile on the next call to Logger.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// DefaultDataDir return the default directory name for top-level firefly
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Firefly")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Firefly")
		} else {
			return filepath.Join(home, ".firefly")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
