package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mosaicnetworks/firefly/src/firefly"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a Firefly node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runFirefly,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runFirefly(cmd *cobra.Command, args []string) error {
	engine := firefly.NewFirefly(&_config.Firefly)

	if err := engine.Init(); err != nil {
		_config.Firefly.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	doneCh := make(chan struct{})
	defer close(doneCh)

	go func() {
		var tickCh <-chan time.Time
		if _config.StatsInterval > 0 {
			ticker := time.NewTicker(_config.StatsInterval)
			defer ticker.Stop()
			tickCh = ticker.C
		}

		for {
			select {
			case <-tickCh:
				engine.Node.PrintInfo()
			case <-signalCh:
				_config.Firefly.Logger().Info("Received interrupt, shutting down")
				engine.Shutdown()
				return
			case <-doneCh:
				return
			}
		}
	}()

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Firefly.DataDir, "Top-level directory for configuration")
	cmd.Flags().String("log", _config.Firefly.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Firefly.LogFile, "Optional file receiving a copy of the logs")
	cmd.Flags().String("address", _config.Firefly.Address, "Node address (dotted hex, 0x hex or decimal). Derived from the hardware address if empty")
	cmd.Flags().Duration("stats-interval", _config.StatsInterval, "Time between two stats log lines. 0 disables them")

	// Protocol
	cmd.Flags().IntP("rate", "r", _config.Firefly.BeaconRate, "Beacons per second")
	cmd.Flags().Duration("blink", _config.Firefly.BlinkInterval, "Time between two phase flips of a master")
	cmd.Flags().Duration("slave-timeout", _config.Firefly.SlaveTimeout, "Silence after which a slave takes over")
	cmd.Flags().Duration("transmit-slack", _config.Firefly.TransmitSlack, "Slack subtracted from the transmit sleep")
	cmd.Flags().Duration("receive-slack", _config.Firefly.ReceiveSlack, "Slack subtracted from the receive timeout")
	cmd.Flags().Uint8("magic", _config.Firefly.Magic, "First byte of every beacon")

	// Network
	cmd.Flags().String("transport", _config.Firefly.Transport, "udp or wamp")
	cmd.Flags().StringP("listen", "l", _config.Firefly.BindAddr, "Listen IP:Port for the UDP transport")
	cmd.Flags().StringP("broadcast", "b", _config.Firefly.BroadcastAddr, "Broadcast or multicast IP:Port for the UDP transport")
	cmd.Flags().String("interface", _config.Firefly.Interface, "Network interface used for multicast")
	cmd.Flags().Int("hops", _config.Firefly.Hops, "Maximum number of hops of a beacon")
	cmd.Flags().String("wamp-addr", _config.Firefly.WAMPAddr, "URL of the WAMP router")
	cmd.Flags().String("wamp-realm", _config.Firefly.WAMPRealm, "WAMP realm")
	cmd.Flags().String("wamp-topic", _config.Firefly.WAMPTopic, "WAMP topic beacons are published to")
	cmd.Flags().Duration("wamp-timeout", _config.Firefly.WAMPTimeout, "Timeout of the connection to the WAMP router")

	// Service
	cmd.Flags().Bool("no-service", _config.Firefly.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Firefly.ServiceAddr, "Listen IP:Port for HTTP service")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// the logger was built before the config file was read
	_config.Firefly.SetLogger(nil)

	_config.Firefly.Logger().WithFields(logrus.Fields{
		"firefly.DataDir":       _config.Firefly.DataDir,
		"firefly.LogLevel":      _config.Firefly.LogLevel,
		"firefly.LogFile":       _config.Firefly.LogFile,
		"firefly.Address":       _config.Firefly.Address,
		"firefly.BeaconRate":    _config.Firefly.BeaconRate,
		"firefly.BlinkInterval": _config.Firefly.BlinkInterval,
		"firefly.SlaveTimeout":  _config.Firefly.SlaveTimeout,
		"firefly.TransmitSlack": _config.Firefly.TransmitSlack,
		"firefly.ReceiveSlack":  _config.Firefly.ReceiveSlack,
		"firefly.Magic":         _config.Firefly.Magic,
		"firefly.Transport":     _config.Firefly.Transport,
		"firefly.BindAddr":      _config.Firefly.BindAddr,
		"firefly.BroadcastAddr": _config.Firefly.BroadcastAddr,
		"firefly.Interface":     _config.Firefly.Interface,
		"firefly.Hops":          _config.Firefly.Hops,
		"firefly.WAMPAddr":      _config.Firefly.WAMPAddr,
		"firefly.WAMPRealm":     _config.Firefly.WAMPRealm,
		"firefly.WAMPTopic":     _config.Firefly.WAMPTopic,
		"firefly.NoService":     _config.Firefly.NoService,
		"firefly.ServiceAddr":   _config.Firefly.ServiceAddr,
		"StatsInterval":         _config.StatsInterval,
	}).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/firefly.toml (.json, .yaml also work)
	viper.SetConfigName("firefly")               // name of config file (without extension)
	viper.AddConfigPath(_config.Firefly.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Firefly.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Firefly.Logger().Debugf("No config file found in: %s", _config.Firefly.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
