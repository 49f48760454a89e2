// Package config defines the configuration for a firefly node.
//
// Regardless of how firefly is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of the
// command line flags, firefly looks for an optional configuration file in the
// data directory defined by Config.DataDir:
//
//  firefly.toml // (or .yaml, .json) any of the options below, keyed by flag name
//
// The timing options are related: the transmit interval is one second divided
// by BeaconRate, and the receive timeout is the transmit interval minus
// ReceiveSlack. A slave elects itself master after SlaveTimeout without
// hearing its master.
package config
