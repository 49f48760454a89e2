// Package net implements the broadcast channels over which firefly nodes
// exchange beacons.
//
// The channel is unreliable, connectionless and one-hop: a datagram sent by a
// node may reach any subset of the other nodes, in any order, possibly more
// than once, and is never acknowledged. A Transport opens the channel for
// sending and for receiving independently so that the transmit and receive
// loops of a node can each reopen their side after a failure.
//
// There are three implementations:
//
// - UDP: IPv4 broadcast or multicast datagrams on a fixed port
//
// - Inmem: an in-process hub used for testing and simulations, with
// configurable loss and failure injection
//
// - WAMP: beacons published to a topic of a WAMP router, for nodes that do
// not share a broadcast domain
//
// UDP
//
// The UDP transport sends every beacon to BroadcastAddr and listens on
// BindAddr. When BroadcastAddr is a multicast group, the receiver joins the
// group and multicast loopback is enabled so that a node hears its own
// beacons, as it would on a broadcast network. The hop limit (IP TTL) defaults
// to 1 so that beacons are never forwarded beyond the local link.
//
// WAMP
//
// A WAMP router relays publications to every subscriber of a topic within a
// realm, which makes it behave like a shared broadcast medium. The router is a
// relay, not a coordinator: it holds no protocol state.
package net
