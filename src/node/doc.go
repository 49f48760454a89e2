// Package node implements the reactive component of a firefly node.
//
// A firefly node keeps a shared state in step with the other nodes on a
// broadcast channel. It does so without any configuration of its peers: every
// node periodically broadcasts a beacon, and the node with the highest
// address becomes the reference that all others follow.
//
// Roles
//
// A node is always in exactly one of two roles, Master or Slave, or paused.
//
// A Master runs its own oscillator, which toggles a phase between 0 and 1 once
// per blink interval, and broadcasts a beacon carrying its address and phase
// in every transmit cycle. When it hears a beacon from a master with a higher
// address, it becomes a Slave of that master.
//
// A Slave never transmits. It copies the phase from every beacon of the master
// it tracks, retargets to any higher master it hears, and ignores lower ones.
// When no beacon from its master has arrived for longer than the slave
// timeout, it becomes a Master itself.
//
// Every node starts as a Master. After a few beacon intervals the node with
// the highest address is the only Master left, and every other node shows its
// phase.
//
// Loops
//
// A node runs two loops, one transmitting and one receiving, which both act on
// behalf of the role that is active at the start of each cycle. Role changes
// are serialised by the Controller: the outgoing role is halted before the new
// one is installed, and a halted role ignores every event, so that a loop
// racing with a role change cannot act on behalf of a stale role.
//
// Transport failures are never fatal. A loop whose sender or receiver fails
// closes it, waits, and opens a new one.
package node
