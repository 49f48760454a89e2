// Package beacon implements the fixed-size wire format of the synchronisation
// beacons that nodes broadcast to each other.
//
// A beacon is 21 bytes long:
//
//	[1 byte magic][8 bytes master address][8 bytes sender address][4 bytes state]
//
// All multi-byte fields are big-endian. The leading magic byte separates this
// protocol's traffic from other users of the same broadcast channel.
package beacon

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mosaicnetworks/firefly/src/identity"
)

// DefaultMagic is the magic byte used when none is configured.
const DefaultMagic byte = 0x56

// Size is the length of an encoded beacon.
const Size = 1 + 8 + 8 + 4

var (
	// ErrBadMagic is returned by DecodeStrict when the first byte of a
	// datagram is not the configured magic byte.
	ErrBadMagic = errors.New("bad magic byte")

	// ErrShortPacket is returned by DecodeStrict when a datagram is too short
	// to contain a beacon.
	ErrShortPacket = errors.New("packet too short")
)

// Beacon is the message periodically broadcast by a master.
type Beacon struct {
	MasterAddress identity.Address
	SenderAddress identity.Address
	SharedState   int32
}

// String ...
func (b Beacon) String() string {
	return fmt.Sprintf("Beacon(master: %s, sender: %s, state: %d)",
		b.MasterAddress, b.SenderAddress, b.SharedState)
}

// Codec encodes and decodes beacons framed with a given magic byte.
type Codec struct {
	magic byte
}

// NewCodec returns a Codec for the given magic byte.
func NewCodec(magic byte) *Codec {
	return &Codec{magic: magic}
}

// Magic returns the magic byte of the codec.
func (c *Codec) Magic() byte {
	return c.magic
}

// Encode returns the wire representation of b.
func (c *Codec) Encode(b Beacon) []byte {
	buf := make([]byte, Size)
	c.EncodeTo(buf, b)
	return buf
}

// EncodeTo writes b into dst, which must be at least Size bytes long, and
// returns the number of bytes written.
func (c *Codec) EncodeTo(dst []byte, b Beacon) int {
	dst[0] = c.magic
	binary.BigEndian.PutUint64(dst[1:9], uint64(b.MasterAddress))
	binary.BigEndian.PutUint64(dst[9:17], uint64(b.SenderAddress))
	binary.BigEndian.PutUint32(dst[17:21], uint32(b.SharedState))
	return Size
}

// Decode parses a beacon from src. It reports false when src does not hold a
// beacon of this protocol. Bytes past the fixed-size payload are ignored.
func (c *Codec) Decode(src []byte) (Beacon, bool) {
	b, err := c.DecodeStrict(src)
	return b, err == nil
}

// DecodeStrict is like Decode but says why a datagram was rejected.
func (c *Codec) DecodeStrict(src []byte) (Beacon, error) {
	if len(src) == 0 || src[0] != c.magic {
		return Beacon{}, ErrBadMagic
	}
	if len(src) < Size {
		return Beacon{}, ErrShortPacket
	}

	return Beacon{
		MasterAddress: identity.Address(binary.BigEndian.Uint64(src[1:9])),
		SenderAddress: identity.Address(binary.BigEndian.Uint64(src[9:17])),
		SharedState:   int32(binary.BigEndian.Uint32(src[17:21])),
	}, nil
}
