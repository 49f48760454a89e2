// Package identity provides the 64-bit address that identifies a node on the
// broadcast channel. Addresses are only ever compared: the higher address wins
// master arbitration.
package identity

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Address is the IEEE-style 64-bit address of a node.
type Address uint64

// String renders the address in dotted hex, eg. 0014.4F01.0000.1A2B
func (a Address) String() string {
	v := uint64(a)
	return fmt.Sprintf("%04X.%04X.%04X.%04X",
		(v>>48)&0xFFFF,
		(v>>32)&0xFFFF,
		(v>>16)&0xFFFF,
		v&0xFFFF)
}

// Parse reads an address written in dotted hex (0014.4F01.0000.1A2B), in hex
// with a 0x prefix, or in decimal.
func Parse(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}

	if strings.Contains(s, ".") {
		groups := strings.Split(s, ".")
		if len(groups) != 4 {
			return 0, fmt.Errorf("dotted address %q should have 4 groups, not %d", s, len(groups))
		}
		var v uint64
		for _, g := range groups {
			if len(g) == 0 || len(g) > 4 {
				return 0, fmt.Errorf("invalid group %q in address %q", g, s)
			}
			n, err := strconv.ParseUint(g, 16, 16)
			if err != nil {
				return 0, fmt.Errorf("invalid group %q in address %q: %v", g, s, err)
			}
			v = v<<16 | n
		}
		return Address(v), nil
	}

	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %v", s, err)
	}
	return Address(v), nil
}

// FromEUI48 expands a 6-byte hardware address into a 64-bit address by
// inserting FFFE in the middle, as for EUI-64 identifiers.
func FromEUI48(hw []byte) (Address, error) {
	if len(hw) != 6 {
		return 0, fmt.Errorf("hardware address should be 6 bytes, not %d", len(hw))
	}
	eui := []byte{hw[0], hw[1], hw[2], 0xFF, 0xFE, hw[3], hw[4], hw[5]}
	return Address(binary.BigEndian.Uint64(eui)), nil
}

// HardwareAddress derives an address from the node ID of this host, which is
// the hardware address of one of its interfaces, or a random value if the
// host has none.
func HardwareAddress() Address {
	a, err := FromEUI48(uuid.NodeID())
	if err != nil {
		// uuid.NodeID always returns 6 bytes
		panic(err)
	}
	return a
}
