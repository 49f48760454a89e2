package commands

import (
	"fmt"

	"github.com/mosaicnetworks/firefly/src/identity"
	"github.com/spf13/cobra"
)

var addressArg string

// NewAddressCmd produces an AddressCmd which prints the address a node would
// use, in the dotted notation of the logs.
func NewAddressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Show node address",
		RunE:  address,
	}

	AddAddressFlags(cmd)

	return cmd
}

//AddAddressFlags adds flags to the address command
func AddAddressFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&addressArg, "address", "", "Address to normalise (dotted hex, 0x hex or decimal). Defaults to the hardware address")
}

func address(cmd *cobra.Command, args []string) error {
	addr := identity.HardwareAddress()

	if addressArg != "" {
		var err error
		if addr, err = identity.Parse(addressArg); err != nil {
			return fmt.Errorf("Parsing address: %s", err)
		}
	}

	fmt.Println(addr)
	fmt.Printf("0x%016X\n", uint64(addr))

	return nil
}
