package commands

import (
	"github.com/spf13/cobra"
)

//RootCmd is the root command for Firefly
var RootCmd = &cobra.Command{
	Use:              "firefly",
	Short:            "firefly beacon synchronisation",
	TraverseChildren: true,
}
