package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print the feesim version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(Version)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(versionCommand)
}
