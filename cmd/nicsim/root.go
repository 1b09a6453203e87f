package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nicsim",
	Short: "nicsim simulates a Corundum NIC driven by a scripted host.",
	Long: `nicsim simulates a single-port, single-queue Corundum NIC ` +
		`behind a PCIe link. A host script programs the NIC through its ` +
		`registers and checks what it writes to host memory, while the ` +
		`Ethernet side can reflect or inject frames.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
