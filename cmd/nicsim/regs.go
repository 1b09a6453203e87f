package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/nicsim/nic"
)

var regsCmd = &cobra.Command{
	Use:   "regs",
	Short: "Print the register map of the NIC.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printRegisters(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(regsCmd)
}

func printRegisters(out io.Writer) error {
	fmt.Fprintf(out, "%s\n\n", nic.DefaultDeviceInfo)

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tACCESS\tNAME")

	for _, r := range nic.Registers() {
		fmt.Fprintf(w, "%#08x\t%s\t%s\n", r.Address, r.Access, r.Name)
	}

	return w.Flush()
}
