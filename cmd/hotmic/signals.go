package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-hotmic/host/analysis"
)

func signalsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signals",
		Short: "List the analysis signals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "BIT\tNAME\tVALUES")

			for _, id := range analysis.Signals() {
				fmt.Fprintf(w, "%d\t%s\t%s\n", int(id), id, id.Unit())
			}

			return w.Flush()
		},
	}
}
