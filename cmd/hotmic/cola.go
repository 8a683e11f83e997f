package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-hotmic/dsp/window"
)

const defaultTolerance = 1e-6

func colaCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cola",
		Short: "Check whether a window pair is constant-overlap-add",
		Long: `Cola reports the overlap-add gain and ripple of an analysis/synthesis
window pair at a hop size. With --all it checks every pair of known windows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			size, hop := a.v.GetInt("size"), a.v.GetInt("hop")
			tol := a.v.GetFloat64("tolerance")
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

			fmt.Fprintln(w, "ANALYSIS\tSYNTHESIS\tGAIN\tRIPPLE\tCOLA")

			if a.v.GetBool("all") {
				for _, an := range window.Types() {
					for _, syn := range window.Types() {
						if err := colaRow(w, an, syn, size, hop, tol); err != nil {
							return err
						}
					}
				}

				return w.Flush()
			}

			an, err := window.ParseType(a.v.GetString("analysis"))
			if err != nil {
				return err
			}

			syn, err := window.ParseType(a.v.GetString("synthesis"))
			if err != nil {
				return err
			}

			if err := colaRow(w, an, syn, size, hop, tol); err != nil {
				return err
			}

			return w.Flush()
		},
	}

	f := cmd.Flags()
	f.Int("size", 1024, "frame size in samples")
	f.Int("hop", 256, "hop size in samples")
	f.String("analysis", "sqrt-hann", "analysis window")
	f.String("synthesis", "sqrt-hann", "synthesis window")
	f.Float64("tolerance", defaultTolerance, "relative ripple accepted as constant")
	f.Bool("all", false, "check every window pair")

	return cmd
}

func colaRow(w io.Writer, analysis, synthesis window.Type, size, hop int, tol float64) error {
	ola, err := window.AnalyzeOverlapAdd(window.Generate(analysis, size), window.Generate(synthesis, size), hop)
	if err != nil {
		return err
	}

	verdict := "no"
	if ola.COLA(tol) {
		verdict = "yes"
	}

	_, err = fmt.Fprintf(w, "%s\t%s\t%.6g\t%.3g\t%s\n", analysis, synthesis, ola.Gain, ola.Ripple, verdict)

	return err
}
