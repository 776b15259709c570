package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ironsheep/csd-transitions/internal/detector"
	"github.com/ironsheep/csd-transitions/internal/imaging"
	"github.com/ironsheep/csd-transitions/internal/trace"
)

func newTraceCmd(a *app) *cobra.Command {
	var (
		row         int
		plotPath    string
		diagnostics bool
	)

	cmd := &cobra.Command{
		Use:     "trace <diagram.csv>",
		Aliases: []string{"t"},
		Short:   "Detect transitions along one diagram row",
		Long: `Run the detector over a single row of a diagram, calibrated on the
diagram's calibration row, and print the confirmed transitions.`,
		Example: "  csd-transitions trace data/dot1.csv --row 10 --plot row10.png",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := trace.LoadCSV(args[0])
			if err != nil {
				return err
			}
			if row < 0 || row >= d.Rows() {
				return fmt.Errorf("row %d outside diagram of %d rows", row, d.Rows())
			}
			cal, err := detector.CalibrateDiagram(d, a.cfg.Detector)
			if err != nil {
				return err
			}
			t := d.Row(row)
			res, err := detector.Detect(t, a.cfg.Detector, cal)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if diagnostics {
				steps, err := detector.Steps(t, a.cfg.Detector, cal)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "INDEX\tWORKING\tFILTERED\tRESIDUAL\tTHRESHOLD\tTREND\tCROSSING\tTRANSITION")
				for _, s := range steps {
					fmt.Fprintf(w, "%d\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%s\t%s\n",
						s.Index, s.Working, s.Filtered, s.Residual, s.Threshold, s.TrendRef, s.Crossing, s.Transition)
				}
			} else {
				fmt.Fprintln(w, "INDEX\tX\tY\tDIRECTION")
				for _, i := range res.Indices() {
					fmt.Fprintf(w, "%d\t%.6g\t%.6g\t%s\n", i, t.X[i], t.Y[i], res.Directions[i])
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s row %d: %d rising, %d falling (noise rms %.4g)\n",
				d.Name, row, res.Rising, res.Falling, cal.RMS())

			if plotPath == "" {
				return nil
			}
			png, err := imaging.PlotTrace(t, res, imaging.PlotOptions{
				Title: fmt.Sprintf("%s row %d", d.Name, row),
			})
			if err != nil {
				return err
			}
			return os.WriteFile(plotPath, png, 0o644)
		},
	}

	cmd.Flags().IntVarP(&row, "row", "r", 0, "row to analyse")
	cmd.Flags().StringVar(&plotPath, "plot-file", "", "write a PNG plot of the trace and its transitions")
	cmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "print every detector step")
	return cmd
}
