package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/csd-transitions/internal/synth"
	"github.com/ironsheep/csd-transitions/internal/trace"
)

func newSynthCmd(a *app) *cobra.Command {
	var rows, cols, offset int

	cmd := &cobra.Command{
		Use:   "synth <out.csv>",
		Short: "Write a synthetic diagram with one diagonal transition line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rows < 1 || cols < 2 {
				return fmt.Errorf("diagram of %dx%d is too small", rows, cols)
			}
			d := synth.Diagonal(rows, cols, offset)
			if err := trace.SaveCSV(args[0], d); err != nil {
				return err
			}
			a.log.WithField("path", args[0]).Infof("wrote %dx%d diagram", rows, cols)
			return nil
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 30, "diagram rows")
	cmd.Flags().IntVar(&cols, "cols", 101, "diagram columns")
	cmd.Flags().IntVar(&offset, "offset", 30, "transition column of row 0")
	return cmd
}
