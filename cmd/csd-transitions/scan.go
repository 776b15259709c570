package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/csd-transitions/internal/detection"
	"github.com/ironsheep/csd-transitions/internal/imaging"
	"github.com/ironsheep/csd-transitions/internal/scanner"
	"github.com/ironsheep/csd-transitions/internal/trace"
)

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "scan <diagram.csv>...",
		Aliases: []string{"s"},
		Short:   "Scan diagrams and write transition masks",
		Long: `Scan every row of each diagram and write <name>_mask.csv into the output
directory. With --plot, also write <name>_mask.png, <name>_overlay.png,
<name>_lines.png and <name>_lines.json.`,
		Example: "  csd-transitions scan data/dot1.csv --plot --out-dir results",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.cfg.OutDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			sc := scanner.New(a.cfg.Detector,
				scanner.WithWorkers(a.cfg.Workers),
				scanner.WithLogger(a.log),
				scanner.WithMetrics(scanner.NewMetrics(a.registry)),
			)
			for _, path := range args {
				written, err := a.scanFile(cmd.Context(), sc, path)
				if err != nil {
					return err
				}
				for _, w := range written {
					fmt.Fprintln(cmd.OutOrStdout(), w)
				}
			}
			return nil
		},
	}
}

// scanFile scans one diagram and returns the paths it wrote.
func (a *app) scanFile(ctx context.Context, sc *scanner.Scanner, path string) ([]string, error) {
	d, err := trace.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	mask, err := sc.Scan(ctx, d)
	if err != nil {
		return nil, err
	}

	base := filepath.Join(a.cfg.OutDir, d.Name)
	written := []string{base + "_mask.csv"}
	if err := writeFile(written[0], mask.WriteCSV); err != nil {
		return nil, err
	}
	if !a.cfg.PlotResults {
		return written, nil
	}

	lines, err := detection.NewHough(a.cfg.MinLineLength).Extract(mask.Bits)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{
		"diagram": d.Name,
		"lines":   lines.Count,
	}).Info("extracted lines")

	maskImg, err := imaging.MaskImage(mask.Bits, a.cfg.PixelScale, 0)
	if err != nil {
		return nil, err
	}
	overlay, err := imaging.Overlay(d, mask.Bits, a.cfg.PixelScale, "")
	if err != nil {
		return nil, err
	}
	linesImg, err := imaging.LinesImage(lines.Labels, a.cfg.PixelScale)
	if err != nil {
		return nil, err
	}

	for _, out := range []struct {
		suffix string
		img    image.Image
	}{
		{"_mask.png", maskImg},
		{"_overlay.png", overlay},
		{"_lines.png", linesImg},
	} {
		p := base + out.suffix
		if err := imaging.Save(p, out.img); err != nil {
			return nil, err
		}
		written = append(written, p)
	}

	p := base + "_lines.json"
	err = writeFile(p, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(lines)
	})
	if err != nil {
		return nil, err
	}
	return append(written, p), nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
