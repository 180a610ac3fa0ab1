package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Noofbiz/datapipe/preview"
)

var (
	plotSection string
	plotOut     string
	plotLimit   int
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Scatter one epoch of a dataset section to a PNG",
	RunE:  runPlot,
}

func init() {
	plotCmd.Flags().StringVar(&plotSection, "section", "train", "datasets section to plot")
	plotCmd.Flags().StringVarP(&plotOut, "out", "o", "preview.png", "output PNG path")
	plotCmd.Flags().IntVar(&plotLimit, "limit", 5000, "maximum number of points, 0 for all")
	rootCmd.AddCommand(plotCmd)
}

func runPlot(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	for _, sec := range s.cfg.DatasetSections() {
		if sec.Key != plotSection {
			continue
		}
		_, it, err := s.build(sec)
		if err != nil {
			return err
		}
		defer it.Close()

		pts, err := preview.Collect(ctx, it, plotLimit)
		if err != nil {
			return fmt.Errorf("datasets.%s: %w", sec.Key, err)
		}
		title := fmt.Sprintf("%s: %s", sec.Key, sec.Options.Name())
		if err := preview.Save(plotOut, title, preview.Series{Name: sec.Key, Points: pts}); err != nil {
			return err
		}
		s.log.Infof("wrote %d points to %s", len(pts), plotOut)
		return nil
	}
	return fmt.Errorf("no datasets section %q in %s", plotSection, cfgPath)
}
