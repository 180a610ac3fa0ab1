package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Noofbiz/datapipe/dataloader"
	"github.com/Noofbiz/datapipe/datasets"
)

var inspectTensors bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Build every configured loader and read one epoch from each",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectTensors, "tensors", false, "read through the gomlx adapter and report tensor shapes")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	for _, sec := range s.cfg.DatasetSections() {
		ds, it, err := s.build(sec)
		if err != nil {
			return err
		}
		batches, examples, err := readEpoch(ctx, cmd.OutOrStdout(), sec.Key, it)
		if cerr := it.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("datasets.%s: %w", sec.Key, err)
		}
		s.log.Infof("%s: %s with %d examples, %d batches (%d examples) per epoch",
			sec.Key, datasets.TypeName(ds), ds.Len(), batches, examples)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func readEpoch(ctx context.Context, out io.Writer, key string, it dataloader.Iterator) (batches, examples int, err error) {
	if inspectTensors {
		td := dataloader.NewTrainDataset(key, it)
		for {
			_, inputs, labels, err := td.Yield()
			if errors.Is(err, io.EOF) {
				return batches, examples, nil
			}
			if err != nil {
				return batches, examples, err
			}
			if batches == 0 {
				fmt.Fprintf(out, "%s: inputs %v", key, inputs[0].Shape())
				if len(labels) > 0 {
					fmt.Fprintf(out, " labels %v", labels[0].Shape())
				}
				fmt.Fprintln(out)
			}
			batches++
			examples += inputs[0].Shape().Dimensions[0]
		}
	}
	for {
		b, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			return batches, examples, nil
		}
		if err != nil {
			return batches, examples, err
		}
		batches++
		examples += b.Size()
	}
}
