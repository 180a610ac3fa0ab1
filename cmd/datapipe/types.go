package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Noofbiz/datapipe/datasets"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List registered dataset types",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, typ := range datasets.Types() {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), typ); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}
