package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/stash/internal/seed"
)

func newSeedCmd(a *app) *cobra.Command {
	var add bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace everything with demo data (--add keeps existing data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			load := seed.Reset
			if add {
				load = seed.Add
			}
			res, err := load(cmd.Context(), a.inv)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d addresses and %d items\n", res.Addresses, res.Items)
			return nil
		},
	}
	cmd.Flags().BoolVar(&add, "add", false, "add the extra set instead of resetting")
	return cmd
}
