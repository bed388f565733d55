package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/stash/internal/appstate"
	"github.com/sakif/stash/internal/model"
)

func newAddressesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "addresses",
		Aliases: []string{"address", "a"},
		Short:   "List and edit addresses",
	}
	cmd.AddCommand(
		newAddressesListCmd(a),
		newAddressesAddCmd(a),
		newAddressesRenameCmd(a),
		newAddressesShareCmd(a, true),
		newAddressesShareCmd(a, false),
		newAddressesRmCmd(a),
	)
	return cmd
}

func newAddressesListCmd(a *app) *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List addresses, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.inv.ListAddresses(cmd.Context(), page, pageSize)
			if err != nil {
				return err
			}
			if len(out.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No addresses.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL\tCITY\tSHARED WITH")
			for _, ad := range out.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ad.ID, ad.Label, ad.City, strings.Join(ad.SharedWith, ", "))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "addresses per page")
	return cmd
}

func newAddressesAddCmd(a *app) *cobra.Command {
	var in model.AddressInput
	cmd := &cobra.Command{
		Use:   "add LABEL",
		Short: "Create an address",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				in.Label = args[0]
			}
			ctrl := appstate.New(a.inv, a.prefs, a.logger)
			ad, err := ctrl.CreateAddress(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", ad.Label, ad.ID)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&in.Street, "street", "", "street")
	fl.StringVar(&in.City, "city", "", "city")
	fl.StringVar(&in.PostalCode, "postal-code", "", "postal code")
	fl.StringSliceVar(&in.SharedWith, "share", nil, "emails to share with")
	return cmd
}

func newAddressesRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID LABEL",
		Short: "Change an address label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := appstate.New(a.inv, a.prefs, a.logger)
			ok, err := ctrl.RenameAddress(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no address with id %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %s\n", args[1])
			return nil
		},
	}
}

func newAddressesShareCmd(a *app, share bool) *cobra.Command {
	use, short := "share", "Share an address with someone by email"
	if !share {
		use, short = "unshare", "Stop sharing an address with someone"
	}
	return &cobra.Command{
		Use:   use + " ID EMAIL",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apply := a.inv.ShareAddress
			if !share {
				apply = a.inv.UnshareAddress
			}
			ad, ok, err := apply(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no address with id %s", args[0])
			}
			who := "nobody"
			if len(ad.SharedWith) > 0 {
				who = strings.Join(ad.SharedWith, ", ")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is shared with %s\n", ad.Label, who)
			return nil
		},
	}
}

func newAddressesRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete an address; its items become unlocated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := appstate.New(a.inv, a.prefs, a.logger)
			if err := ctrl.DeleteAddress(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted")
			return nil
		},
	}
}
