package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sakif/stash/internal/appstate"
	"github.com/sakif/stash/internal/format"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/prefs"
	"github.com/sakif/stash/internal/query"
	"github.com/sakif/stash/internal/view"
)

func newItemsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item", "i"},
		Short:   "List and edit items",
	}
	cmd.AddCommand(
		newItemsListCmd(a),
		newItemsAddCmd(a),
		newItemsGetCmd(a),
		newItemsEditCmd(a),
		newItemsRmCmd(a),
		newItemsMoveCmd(a),
	)
	return cmd
}

// selectionFlags picks the address filter and the derivation settings the
// list-style commands share. Sort, tag, price and view changes persist as
// preferences.
type selectionFlags struct {
	address   string
	unlocated bool
	q         string
	page      int
	sort      string
	tag       string
	minPrice  string
	maxPrice  string
	viewMode  string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.address, "address", "", "only items at this address id")
	fl.BoolVar(&f.unlocated, "unlocated", false, "only items without an address")
	fl.StringVarP(&f.q, "query", "q", "", "search name, description and tags")
	fl.IntVar(&f.page, "page", 1, "page number")
	fl.StringVar(&f.sort, "sort", "", "name-asc, name-desc, price-asc, price-desc, date-asc, date-desc")
	fl.StringVar(&f.tag, "tag", "", "only items whose tags contain this text (\"\" clears)")
	fl.StringVar(&f.minPrice, "min", "", "minimum price, e.g. 12.50 (\"\" clears)")
	fl.StringVar(&f.maxPrice, "max", "", "maximum price (\"\" clears)")
	fl.StringVar(&f.viewMode, "view", "", "list, grid or column4")
}

func (f *selectionFlags) filter() (model.AddressFilter, error) {
	switch {
	case f.unlocated && f.address != "":
		return model.AddressFilter{}, errors.New("--address and --unlocated are exclusive")
	case f.unlocated:
		return model.UnlocatedOnly(), nil
	case f.address != "":
		return model.AtAddress(f.address), nil
	default:
		return model.AllAddresses(), nil
	}
}

// controller loads a Controller and applies the flags that were set.
func (f *selectionFlags) controller(cmd *cobra.Command, a *app) (*appstate.Controller, error) {
	ctx := cmd.Context()
	ctrl := appstate.New(a.inv, a.prefs, a.logger)
	if err := ctrl.Load(ctx); err != nil {
		return nil, err
	}

	sel, err := f.filter()
	if err != nil {
		return nil, err
	}
	if !sel.IsAll() {
		if err := ctrl.SelectAddress(ctx, sel); err != nil {
			return nil, err
		}
	}

	changed := cmd.Flags().Changed
	if f.q != "" {
		if err := ctrl.SetQuery(ctx, f.q); err != nil {
			return nil, err
		}
	}
	if changed("sort") {
		key, ok := query.ParseSortKey(f.sort)
		if !ok {
			return nil, fmt.Errorf("unknown sort %q", f.sort)
		}
		if err := ctrl.SetSort(ctx, key); err != nil {
			return nil, err
		}
	}
	if changed("tag") {
		if err := ctrl.SetTagFilter(ctx, f.tag); err != nil {
			return nil, err
		}
	}
	if changed("min") || changed("max") {
		p := ctrl.Preferences()
		lo, hi := p.MinPrice, p.MaxPrice
		if changed("min") {
			if lo, err = format.ParsePrice(f.minPrice); err != nil {
				return nil, err
			}
		}
		if changed("max") {
			if hi, err = format.ParsePrice(f.maxPrice); err != nil {
				return nil, err
			}
		}
		if err := ctrl.SetPriceRange(ctx, lo, hi); err != nil {
			return nil, err
		}
	}
	if changed("view") {
		mode, ok := prefs.ParseViewMode(f.viewMode)
		if !ok {
			return nil, fmt.Errorf("unknown view %q", f.viewMode)
		}
		if err := ctrl.SetView(ctx, mode); err != nil {
			return nil, err
		}
	}
	if f.page > 1 {
		if err := ctrl.SetPage(ctx, f.page); err != nil {
			return nil, err
		}
	}
	return ctrl, nil
}

func render(w io.Writer, ctrl *appstate.Controller) error {
	fmt.Fprintf(w, "%s\n\n", ctrl.Heading())
	if err := view.Render(w, ctrl.Preferences().ViewMode, ctrl.Visible(), view.LabelsOf(ctrl.Addresses()), ctrl.IsSelected); err != nil {
		return err
	}

	p := ctrl.Preferences()
	fmt.Fprintf(w, "\nPage %d of %d, %d items, sorted %s", ctrl.Page(), ctrl.PageCount(), ctrl.Total(), p.Sort)
	if p.Tag != "" {
		fmt.Fprintf(w, ", tag %q", p.Tag)
	}
	if b := ctrl.Bounds(); b.HasPrices && (p.MinPrice != nil || p.MaxPrice != nil) {
		fmt.Fprintf(w, ", price %s to %s", format.Price(p.MinPrice, ""), format.Price(p.MaxPrice, ""))
	}
	fmt.Fprintln(w)
	return nil
}

func newItemsListCmd(a *app) *cobra.Command {
	var sel selectionFlags
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show one page of items",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := sel.controller(cmd, a)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), ctrl)
		},
	}
	sel.register(cmd)
	return cmd
}

// itemFlags are the editable fields of an item.
type itemFlags struct {
	address     string
	description string
	date        string
	price       string
	currency    string
	tags        string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.address, "address", "", "address id (\"\" for unlocated)")
	fl.StringVar(&f.description, "desc", "", "description")
	fl.StringVar(&f.date, "date", "", "purchase date, YYYY-MM-DD")
	fl.StringVar(&f.price, "price", "", "purchase price, e.g. 89.99")
	fl.StringVar(&f.currency, "currency", "", "currency symbol or code")
	fl.StringVar(&f.tags, "tags", "", "comma-separated tags")
}

func newItemsAddCmd(a *app) *cobra.Command {
	var f itemFlags
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := format.ParsePrice(f.price)
			if err != nil {
				return err
			}
			it, err := a.inv.CreateItem(cmd.Context(), model.ItemInput{
				Name:               args[0],
				AddressID:          f.address,
				Description:        f.description,
				PurchaseDate:       f.date,
				PurchasePriceCents: price,
				Currency:           f.currency,
				Tags:               format.ParseTags(f.tags),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", it.Name, it.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newItemsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Print one item as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, ok, err := a.inv.GetItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no item with id %s", args[0])
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(it)
		},
	}
}

func newItemsEditCmd(a *app) *cobra.Command {
	var (
		f    itemFlags
		name string
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the given fields of an item; empty values clear optional fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := f.patch(cmd, name)
			if err != nil {
				return err
			}
			it, ok, err := a.inv.UpdateItem(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no item with id %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", it.Name)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "new name")
	return cmd
}

// patch includes only the flags the user set.
func (f *itemFlags) patch(cmd *cobra.Command, name string) (model.ItemPatch, error) {
	changed := cmd.Flags().Changed
	var p model.ItemPatch

	if changed("name") {
		p.Name = &name
	}
	p.AddressID = optString(changed("address"), f.address)
	p.Description = optString(changed("desc"), f.description)
	p.PurchaseDate = optString(changed("date"), f.date)
	p.Currency = optString(changed("currency"), f.currency)
	if changed("price") {
		price, err := format.ParsePrice(f.price)
		if err != nil {
			return p, err
		}
		if price == nil {
			p.PurchasePriceCents = model.Clear[int64]()
		} else {
			p.PurchasePriceCents = model.Some(*price)
		}
	}
	if changed("tags") {
		tags := format.ParseTags(f.tags)
		p.Tags = &tags
	}
	return p, nil
}

func optString(set bool, v string) model.Opt[string] {
	switch {
	case !set:
		return model.Opt[string]{}
	case v == "":
		return model.Clear[string]()
	default:
		return model.Some(v)
	}
}

func newItemsRmCmd(a *app) *cobra.Command {
	var (
		sel     selectionFlags
		visible bool
	)
	cmd := &cobra.Command{
		Use:   "rm [ID...]",
		Short: "Delete items by id, or every visible item with --visible",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !visible {
				switch len(args) {
				case 0:
					return errors.New("give item ids or --visible")
				case 1:
					return a.inv.DeleteItem(ctx, args[0])
				default:
					return a.inv.BulkDeleteItems(ctx, args)
				}
			}

			ctrl, err := sel.controller(cmd, a)
			if err != nil {
				return err
			}
			ctrl.SelectAllVisible()
			n := ctrl.SelectedCount()
			if err := ctrl.BulkDelete(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d items\n", n)
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().BoolVar(&visible, "visible", false, "delete every item the filters show")
	return cmd
}

func newItemsMoveCmd(a *app) *cobra.Command {
	var (
		sel     selectionFlags
		to      string
		visible bool
	)
	cmd := &cobra.Command{
		Use:   "move [ID...] --to ADDRESS",
		Short: "Move items to an address (--to \"\" for unlocated)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("to") {
				return errors.New("--to is required")
			}
			target := model.AtAddress(to)
			ctx := cmd.Context()

			if !visible {
				if len(args) == 0 {
					return errors.New("give item ids or --visible")
				}
				return a.inv.MoveItems(ctx, args, target)
			}

			ctrl, err := sel.controller(cmd, a)
			if err != nil {
				return err
			}
			ctrl.SelectAllVisible()
			n := ctrl.SelectedCount()
			if err := ctrl.BulkMove(ctx, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %d items\n", n)
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVar(&to, "to", "", "destination address id")
	cmd.Flags().BoolVar(&visible, "visible", false, "move every item the filters show")
	return cmd
}
