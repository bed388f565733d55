// Package view renders items as text for the terminal in the three layouts
// a user can pick: list, grid and column4.
package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sakif/stash/internal/format"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/prefs"
)

const (
	gridCardWidth = 36
	columns       = 4
)

// Labels maps address ids to labels for display. Missing ids print as "-".
type Labels map[string]string

func (l Labels) of(it model.Item) string {
	if it.Unlocated() {
		return "-"
	}
	if label, ok := l[it.AddressID]; ok {
		return label
	}
	return "-"
}

// LabelsOf indexes addresses by id.
func LabelsOf(addresses []model.Address) Labels {
	l := make(Labels, len(addresses))
	for _, a := range addresses {
		l[a.ID] = a.Label
	}
	return l
}

// Render writes items in the given layout. selected marks rows with "*".
func Render(w io.Writer, mode prefs.ViewMode, items []model.Item, labels Labels, selected func(id string) bool) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No items.")
		return err
	}
	if selected == nil {
		selected = func(string) bool { return false }
	}
	switch mode {
	case prefs.ViewGrid:
		return grid(w, items, labels, selected)
	case prefs.ViewColumn4:
		return column4(w, items, selected)
	default:
		return list(w, items, labels, selected)
	}
}

func mark(sel bool) string {
	if sel {
		return "*"
	}
	return " "
}

func list(w io.Writer, items []model.Item, labels Labels, selected func(string) bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " \tNAME\tPRICE\tTAGS\tYEAR\tADDRESS\tID")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			mark(selected(it.ID)),
			it.Name,
			format.Price(it.PurchasePriceCents, it.Currency),
			format.Tags(it.Tags),
			format.Year(it.PurchaseDate),
			labels.of(it),
			it.ID,
		)
	}
	return tw.Flush()
}

func grid(w io.Writer, items []model.Item, labels Labels, selected func(string) bool) error {
	border := "+" + strings.Repeat("-", gridCardWidth) + "+"
	for _, it := range items {
		lines := []string{
			mark(selected(it.ID)) + " " + it.Name,
			"  " + format.Price(it.PurchasePriceCents, it.Currency),
			"  " + format.Tags(it.Tags),
			"  @ " + labels.of(it),
		}
		if it.Description != "" {
			lines = append(lines, "  "+it.Description)
		}
		if _, err := fmt.Fprintln(w, border); err != nil {
			return err
		}
		for _, l := range lines {
			if _, err := fmt.Fprintf(w, "|%-*s|\n", gridCardWidth, truncate(l, gridCardWidth)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, border); err != nil {
			return err
		}
	}
	return nil
}

func column4(w io.Writer, items []model.Item, selected func(string) bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	for start := 0; start < len(items); start += columns {
		row := items[start:min(start+columns, len(items))]
		cells := make([]string, len(row))
		for i, it := range row {
			cell := mark(selected(it.ID)) + truncate(it.Name, 20)
			if p := format.Price(it.PurchasePriceCents, it.Currency); p != "" {
				cell += " " + p
			}
			cells[i] = cell
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// truncate shortens s to n runes, marking the cut with "~".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
