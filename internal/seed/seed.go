// Package seed fills an inventory with demo data. It works against any
// service.Inventory, so the same fixtures load into the local guest store
// or a remote account.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/service"
)

var (
	//go:embed household.yaml
	householdYAML []byte
	//go:embed extra.yaml
	extraYAML []byte
)

type fixture struct {
	Addresses []fixtureAddress `yaml:"addresses"`
}

type fixtureAddress struct {
	Label      string        `yaml:"label"`
	Street     string        `yaml:"street"`
	City       string        `yaml:"city"`
	PostalCode string        `yaml:"postalCode"`
	Items      []fixtureItem `yaml:"items"`
}

type fixtureItem struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Price       *int64   `yaml:"price"`
	Tags        []string `yaml:"tags"`
	Date        string   `yaml:"date"`
}

// Result counts what was created.
type Result struct {
	Addresses int
	Items     int
}

// resetter is implemented by local inventories that can drop the whole
// record at once.
type resetter interface {
	Reset(ctx context.Context) error
}

// Reset deletes every address and item, then loads the household set.
func Reset(ctx context.Context, inv service.Inventory) (Result, error) {
	if r, ok := inv.(resetter); ok {
		if err := r.Reset(ctx); err != nil {
			return Result{}, fmt.Errorf("seed: %w", err)
		}
	} else if err := clearAll(ctx, inv); err != nil {
		return Result{}, err
	}
	return load(ctx, inv, householdYAML, false)
}

// Add loads the extra set on top of existing data, reusing addresses whose
// label already exists.
func Add(ctx context.Context, inv service.Inventory) (Result, error) {
	return load(ctx, inv, extraYAML, true)
}

func load(ctx context.Context, inv service.Inventory, raw []byte, reuse bool) (Result, error) {
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return Result{}, fmt.Errorf("seed: parsing fixtures: %w", err)
	}

	existing := map[string]string{}
	if reuse {
		all, err := allAddresses(ctx, inv)
		if err != nil {
			return Result{}, err
		}
		for _, a := range all {
			if _, seen := existing[a.Label]; !seen {
				existing[a.Label] = a.ID
			}
		}
	}

	var res Result
	for _, fa := range fx.Addresses {
		id, ok := existing[fa.Label]
		if !ok {
			a, err := inv.CreateAddress(ctx, model.AddressInput{
				Label:      fa.Label,
				Street:     fa.Street,
				City:       fa.City,
				PostalCode: fa.PostalCode,
			})
			if err != nil {
				return res, fmt.Errorf("seed: creating address %q: %w", fa.Label, err)
			}
			id = a.ID
			res.Addresses++
		}

		for _, fi := range fa.Items {
			_, err := inv.CreateItem(ctx, model.ItemInput{
				AddressID:          id,
				Name:               fi.Name,
				Description:        fi.Description,
				PurchaseDate:       fi.Date,
				PurchasePriceCents: fi.Price,
				Tags:               fi.Tags,
			})
			if err != nil {
				return res, fmt.Errorf("seed: creating item %q: %w", fi.Name, err)
			}
			res.Items++
		}
	}
	return res, nil
}

func clearAll(ctx context.Context, inv service.Inventory) error {
	addrs, err := allAddresses(ctx, inv)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		if err := inv.DeleteAddress(ctx, a.ID); err != nil {
			return fmt.Errorf("seed: deleting address %s: %w", a.ID, err)
		}
	}

	for {
		page, err := inv.ListItems(ctx, model.ItemQuery{Page: 1, PageSize: service.MaxPageSize})
		if err != nil {
			return fmt.Errorf("seed: listing items: %w", err)
		}
		if len(page.Items) == 0 {
			return nil
		}
		ids := make([]string, len(page.Items))
		for i, it := range page.Items {
			ids[i] = it.ID
		}
		if err := inv.BulkDeleteItems(ctx, ids); err != nil {
			return fmt.Errorf("seed: deleting items: %w", err)
		}
	}
}

func allAddresses(ctx context.Context, inv service.Inventory) ([]model.Address, error) {
	var all []model.Address
	for page := 1; ; page++ {
		p, err := inv.ListAddresses(ctx, page, service.MaxPageSize)
		if err != nil {
			return nil, fmt.Errorf("seed: listing addresses: %w", err)
		}
		all = append(all, p.Items...)
		if len(p.Items) == 0 || len(all) >= p.Total {
			return all, nil
		}
	}
}
