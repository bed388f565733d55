package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/service"
)

var _ service.Inventory = (*Client)(nil)

func pageQuery(page, pageSize int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	return q
}

func (c *Client) ListAddresses(ctx context.Context, page, pageSize int) (model.Page[model.Address], error) {
	var out model.Page[model.Address]
	err := c.do(ctx, http.MethodGet, "/addresses", pageQuery(page, pageSize), nil, &out)
	return out, err
}

func (c *Client) GetAddress(ctx context.Context, id string) (model.Address, bool, error) {
	var out model.Address
	ok, err := absent(c.do(ctx, http.MethodGet, pathID("/addresses", id), nil, nil, &out))
	return out, ok, err
}

func (c *Client) CreateAddress(ctx context.Context, in model.AddressInput) (model.Address, error) {
	var out model.Address
	err := c.do(ctx, http.MethodPost, "/addresses", nil, in, &out)
	return out, err
}

func (c *Client) UpdateAddress(ctx context.Context, id string, patch model.AddressPatch) (model.Address, bool, error) {
	var out model.Address
	ok, err := absent(c.do(ctx, http.MethodPut, pathID("/addresses", id), nil, patch, &out))
	return out, ok, err
}

func (c *Client) ShareAddress(ctx context.Context, id, email string) (model.Address, bool, error) {
	var out model.Address
	ok, err := absent(c.do(ctx, http.MethodPost, pathID("/addresses", id, "/share"), nil, model.ShareRequest{Email: email}, &out))
	return out, ok, err
}

func (c *Client) UnshareAddress(ctx context.Context, id, email string) (model.Address, bool, error) {
	var out model.Address
	ok, err := absent(c.do(ctx, http.MethodPost, pathID("/addresses", id, "/unshare"), nil, model.ShareRequest{Email: email}, &out))
	return out, ok, err
}

func (c *Client) DeleteAddress(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, pathID("/addresses", id), nil, nil, nil)
}

func itemQuery(q model.ItemQuery) url.Values {
	v := pageQuery(q.Page, q.PageSize)
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	q.Address.Encode(v)
	return v
}

func (c *Client) ListItems(ctx context.Context, q model.ItemQuery) (model.Page[model.Item], error) {
	var out model.Page[model.Item]
	err := c.do(ctx, http.MethodGet, "/items", itemQuery(q), nil, &out)
	return out, err
}

// View fetches one derived page with bounds computed by the server.
func (c *Client) View(ctx context.Context, vq service.ViewQuery) (service.View, error) {
	v := itemQuery(vq.ItemQuery)
	if vq.Sort != "" {
		v.Set("sort", string(vq.Sort))
	}
	if vq.Tag != "" {
		v.Set("tag", vq.Tag)
	}
	if vq.MinPrice != nil {
		v.Set("minPrice", strconv.FormatInt(*vq.MinPrice, 10))
	}
	if vq.MaxPrice != nil {
		v.Set("maxPrice", strconv.FormatInt(*vq.MaxPrice, 10))
	}
	var out service.View
	err := c.do(ctx, http.MethodGet, "/items/view", v, nil, &out)
	return out, err
}

func (c *Client) GetItem(ctx context.Context, id string) (model.Item, bool, error) {
	var out model.Item
	ok, err := absent(c.do(ctx, http.MethodGet, pathID("/items", id), nil, nil, &out))
	return out, ok, err
}

func (c *Client) CreateItem(ctx context.Context, in model.ItemInput) (model.Item, error) {
	var out model.Item
	err := c.do(ctx, http.MethodPost, "/items", nil, in, &out)
	return out, err
}

func (c *Client) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) (model.Item, bool, error) {
	var out model.Item
	ok, err := absent(c.do(ctx, http.MethodPut, pathID("/items", id), nil, patch, &out))
	return out, ok, err
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, pathID("/items", id), nil, nil, nil)
}

func (c *Client) BulkDeleteItems(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/items/bulk-delete", nil, model.BulkRequest{IDs: ids}, nil)
}

func (c *Client) MoveItems(ctx context.Context, ids []string, target model.AddressFilter) error {
	if len(ids) == 0 {
		return nil
	}
	req := model.MoveRequest{IDs: ids}
	if id, ok := target.AddressID(); ok {
		req.AddressID = &id
	}
	return c.do(ctx, http.MethodPost, "/items/bulk-move", nil, req, nil)
}
