package client

import (
	"context"
	"net/http"

	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/prefs"
	"github.com/sakif/stash/internal/service"
)

// Me returns the signed-in user, or nil when there is no session.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out *model.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Login stores the session cookie on success.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, service.Credentials{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup creates an account and stores the session cookie on success.
func (c *Client) Signup(ctx context.Context, email, password string) (*model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodPost, "/auth/signup", nil, service.Credentials{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the session on the server. The server expires the cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// Preferences returns a prefs.Storage backed by /preferences.
func (c *Client) Preferences() prefs.Storage {
	return remotePrefs{c: c}
}

type remotePrefs struct{ c *Client }

func (r remotePrefs) Load(ctx context.Context) (prefs.Preferences, error) {
	out := prefs.Defaults()
	if err := r.c.do(ctx, http.MethodGet, "/preferences", nil, nil, &out); err != nil {
		return prefs.Defaults(), err
	}
	return out.Normalize(), nil
}

func (r remotePrefs) Save(ctx context.Context, p prefs.Preferences) error {
	return r.c.do(ctx, http.MethodPut, "/preferences", nil, p.Normalize(), nil)
}
