// Package client talks to a stash server over its JSON API. A Client
// satisfies service.Inventory, so the CLI drives a remote account exactly
// like the local guest store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/sakif/stash/internal/auth"
)

// APIError is any non-2xx response.
//
// Message is the body's "message" field, or the HTTP status text. Details
// is the decoded body: a JSON value, the raw text when it is not JSON, or
// nil when the body is empty.
type APIError struct {
	Status  int
	Message string
	Details any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client holds the base URL and a cookie jar for the session cookie.
type Client struct {
	base *url.URL
	http *http.Client
	jar  http.CookieJar
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Jar is replaced by the
// Client's own jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a client for baseURL, e.g. "http://localhost:8080/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: base URL %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("client: creating cookie jar: %w", err)
	}

	// No client-wide timeout: callers bound requests through ctx.
	c := &Client{base: u, jar: jar, http: &http.Client{}}
	for _, o := range opts {
		o(c)
	}
	hc := *c.http
	hc.Jar = jar
	c.http = &hc
	return c, nil
}

// SetToken installs a saved session token.
func (c *Client) SetToken(token string) {
	if token == "" {
		return
	}
	c.jar.SetCookies(c.base, []*http.Cookie{{Name: auth.CookieName, Value: token, Path: "/"}})
}

// Token returns the current session token, or "".
func (c *Client) Token() string {
	for _, ck := range c.jar.Cookies(c.base) {
		if ck.Name == auth.CookieName {
			return ck.Value
		}
	}
	return ""
}

// do sends one request. A nil body sends no body; a nil out discards the
// response. Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return fmt.Errorf("client: building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: reading %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func newAPIError(resp *http.Response, raw []byte) *APIError {
	e := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	if len(bytes.TrimSpace(raw)) == 0 {
		return e
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		e.Details = string(raw)
		return e
	}
	e.Details = decoded
	if obj, ok := decoded.(map[string]any); ok {
		if msg, ok := obj["message"].(string); ok && msg != "" {
			e.Message = msg
		}
	}
	return e
}

// absent maps a 404 to (false, nil) for lookups where "not found" is a
// normal answer.
func absent(err error) (bool, error) {
	if StatusOf(err) == http.StatusNotFound {
		return false, nil
	}
	return err == nil, err
}

func pathID(prefix, id string, suffix ...string) string {
	return prefix + "/" + url.PathEscape(id) + strings.Join(suffix, "")
}
