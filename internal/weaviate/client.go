// Package weaviate adapts the official Weaviate Go client to the types and
// calls the tracker needs.
package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	wv "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
)

// DefaultTimeout bounds a single call when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// URL is the server address, e.g. https://localhost:8080.
	URL string

	// Username and Password enable OIDC password authentication when both are set.
	Username string
	Password string

	// Scopes requested during authentication. Defaults to offline_access.
	Scopes []string

	// Timeout for a single call.
	Timeout time.Duration
}

// Client talks to one Weaviate server.
type Client struct {
	db      *wv.Client
	baseURL string
	timeout time.Duration
}

// New creates a client for the server at opts.URL.
// Without credentials no request is made until the first call.
func New(ctx context.Context, opts Options) (*Client, error) {
	u, err := parseURL(opts.URL)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cfg := wv.Config{
		Host:    u.Host,
		Scheme:  u.Scheme,
		Headers: map[string]string{},
	}
	if opts.Username != "" && opts.Password != "" {
		log.Debug("Authenticating with Weaviate", "url", u.String(), "username", opts.Username)
		cfg.AuthConfig = auth.ResourceOwnerPasswordFlow{
			Username: opts.Username,
			Password: opts.Password,
			Scopes:   opts.Scopes,
		}
	}

	db, err := wv.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Client{
		db:      db,
		baseURL: u.Scheme + "://" + u.Host,
		timeout: timeout,
	}, nil
}

// BaseURL returns the normalized server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call bounds one round trip by the client timeout.
func (c *Client) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// parseURL checks that raw is an absolute http(s) URL without a path.
func parseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	if strings.Trim(u.Path, "/") != "" {
		return nil, fmt.Errorf("invalid server URL %q: path prefixes are not supported", raw)
	}
	return u, nil
}

// convert copies a client model into one of this package's types through
// their shared JSON form.
func convert(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %T: %w", in, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %T: %w", out, err)
	}
	return nil
}

// Meta describes the server build.
type Meta struct {
	Hostname string         `json:"hostname"`
	Version  string         `json:"version"`
	Modules  map[string]any `json:"modules"`
}

// Meta fetches server metadata.
func (c *Client) Meta(ctx context.Context) (*Meta, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()

	m, err := c.db.Misc().MetaGetter().Do(ctx)
	if err != nil {
		return nil, err
	}
	var meta Meta
	if err := convert(m, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Ready reports whether the server accepts traffic. An error means the
// server could not be asked at all.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()
	return c.db.Misc().ReadyChecker().Do(ctx)
}
