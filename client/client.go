package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client sends requests to a sessiongate-protected service.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *TokenCache
}

type options struct {
	httpClient     *http.Client
	logger         zerolog.Logger
	refreshTimeout time.Duration
	header         string
	issuer         Issuer
}

// Option configures [New].
type Option func(*options)

// WithHTTPClient sets the client whose transport carries both issuance and
// protected calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithLogger sets the logger for refresh and retry events.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRefreshTimeout bounds each issuance call.
func WithRefreshTimeout(d time.Duration) Option {
	return func(o *options) { o.refreshTimeout = d }
}

// WithHeader overrides the session token header name.
func WithHeader(name string) Option {
	return func(o *options) { o.header = name }
}

// WithIssuer replaces the HTTP issuer, e.g. to mint tokens in-process.
func WithIssuer(issuer Issuer) Option {
	return func(o *options) { o.issuer = issuer }
}

// New returns a client for the service at baseURL with its own token cache.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("client base URL must be absolute")
	}

	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	base := o.httpClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL = strings.TrimRight(baseURL, "/")

	issuer := o.issuer
	if issuer == nil {
		issuer = NewHTTPIssuer(baseURL, base)
	}
	cache := NewTokenCache(issuer, o.refreshTimeout, o.logger)

	hc := *base
	hc.Transport = &Transport{
		Base:   base.Transport,
		Cache:  cache,
		Header: o.header,
		Logger: o.logger,
	}

	return &Client{
		baseURL: baseURL,
		http:    &hc,
		cache:   cache,
	}, nil
}

// Cache exposes the client's token cache.
func (c *Client) Cache() *TokenCache {
	return c.cache
}

// HTTPClient returns the *http.Client that attaches and refreshes tokens.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Do sends req with a session token. A 401 is retried once with a fresh
// token; whatever the second attempt returns is final.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// Get issues GET {base}{path}.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// PostJSON issues POST {base}{path} with body encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req)
}
