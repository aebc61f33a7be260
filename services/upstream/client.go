package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/darasa/core"
)

// Client reads JSON resources from the upstream LMS API.
// Concurrent identical GETs share one round trip and responses are cached for the configured TTL.
type Client struct {
	baseURL string
	token   string
	rest    *rest.Client
	ttl     time.Duration

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	body    string
	expires time.Time
}

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return "upstream " + e.URL + ": " + http.StatusText(e.StatusCode) + ": " + strings.TrimSpace(e.Body)
}

func NewClient(conf core.UpstreamConfig) *Client {
	vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.BaseURL, "conf.BaseURL"),
	).CheckAndPanic()

	return &Client{
		baseURL: strings.TrimSuffix(conf.BaseURL, "/"),
		token:   conf.Token,
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: conf.Timeout}},
		ttl:     conf.CacheTTL,
		cache:   make(map[string]cacheEntry),
	}
}

// Get fetches path with the given query params and decodes the JSON response into dst.
func (c *Client) Get(ctx context.Context, path string, params url.Values, dst interface{}) error {
	key := path
	if len(params) > 0 {
		key += "?" + params.Encode() // sorted by key
	}

	if body, ok := c.cached(key); ok {
		return decode(body, dst)
	}

	// the shared fetch outlives any single caller; the HTTP client timeout bounds it
	ch := c.group.DoChan(key, func() (interface{}, error) {
		body, err := c.fetch(context.Background(), path, params)
		if err != nil {
			return nil, err
		}
		c.store(key, body)
		return body, nil
	})
	select {
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "upstream GET %s", path)
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return decode(res.Val.(string), dst)
	}
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) (string, error) {
	req := rest.Request{
		Method:      rest.Get,
		BaseURL:     c.baseURL + path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: make(map[string]string, len(params)),
	}
	if c.token != "" {
		req.Headers["Authorization"] = "Bearer " + c.token
	}
	for k := range params {
		req.QueryParams[k] = params.Get(k)
	}

	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return "", errors.Wrapf(err, "upstream GET %s", path)
	}
	switch {
	case res.StatusCode == http.StatusNotFound:
		return "", errors.Wrapf(core.ErrNotFound, "upstream GET %s", path)
	case res.StatusCode < 200 || res.StatusCode > 299:
		return "", &StatusError{URL: path, StatusCode: res.StatusCode, Body: res.Body}
	}
	return res.Body, nil
}

func (c *Client) cached(key string) (string, bool) {
	if c.ttl <= 0 {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		return "", false
	}
	if core.NowFunc().After(entry.expires) {
		delete(c.cache, key)
		return "", false
	}
	return entry.body, true
}

func (c *Client) store(key, body string) {
	if c.ttl <= 0 {
		return
	}
	now := core.NowFunc()
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, entry := range c.cache {
		if now.After(entry.expires) {
			delete(c.cache, k)
		}
	}
	c.cache[key] = cacheEntry{body: body, expires: now.Add(c.ttl)}
}

// Flush empties the response cache.
func (c *Client) Flush() {
	c.mu.Lock()
	c.cache = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func decode(body string, dst interface{}) error {
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return errors.Wrap(err, "decoding upstream response")
	}
	return nil
}
