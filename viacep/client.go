// Package viacep implements a core.Resolver backed by the ViaCEP postal code lookup service.
//
// ViaCEP answers unknown postal codes with a 200 response whose body is {"erro": true}; the client
// returns that payload untouched so callers can check [core.Payload.NotFound].
package viacep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/prior-it/cepcache/core"
)

const (
	DefaultURL     = "https://viacep.com.br/ws/%s/json/"
	DefaultTimeout = 10 * time.Second

	maxBodySize = 64 << 10
)

type Config struct {
	// URL is a template for the lookup endpoint, the postal code replaces its only %s verb.
	URL string
	// Timeout bounds every lookup, zero uses DefaultTimeout.
	Timeout time.Duration
	// MissTTL is how long a not-found answer is remembered, zero disables the miss cache.
	MissTTL time.Duration
}

type Client struct {
	url    string
	http   *http.Client
	misses *ttlcache.Cache[string, struct{}]
}

var _ core.Resolver = &Client{}

func NewClient(cfg Config) (*Client, error) {
	if len(cfg.URL) == 0 {
		cfg.URL = DefaultURL
	}
	if strings.Count(cfg.URL, "%s") != 1 {
		return nil, fmt.Errorf("resolver url %q should contain exactly one %%s", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := &Client{
		url:  cfg.URL,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.MissTTL > 0 {
		client.misses = ttlcache.New(
			ttlcache.WithTTL[string, struct{}](cfg.MissTTL),
			ttlcache.WithDisableTouchOnHit[string, struct{}](),
		)
		go client.misses.Start()
	}
	return client, nil
}

// Close stops the miss cache's expiry loop.
func (c *Client) Close() {
	if c.misses != nil {
		c.misses.Stop()
	}
}

// Resolve implements core.Resolver.
func (c *Client) Resolve(ctx context.Context, code string) (core.Payload, error) {
	if c.misses != nil && c.misses.Get(code) != nil {
		slog.DebugContext(ctx, "Postal code lookup skipped, recently not found", "postal_code", code)
		return core.Payload{"erro": true}, nil
	}

	endpoint := fmt.Sprintf(c.url, url.PathEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot look up postal code %q: %w", code, err)
	}
	defer res.Body.Close()
	slog.DebugContext(
		ctx,
		"Postal code lookup",
		"postal_code", code,
		"status", res.StatusCode,
		"duration", time.Since(start),
	)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxBodySize))
		return nil, fmt.Errorf("postal code lookup for %q returned status %d", code, res.StatusCode)
	}

	var payload core.Payload
	if err := json.NewDecoder(io.LimitReader(res.Body, maxBodySize)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("cannot decode lookup response for %q: %w", code, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("postal code lookup for %q returned an empty body", code)
	}

	if c.misses != nil && payload.NotFound() {
		c.misses.Set(code, struct{}{}, ttlcache.DefaultTTL)
	}
	return payload, nil
}
