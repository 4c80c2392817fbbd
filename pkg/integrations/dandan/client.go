// Package dandan is a client for the danmaku search and comment API.
//
// The API is treated as a black box with two endpoints: an episode search
// keyed by title keyword and a per-episode comment feed returned as raw
// XML. Comment fetches mark every failure as retryable since the batch
// orchestrator owns the retry budget.
package dandan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danmuget/danmuget/pkg/cache"
	"github.com/danmuget/danmuget/pkg/httputil"
)

// Sentinel errors for API failures.
var (
	// ErrNetwork is returned for transport-level failures.
	ErrNetwork = errors.New("network error")

	// ErrStatus is returned for non-success HTTP responses.
	ErrStatus = errors.New("unexpected status")
)

// Request deadlines carried over from the service's observed latency:
// search responses are small, comment feeds can run to megabytes.
const (
	searchTimeout  = 10 * time.Second
	commentTimeout = 12 * time.Second
)

// searchCacheTTL bounds how long a cached search response is served.
const searchCacheTTL = time.Hour

// Client talks to one API root. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	cache   cache.Cache
}

// NewClient creates a client for the given API root URL. Searches are
// not cached until [Client.WithCache] is called.
func NewClient(baseURL string) *Client {
	return &Client{
		http:    &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache.NewNullCache(),
	}
}

// WithCache serves repeat searches from store instead of the network.
// Comment feeds are never cached; they are fetched exactly once per task.
func (c *Client) WithCache(store cache.Cache) *Client {
	c.cache = store
	return c
}

type searchResponse struct {
	Animes []Anime `json:"animes"`
}

// SearchEpisodes looks up resources matching the keyword and returns them
// in API order. Responses are cached for a short while when a cache is
// attached; cache failures fall through to the network.
func (c *Client) SearchEpisodes(ctx context.Context, keyword string) ([]Anime, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	key := cache.Key("search", c.baseURL, keyword)
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		var res searchResponse
		if err := json.Unmarshal(data, &res); err == nil {
			return res.Animes, nil
		}
	}

	u := fmt.Sprintf("%s/api/v2/search/episodes?anime=%s", c.baseURL, url.QueryEscape(keyword))
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	var res searchResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	_ = c.cache.Set(ctx, key, data, searchCacheTTL)
	return res.Animes, nil
}

// Comments fetches the raw XML comment feed for an episode. Errors are
// wrapped as [httputil.RetryableError] so the caller's retry loop treats
// them as transient.
func (c *Client) Comments(ctx context.Context, episodeID int64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, commentTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/api/v2/comment/%d?format=xml", c.baseURL, episodeID)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)}
	}
	return resp.Body, nil
}
