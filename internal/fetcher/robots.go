package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"cybernews/internal/logger"
)

// RobotsAgent is the product token checked against robots.txt groups.
const RobotsAgent = "cybernews"

// RobotsCache fetches and caches robots.txt per host. Hosts whose robots.txt
// cannot be retrieved are treated as allowing everything.
type RobotsCache struct {
	client *http.Client
	log    *logger.Logger
	hosts  map[string]*robotstxt.RobotsData
	mu     sync.Mutex
}

// NewRobotsCache creates a cache using client for robots.txt requests.
func NewRobotsCache(client *http.Client, log *logger.Logger) *RobotsCache {
	if client == nil {
		client = http.DefaultClient
	}

	if log == nil {
		log = logger.Discard()
	}

	return &RobotsCache{
		client: client,
		log:    log,
		hosts:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether target may be fetched.
func (c *RobotsCache) Allowed(ctx context.Context, target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return true
	}

	data := c.lookup(ctx, u)
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return data.TestAgent(path, RobotsAgent)
}

func (c *RobotsCache) lookup(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host

	c.mu.Lock()
	defer c.mu.Unlock()

	if data, ok := c.hosts[key]; ok {
		return data
	}

	data := c.fetch(ctx, key)
	c.hosts[key] = data

	return data
}

func (c *RobotsCache) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", http.NoBody)
	if err != nil {
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("robots.txt unavailable", "origin", origin, "error", err)

		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		c.log.Debug("robots.txt unparsable", "origin", origin, "error", err)

		return nil
	}

	return data
}
