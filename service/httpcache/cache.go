package httpcache

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/clients/cache"
	"github.com/kava-labs/composer-proxy-service/logging"
)

const (
	CacheHeaderKey          = "X-Composer-Cache-Status"
	CacheHitHeaderValue     = "HIT"
	CacheMissHeaderValue    = "MISS"
	CachePartialHeaderValue = "PARTIAL"
)

// HttpCache serves backend responses from a cache.Store while they are fresh
type HttpCache struct {
	store   cache.Store
	enabled bool
	now     func() time.Time
	metrics *Metrics

	*logging.ServiceLogger
}

// Option configures an HttpCache
type Option func(*HttpCache)

// WithClock replaces time.Now as the source of the current time
func WithClock(now func() time.Time) Option {
	return func(c *HttpCache) {
		c.now = now
	}
}

// WithMetrics records cache outcomes in m
func WithMetrics(m *Metrics) Option {
	return func(c *HttpCache) {
		c.metrics = m
	}
}

// New returns a cache over store. store may be nil when enabled is false
func New(store cache.Store, enabled bool, logger *logging.ServiceLogger, opts ...Option) *HttpCache {
	c := &HttpCache{
		store:         store,
		enabled:       enabled && store != nil,
		now:           time.Now,
		ServiceLogger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Disabled returns a cache passing every request straight through
func Disabled(logger *logging.ServiceLogger) *HttpCache {
	return New(nil, false, logger)
}

func (c *HttpCache) IsCacheEnabled() bool {
	return c.enabled
}

// Store returns the underlying storage, nil when disabled
func (c *HttpCache) Store() cache.Store {
	return c.store
}

func (c *HttpCache) Healthcheck(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	return c.store.Healthcheck(ctx)
}

// Decorate returns client wrapped with the cache
func (c *HttpCache) Decorate(client backend.Client) backend.Client {
	if !c.enabled {
		return client
	}
	return backend.ClientFunc(func(req *http.Request) (*backend.Response, error) {
		return c.WithCaching(req, client)
	})
}

// WithCaching returns the fresh cached response for req, or sends req with
// client and stores the response when its Cache-Control allows it
func (c *HttpCache) WithCaching(req *http.Request, client backend.Client) (*backend.Response, error) {
	if !c.enabled {
		return client.Send(req)
	}

	if req.Method != http.MethodGet {
		return client.Send(req)
	}

	ctx := req.Context()
	key := Key(req)

	if bypassesCache(req) {
		c.metrics.recordBypass()
		c.Logger.Trace().Str("key", key).Msg("request bypasses cache lookup")
	} else if cached, ok := c.lookup(ctx, key); ok {
		return cached, nil
	}

	res, err := client.Send(req)
	if err != nil || res == nil {
		return res, err
	}

	c.admit(ctx, key, res)

	return res.WithHeader(CacheHeaderKey, CacheMissHeaderValue), nil
}

// Key returns the cache key of req, its full URL including the query
func Key(req *http.Request) string {
	return req.URL.String()
}

func (c *HttpCache) lookup(ctx context.Context, key string) (*backend.Response, bool) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.metrics.recordError("get")
			c.Logger.Error().
				Err(err).
				Str("key", key).
				Msg("error during getting response from cache")
		}
		c.metrics.recordMiss()
		return nil, false
	}

	if entry.Expired(c.now()) {
		if err := c.store.Delete(ctx, key); err != nil {
			c.metrics.recordError("delete")
			c.Logger.Error().Err(err).Str("key", key).Msg("error deleting expired cache entry")
		}
		c.metrics.recordMiss()
		c.Logger.Trace().Str("key", key).Msg("cache entry expired")
		return nil, false
	}

	c.metrics.recordHit()
	c.Logger.Trace().Str("key", key).Msg("cache hit")

	res := &backend.Response{
		StatusCode: entry.StatusCode,
		Header:     entry.Header.Clone(),
		Body:       entry.Body,
	}
	if res.Header == nil {
		res.Header = http.Header{}
	}
	res.Header.Set(CacheHeaderKey, CacheHitHeaderValue)

	return res, true
}

func (c *HttpCache) admit(ctx context.Context, key string, res *backend.Response) {
	maxAge, ok := ParseCacheControl(res.Header).Storable()
	if !ok {
		return
	}

	stored := res.Clone()
	entry := cache.Entry{
		StatusCode: stored.StatusCode,
		Header:     stored.Header,
		Body:       stored.Body,
		Expires:    c.now().Add(maxAge),
	}

	if err := c.store.Set(ctx, key, entry, maxAge); err != nil {
		c.metrics.recordError("set")
		c.Logger.Error().
			Err(err).
			Str("key", key).
			Msg("error during caching response")
		return
	}

	c.metrics.recordStore()
	c.Logger.Trace().Str("key", key).Dur("max_age", maxAge).Msg("response cached")
}
