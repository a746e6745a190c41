package httpcache

import (
	"net/http"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/composable"
)

const CacheStatusRootKey = "cache-status"

// CacheStatusRoot aggregates the cache status of every backend response
// taking part in a request and reports it on the outer response:
// HIT when all were served from the cache, MISS when none were, PARTIAL otherwise
type CacheStatusRoot struct {
	hits   int
	misses int
}

var _ composable.Root = CacheStatusRoot{}

func (r CacheStatusRoot) Key() string {
	return CacheStatusRootKey
}

func (r CacheStatusRoot) EnrichRequest(req *http.Request) *http.Request {
	return req
}

// FragmentFor returns whether res was a cache hit, nil when res was
// not seen by the cache at all
func (r CacheStatusRoot) FragmentFor(res *backend.Response) composable.Fragment {
	switch res.Header.Get(CacheHeaderKey) {
	case CacheHitHeaderValue:
		return true
	case CacheMissHeaderValue:
		return false
	}
	return nil
}

func (r CacheStatusRoot) ComposedWith(fragment composable.Fragment) composable.Root {
	hit, ok := fragment.(bool)
	if !ok {
		return r
	}
	if hit {
		r.hits++
	} else {
		r.misses++
	}
	return r
}

// Status returns the aggregated cache status, empty when nothing was observed
func (r CacheStatusRoot) Status() string {
	switch {
	case r.hits == 0 && r.misses == 0:
		return ""
	case r.misses == 0:
		return CacheHitHeaderValue
	case r.hits == 0:
		return CacheMissHeaderValue
	}
	return CachePartialHeaderValue
}

func (r CacheStatusRoot) WriteTo(res *backend.Response) *backend.Response {
	status := r.Status()
	if status == "" {
		return res
	}
	return res.WithHeader(CacheHeaderKey, status)
}
