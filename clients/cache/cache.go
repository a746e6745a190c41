// package cache provides the storage used by the http response cache,
// either an in process sharded LRU or a shared Redis instance
package cache

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var ErrNotFound = errors.New("value not found in the cache")

// Entry is a stored backend response together with the instant it expires
type Entry struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	Expires    time.Time   `json:"expires"`
}

// Expired reports whether the entry is no longer fresh at now
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.Expires)
}

// Store persists entries by key. ttl is a hint for stores that can
// expire entries on their own, freshness is always checked by the caller
type Store interface {
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Get(ctx context.Context, key string) (Entry, error)
	Delete(ctx context.Context, key string) error
	Healthcheck(ctx context.Context) error
}

// Sizer is implemented by stores that know how many entries they hold
type Sizer interface {
	Len() int
}
