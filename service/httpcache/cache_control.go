package httpcache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CacheControl holds the Cache-Control directives relevant for caching
type CacheControl struct {
	NoStore bool
	NoCache bool
	// MaxAge is zero when absent or invalid
	MaxAge time.Duration
}

// ParseCacheControl reads the Cache-Control directives of h. directive
// names are case insensitive, when max-age is repeated the first one wins
func ParseCacheControl(h http.Header) CacheControl {
	var cc CacheControl
	maxAgeSeen := false

	for _, value := range h.Values("Cache-Control") {
		for _, directive := range strings.Split(value, ",") {
			name, arg, _ := strings.Cut(strings.TrimSpace(directive), "=")
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "no-store":
				cc.NoStore = true
			case "no-cache":
				cc.NoCache = true
			case "max-age":
				if maxAgeSeen {
					continue
				}
				maxAgeSeen = true
				seconds, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(arg), `"`), 10, 64)
				if err == nil && seconds > 0 {
					cc.MaxAge = time.Duration(seconds) * time.Second
				}
			}
		}
	}

	return cc
}

// Storable reports whether a response carrying these directives may be
// stored, and for how long
func (cc CacheControl) Storable() (time.Duration, bool) {
	if cc.NoStore || cc.NoCache || cc.MaxAge <= 0 {
		return 0, false
	}
	return cc.MaxAge, true
}

// bypassesCache reports whether the request asks for a fresh response
func bypassesCache(req *http.Request) bool {
	if ParseCacheControl(req.Header).NoCache {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(req.Header.Get("Pragma")), "no-cache")
}
