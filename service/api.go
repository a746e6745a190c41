package service

// CacheStatusResponse wraps values
// returned by calls to /status/cache
type CacheStatusResponse struct {
	Enabled bool   `json:"enabled"`          // whether backend responses are cached
	Backend string `json:"backend"`          // storage used for cached responses, memory or redis
	Entries *int   `json:"entries,omitempty"` // number of cached responses, only known for the memory backend
	Routes  int    `json:"routes"`           // number of rules in the routing table
}
