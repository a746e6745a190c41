package composing

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kava-labs/composer-proxy-service/logging"
)

const (
	PathAttribute     = "path"
	FallbackAttribute = "fallback"
	TTLAttribute      = "ttl"

	// NoTimeout is the ttl of an include without a usable ttl attribute
	NoTimeout time.Duration = math.MaxInt64
)

// IncludedService is one include element found in a document.
// [StartOffset, EndOffset) is the span of the whole element in the
// document it was parsed from
type IncludedService struct {
	StartOffset int
	EndOffset   int
	Attributes  map[string]string
	// Inner is the markup between the start and end tag
	Inner string
}

// Path returns the path attribute, empty when absent
func (s IncludedService) Path() string {
	return s.Attributes[PathAttribute]
}

// Fallback returns the fallback attribute, or the inner markup of the
// element when there is no such attribute
func (s IncludedService) Fallback() string {
	if fallback, ok := s.Attributes[FallbackAttribute]; ok {
		return fallback
	}
	return s.Inner
}

// TTL returns the ttl attribute in milliseconds, or a Go duration such
// as 250ms. a missing or unusable value means NoTimeout
func (s IncludedService) TTL(logger *logging.ServiceLogger) time.Duration {
	raw, ok := s.Attributes[TTLAttribute]
	if !ok {
		return NoTimeout
	}

	raw = strings.TrimSpace(raw)
	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil && millis > 0 {
		if millis > int64(NoTimeout/time.Millisecond) {
			return NoTimeout
		}
		return time.Duration(millis) * time.Millisecond
	}
	if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
		return parsed
	}

	logger.Warn().
		Str("path", s.Path()).
		Str("ttl", raw).
		Msg("ignoring invalid include ttl")

	return NoTimeout
}

// FetchContext returns what is needed to fetch the include
func (s IncludedService) FetchContext(logger *logging.ServiceLogger) FetchContext {
	return NewFetchContext(s.Path(), s.Fallback(), s.TTL(logger))
}
