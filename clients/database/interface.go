// package database defines the storage of composed request metrics,
// implemented by the postgres and noop subpackages
package database

import (
	"context"
	"time"
)

// MetricsDatabase stores one metric per request served by the composer
type MetricsDatabase interface {
	SaveComposedRequestMetric(ctx context.Context, metric *ComposedRequestMetric) error
	ListComposedRequestMetricsWithPagination(ctx context.Context, cursor int64, limit int) ([]*ComposedRequestMetric, int64, error)
	DeleteComposedRequestMetricsOlderThanNDays(ctx context.Context, n int64) error
	HealthCheck() error
}

// ComposedRequestMetric describes a single request served by the composer
type ComposedRequestMetric struct {
	ID                          int64
	Path                        string
	Method                      string
	RouteType                   string
	StatusCode                  int
	ResponseLatencyMilliseconds int64
	IncludesFetched             int
	CacheStatus                 string
	Hostname                    string
	RequestIP                   string
	UserAgent                   *string
	Referer                     *string
	RequestTime                 time.Time
}
