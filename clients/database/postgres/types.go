package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/kava-labs/composer-proxy-service/clients/database"
)

// ComposedRequestMetric is the row of a database.ComposedRequestMetric
type ComposedRequestMetric struct {
	bun.BaseModel `bun:"table:composed_request_metrics,alias:crm"`

	ID                          int64 `bun:",pk,autoincrement"`
	Path                        string
	Method                      string
	RouteType                   string
	StatusCode                  int
	ResponseLatencyMilliseconds int64
	IncludesFetched             int
	CacheStatus                 string
	Hostname                    string
	RequestIP                   string `bun:"request_ip"`
	UserAgent                   *string
	Referer                     *string
	RequestTime                 time.Time
}

func (crm *ComposedRequestMetric) ToComposedRequestMetric() *database.ComposedRequestMetric {
	return &database.ComposedRequestMetric{
		ID:                          crm.ID,
		Path:                        crm.Path,
		Method:                      crm.Method,
		RouteType:                   crm.RouteType,
		StatusCode:                  crm.StatusCode,
		ResponseLatencyMilliseconds: crm.ResponseLatencyMilliseconds,
		IncludesFetched:             crm.IncludesFetched,
		CacheStatus:                 crm.CacheStatus,
		Hostname:                    crm.Hostname,
		RequestIP:                   crm.RequestIP,
		UserAgent:                   crm.UserAgent,
		Referer:                     crm.Referer,
		RequestTime:                 crm.RequestTime,
	}
}

func convertComposedRequestMetric(metric *database.ComposedRequestMetric) *ComposedRequestMetric {
	return &ComposedRequestMetric{
		ID:                          metric.ID,
		Path:                        metric.Path,
		Method:                      metric.Method,
		RouteType:                   metric.RouteType,
		StatusCode:                  metric.StatusCode,
		ResponseLatencyMilliseconds: metric.ResponseLatencyMilliseconds,
		IncludesFetched:             metric.IncludesFetched,
		CacheStatus:                 metric.CacheStatus,
		Hostname:                    metric.Hostname,
		RequestIP:                   metric.RequestIP,
		UserAgent:                   metric.UserAgent,
		Referer:                     metric.Referer,
		RequestTime:                 metric.RequestTime,
	}
}
