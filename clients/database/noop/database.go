package noop

import (
	"context"

	"github.com/kava-labs/composer-proxy-service/clients/database"
)

// Noop is a database client that does nothing, used when
// metric persistence is disabled
type Noop struct{}

var _ database.MetricsDatabase = (*Noop)(nil)

func New() *Noop {
	return &Noop{}
}

func (e *Noop) SaveComposedRequestMetric(ctx context.Context, metric *database.ComposedRequestMetric) error {
	return nil
}

func (e *Noop) ListComposedRequestMetricsWithPagination(ctx context.Context, cursor int64, limit int) ([]*database.ComposedRequestMetric, int64, error) {
	return []*database.ComposedRequestMetric{}, 0, nil
}

func (e *Noop) DeleteComposedRequestMetricsOlderThanNDays(ctx context.Context, n int64) error {
	return nil
}

func (e *Noop) HealthCheck() error {
	return nil
}
