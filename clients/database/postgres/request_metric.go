package postgres

import (
	"context"

	"github.com/kava-labs/composer-proxy-service/clients/database"
)

const (
	ComposedRequestMetricsTableName = "composed_request_metrics"
)

// SaveComposedRequestMetric inserts metric, returning error (if any)
func (c *Client) SaveComposedRequestMetric(ctx context.Context, metric *database.ComposedRequestMetric) error {
	if c.db == nil {
		return ErrNoDatabase
	}

	row := convertComposedRequestMetric(metric)
	if _, err := c.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return err
	}

	metric.ID = row.ID
	return nil
}

// ListComposedRequestMetricsWithPagination returns a page of at most
// limit metrics with an id greater than cursor, along with the cursor
// of the next page. a zero cursor means there are no more pages
func (c *Client) ListComposedRequestMetricsWithPagination(ctx context.Context, cursor int64, limit int) ([]*database.ComposedRequestMetric, int64, error) {
	if c.db == nil {
		return nil, 0, ErrNoDatabase
	}

	var rows []ComposedRequestMetric
	err := c.db.NewSelect().
		Model(&rows).
		Where("id > ?", cursor).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	var nextCursor int64
	if limit > 0 && len(rows) == limit {
		nextCursor = rows[len(rows)-1].ID
	}

	metrics := make([]*database.ComposedRequestMetric, 0, len(rows))
	for i := range rows {
		metrics = append(metrics, rows[i].ToComposedRequestMetric())
	}

	return metrics, nextCursor, nil
}

// DeleteComposedRequestMetricsOlderThanNDays deletes every metric
// recorded more than n days ago, used by the pruning routine
func (c *Client) DeleteComposedRequestMetricsOlderThanNDays(ctx context.Context, n int64) error {
	if c.db == nil {
		return ErrNoDatabase
	}

	_, err := c.db.NewDelete().
		Model((*ComposedRequestMetric)(nil)).
		Where("request_time < now() - make_interval(days => ?)", n).
		Exec(ctx)

	return err
}
