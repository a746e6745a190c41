// package routines provides configuration and logic
// for running background routines such as metric pruning
package routines

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kava-labs/composer-proxy-service/clients/database"
	"github.com/kava-labs/composer-proxy-service/logging"
)

// MetricPruningRoutineConfig wraps values used
// for creating a new metric pruning routine
type MetricPruningRoutineConfig struct {
	Interval                     time.Duration
	StartDelay                   time.Duration
	MaxRequestMetricsHistoryDays int64
	Database                     database.MetricsDatabase
	Logger                       *logging.ServiceLogger
}

// MetricPruningRoutine deletes composed request metrics older than
// the configured history on a configurable interval
type MetricPruningRoutine struct {
	id                           string
	interval                     time.Duration
	startDelay                   time.Duration
	maxRequestMetricsHistoryDays int64
	db                           database.MetricsDatabase
	*logging.ServiceLogger
}

// Run starts pruning in the background until ctx is done, returning
// error (if any) from starting the routine and a channel on which
// errors encountered while pruning are sent. errors are dropped when
// nobody is receiving
func (mpr *MetricPruningRoutine) Run(ctx context.Context) (<-chan error, error) {
	if mpr.interval <= 0 {
		return nil, fmt.Errorf("metric pruning interval must be positive, got %s", mpr.interval)
	}

	errorChannel := make(chan error, 1)

	go func() {
		defer close(errorChannel)

		select {
		case <-ctx.Done():
			return
		case <-time.After(mpr.startDelay):
		}

		ticker := time.NewTicker(mpr.interval)
		defer ticker.Stop()

		for {
			mpr.prune(ctx, errorChannel)

			select {
			case <-ctx.Done():
				return
			case tick := <-ticker.C:
				mpr.Trace().Msg(fmt.Sprintf("%s tick at %+v", mpr.id, tick))
			}
		}
	}()

	return errorChannel, nil
}

func (mpr *MetricPruningRoutine) prune(ctx context.Context, errorChannel chan<- error) {
	err := mpr.db.DeleteComposedRequestMetricsOlderThanNDays(ctx, mpr.maxRequestMetricsHistoryDays)
	if err == nil {
		mpr.Debug().
			Str("routine", mpr.id).
			Int64("days", mpr.maxRequestMetricsHistoryDays).
			Msg("pruned composed request metrics")
		return
	}

	mpr.Error().
		Err(err).
		Str("routine", mpr.id).
		Msg("error pruning composed request metrics")

	select {
	case errorChannel <- err:
	default:
	}
}

// NewMetricPruningRoutine creates a new metric pruning routine
// using the provided config, returning the routine and error (if any)
func NewMetricPruningRoutine(config MetricPruningRoutineConfig) (*MetricPruningRoutine, error) {
	if config.Database == nil {
		return nil, fmt.Errorf("metric pruning routine requires a database")
	}
	if config.MaxRequestMetricsHistoryDays <= 0 {
		return nil, fmt.Errorf("max request metrics history days must be positive, got %d", config.MaxRequestMetricsHistoryDays)
	}
	if config.Logger == nil {
		config.Logger = logging.Nop()
	}

	return &MetricPruningRoutine{
		id:                           uuid.New().String(),
		interval:                     config.Interval,
		startDelay:                   config.StartDelay,
		maxRequestMetricsHistoryDays: config.MaxRequestMetricsHistoryDays,
		db:                           config.Database,
		ServiceLogger:                config.Logger,
	}, nil
}
