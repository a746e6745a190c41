// package main reads & validates configuration for the composer proxy service
// and if the config is valid starts and monitors an instance of the proxy service
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kava-labs/composer-proxy-service/config"
	"github.com/kava-labs/composer-proxy-service/logging"
	"github.com/kava-labs/composer-proxy-service/routines"
	"github.com/kava-labs/composer-proxy-service/service"
)

const shutdownTimeout = 10 * time.Second

var (
	serviceConfig config.Config
	serviceLogger logging.ServiceLogger
)

func init() {
	serviceConfig = config.ReadConfig()

	err := config.Validate(serviceConfig)

	if err != nil {
		panic(err)
	}

	serviceLogger, err = logging.New(serviceConfig.LogLevel)

	if err != nil {
		panic(err)
	}
}

func startMetricPruningRoutine(ctx context.Context, proxyService service.ProxyService) {
	routine, err := routines.NewMetricPruningRoutine(routines.MetricPruningRoutineConfig{
		Interval:                     serviceConfig.MetricPruningRoutineInterval,
		StartDelay:                   serviceConfig.MetricPruningRoutineDelayFirstRun,
		MaxRequestMetricsHistoryDays: int64(serviceConfig.MetricPruningMaxRequestMetricsHistoryDays),
		Database:                     proxyService.Database,
		Logger:                       &serviceLogger,
	})
	if err != nil {
		serviceLogger.Panic().Err(err).Msg("error creating metric pruning routine")
	}

	errs, err := routine.Run(ctx)
	if err != nil {
		serviceLogger.Panic().Err(err).Msg("error starting metric pruning routine")
	}

	go func() {
		for err := range errs {
			serviceLogger.Error().Err(err).Msg("metric pruning routine error")
		}
	}()
}

func main() {
	serviceLogger.Debug().Msg(fmt.Sprintf("initial config: %+v", serviceConfig))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proxyService, err := service.New(ctx, serviceConfig, &serviceLogger)

	if err != nil {
		serviceLogger.Panic().Err(err).Msg("error creating composer service")
	}

	if serviceConfig.MetricDatabaseEnabled && serviceConfig.MetricPruningEnabled {
		startMetricPruningRoutine(ctx, proxyService)
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := proxyService.Shutdown(shutdownCtx); err != nil {
			serviceLogger.Error().Err(err).Msg("error shutting down composer service")
		}
	}()

	serviceLogger.Info().Str("port", serviceConfig.ProxyServicePort).Msg("starting composer service")

	if err := proxyService.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		serviceLogger.Panic().Err(err).Msg("composer service stopped")
	}
}
