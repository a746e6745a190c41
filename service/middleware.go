package service

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/urfave/negroni"

	"github.com/kava-labs/composer-proxy-service/clients/database"
	"github.com/kava-labs/composer-proxy-service/logging"
)

const (
	// RequestOutcomeContextKey holds the *requestOutcome the composing
	// handler fills in for the metric middleware
	RequestOutcomeContextKey = "X-COMPOSER-REQUEST-OUTCOME"

	metricSaveTimeout = 5 * time.Second
)

// requestOutcome is what the composing handler learned while serving a request
type requestOutcome struct {
	routeType   string
	includes    int
	cacheStatus string
}

// requestOutcomeFrom returns the outcome stored in ctx, or a throwaway
// one when the request did not pass the metric middleware
func requestOutcomeFrom(ctx context.Context) *requestOutcome {
	if outcome, ok := ctx.Value(RequestOutcomeContextKey).(*requestOutcome); ok {
		return outcome
	}
	return &requestOutcome{}
}

// createRequestLoggingMiddleware returns a handler that logs every
// request with the status and latency of its response
func createRequestLoggingMiddleware(h http.Handler, serviceLogger *logging.ServiceLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := negroni.NewResponseWriter(w)

		h.ServeHTTP(lrw, r)

		serviceLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", lrw.Status()).
			Int("size", lrw.Size()).
			Dur("latency", time.Since(start)).
			Msg("served request")
	}
}

// createMetricMiddleware returns a handler that stores a
// ComposedRequestMetric for every request served by h. metrics are
// saved in the background so the client never waits for the database
func createMetricMiddleware(h http.Handler, service *ProxyService) http.HandlerFunc {
	hostname, err := os.Hostname()
	if err != nil {
		service.Error().Err(err).Msg("error reading hostname for request metrics")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		outcome := &requestOutcome{}
		requestTime := time.Now()
		lrw := negroni.NewResponseWriter(w)

		h.ServeHTTP(lrw, r.WithContext(context.WithValue(r.Context(), RequestOutcomeContextKey, outcome)))

		metric := &database.ComposedRequestMetric{
			Path:                        r.URL.Path,
			Method:                      r.Method,
			RouteType:                   outcome.routeType,
			StatusCode:                  lrw.Status(),
			ResponseLatencyMilliseconds: time.Since(requestTime).Milliseconds(),
			IncludesFetched:             outcome.includes,
			CacheStatus:                 outcome.cacheStatus,
			Hostname:                    hostname,
			RequestIP:                   requestIP(r),
			UserAgent:                   optionalHeader(r, "User-Agent"),
			Referer:                     optionalHeader(r, "Referer"),
			RequestTime:                 requestTime,
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), metricSaveTimeout)
			defer cancel()

			if err := service.Database.SaveComposedRequestMetric(ctx, metric); err != nil {
				service.Error().
					Err(err).
					Str("path", metric.Path).
					Msg("error saving composed request metric")
			}
		}()
	}
}

func requestIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func optionalHeader(r *http.Request, name string) *string {
	value := r.Header.Get(name)
	if value == "" {
		return nil
	}
	return &value
}
