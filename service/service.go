// package service provides functions and methods
// for creating and running the api of the composer proxy service
package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/clients/cache"
	"github.com/kava-labs/composer-proxy-service/clients/database"
	"github.com/kava-labs/composer-proxy-service/clients/database/noop"
	"github.com/kava-labs/composer-proxy-service/clients/database/postgres"
	"github.com/kava-labs/composer-proxy-service/clients/database/postgres/migrations"
	"github.com/kava-labs/composer-proxy-service/composing"
	"github.com/kava-labs/composer-proxy-service/config"
	"github.com/kava-labs/composer-proxy-service/logging"
	"github.com/kava-labs/composer-proxy-service/routing"
	"github.com/kava-labs/composer-proxy-service/service/httpcache"
	"github.com/kava-labs/composer-proxy-service/session"
)

const (
	HealthcheckPath  = "/healthcheck"
	ServicecheckPath = "/servicecheck"
	CacheStatusPath  = "/status/cache"
	MetricsPath      = "/metrics"
)

// ProxyService represents an instance of the composer proxy service API
type ProxyService struct {
	Database     database.MetricsDatabase
	Cache        *httpcache.HttpCache
	httpProxy    *http.Server
	routes       routing.Table
	cacheBackend string
	*logging.ServiceLogger
}

// New returns a new ProxyService with the specified config and error (if any)
func New(ctx context.Context, serviceConfig config.Config, serviceLogger *logging.ServiceLogger) (ProxyService, error) {
	service := ProxyService{
		cacheBackend:  serviceConfig.HTTPCacheBackend,
		ServiceLogger: serviceLogger,
	}

	routeConfigs, err := config.LoadRoutes(serviceConfig.RoutesFile)
	if err != nil {
		return ProxyService{}, err
	}
	routes, err := routing.TableFromConfig(routeConfigs)
	if err != nil {
		return ProxyService{}, err
	}
	service.routes = routes

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	httpCache, err := createHttpCache(serviceConfig, serviceLogger, registry)
	if err != nil {
		return ProxyService{}, err
	}
	service.Cache = httpCache

	db, err := createDatabase(ctx, serviceConfig, serviceLogger)
	if err != nil {
		return ProxyService{}, err
	}
	service.Database = db

	// instrumented inside the cache so only calls reaching a backend are counted
	decorators := []backend.Decorator{
		backend.ForwardedHeaders(),
		httpCache.Decorate,
		backend.Instrumented(backend.NewMetrics(registry)),
	}
	if serviceConfig.CircuitBreakerEnabled {
		decorators = append(decorators, backend.CircuitBreaker(backend.BreakerSettings{
			ConsecutiveFailures: uint32(serviceConfig.CircuitBreakerFailures),
			Timeout:             serviceConfig.CircuitBreakerTimeout,
			Logger:              serviceLogger,
		}))
	}
	client := backend.Chain(backend.NewHTTPClient(nil, serviceLogger), decorators...)

	composer := composing.NewComposer(
		composing.NewParser(serviceConfig.IncludeTag, serviceConfig.ContentTag, serviceConfig.AssetAttribute),
		serviceConfig.MaxRecursionDepth,
		serviceLogger,
	)

	cookies := session.NewCookieHandler(serviceConfig.SessionCookieName, serviceConfig.SessionSigningSecret, serviceConfig.SessionTTL, serviceLogger)

	allowedIncludeHosts := serviceConfig.AllowedIncludeHosts
	if len(allowedIncludeHosts) == 0 {
		allowedIncludeHosts = routeHosts(routeConfigs)
	}
	serviceLogger.Debug().Strs("hosts", allowedIncludeHosts).Msg("allowed include hosts")

	composingHandler := NewComposingHandler(routes, client, composer, cookies, allowedIncludeHosts, serviceLogger)

	var handler http.Handler = composingHandler
	if serviceConfig.MetricDatabaseEnabled {
		handler = createMetricMiddleware(handler, &service)
	}
	handler = createRequestLoggingMiddleware(handler, serviceLogger)

	// create an http router for registering handlers for a given route
	mux := http.NewServeMux()
	mux.HandleFunc(HealthcheckPath, createHealthcheckHandler(&service))
	mux.HandleFunc(ServicecheckPath, createServicecheckHandler(&service))
	mux.HandleFunc(CacheStatusPath, createCacheStatusHandler(&service))
	mux.Handle(MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	// everything else is resolved against the routing table
	mux.Handle("/", handler)

	// create an http server for the caller to start at their own discretion
	service.httpProxy = &http.Server{
		Addr:    fmt.Sprintf(":%s", serviceConfig.ProxyServicePort),
		Handler: mux,
	}

	return service, nil
}

// Handler returns the root handler of the service
func (p *ProxyService) Handler() http.Handler {
	return p.httpProxy.Handler
}

// Run runs the proxy service, returning error (if any) in the event
// the proxy service stops
func (p *ProxyService) Run() error {
	return p.httpProxy.ListenAndServe()
}

// Shutdown gracefully stops the http server
func (p *ProxyService) Shutdown(ctx context.Context) error {
	return p.httpProxy.Shutdown(ctx)
}

func createHttpCache(serviceConfig config.Config, logger *logging.ServiceLogger, registerer prometheus.Registerer) (*httpcache.HttpCache, error) {
	if !serviceConfig.HTTPCacheEnabled {
		return httpcache.Disabled(logger), nil
	}

	var store cache.Store
	switch serviceConfig.HTTPCacheBackend {
	case config.CACHE_BACKEND_REDIS:
		store = cache.NewRedisStore(&cache.RedisConfig{
			Address:  serviceConfig.RedisEndpointURL,
			Password: serviceConfig.RedisPassword,
			Prefix:   serviceConfig.HTTPCachePrefix,
		}, logger)
	default:
		lruStore, err := cache.NewLRUStore(serviceConfig.HTTPCacheSize)
		if err != nil {
			return nil, err
		}
		store = lruStore
	}

	return httpcache.New(store, true, logger, httpcache.WithMetrics(httpcache.NewMetrics(registerer))), nil
}

func createDatabase(ctx context.Context, serviceConfig config.Config, logger *logging.ServiceLogger) (database.MetricsDatabase, error) {
	if !serviceConfig.MetricDatabaseEnabled {
		return noop.New(), nil
	}

	db, err := postgres.NewClient(postgres.DatabaseConfig{
		DatabaseName:                     serviceConfig.DatabaseName,
		DatabaseEndpointURL:              serviceConfig.DatabaseEndpointURL,
		DatabaseUsername:                 serviceConfig.DatabaseUserName,
		DatabasePassword:                 serviceConfig.DatabasePassword,
		ReadTimeoutSeconds:               serviceConfig.DatabaseReadTimeoutSeconds,
		WriteTimeoutSeconds:              serviceConfig.DatabaseWriteTimeoutSeconds,
		DatabaseMaxIdleConnections:       serviceConfig.DatabaseMaxIdleConnections,
		DatabaseConnectionMaxIdleSeconds: serviceConfig.DatabaseConnectionMaxIdleSeconds,
		DatabaseMaxOpenConnections:       serviceConfig.DatabaseMaxOpenConnections,
		SSLEnabled:                       serviceConfig.DatabaseSSLEnabled,
		QueryLoggingEnabled:              serviceConfig.DatabaseQueryLoggingEnabled,
		Logger:                           logger,
	})
	if err != nil {
		return nil, err
	}

	if serviceConfig.RunDatabaseMigrations {
		applied, err := db.Migrate(ctx, migrations.Migrations)
		if err != nil {
			return nil, fmt.Errorf("error running database migrations: %w", err)
		}
		logger.Debug().Msg(fmt.Sprintf("run migrations %+v", applied))
	}

	return db, nil
}

// routeHosts returns the hosts of every route target without placeholders
func routeHosts(routes []config.RouteConfig) []string {
	seen := map[string]bool{}
	var hosts []string
	for _, route := range routes {
		target, err := url.Parse(route.Target)
		if err != nil || target.Host == "" || strings.Contains(target.Host, "{") {
			continue
		}
		host := strings.ToLower(target.Host)
		if !seen[host] {
			seen[host] = true
			hosts = append(hosts, host)
		}
	}
	return hosts
}
