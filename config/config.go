// package config provides functions and values
// for reading and validating composer proxy service configuration
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	LogLevel                                  string
	ProxyServicePort                          string
	RoutesFile                                string
	HTTPCacheEnabled                          bool
	HTTPCacheSize                             int
	HTTPCacheBackend                          string
	HTTPCachePrefix                           string
	RedisEndpointURL                          string
	RedisPassword                             string
	IncludeTag                                string
	ContentTag                                string
	AssetAttribute                            string
	MaxRecursionDepth                         int
	AllowedIncludeHosts                       []string
	CircuitBreakerEnabled                     bool
	CircuitBreakerFailures                    int
	CircuitBreakerTimeout                     time.Duration
	SessionCookieName                         string
	SessionSigningSecret                      string
	SessionTTL                                time.Duration
	MetricDatabaseEnabled                     bool
	DatabaseName                              string
	DatabaseEndpointURL                       string
	DatabaseUserName                          string
	DatabasePassword                          string
	DatabaseReadTimeoutSeconds                int64
	DatabaseWriteTimeoutSeconds               int64
	DatabaseSSLEnabled                        bool
	DatabaseQueryLoggingEnabled               bool
	DatabaseMaxIdleConnections                int64
	DatabaseConnectionMaxIdleSeconds          int64
	DatabaseMaxOpenConnections                int64
	RunDatabaseMigrations                     bool
	MetricPruningEnabled                      bool
	MetricPruningRoutineInterval              time.Duration
	MetricPruningRoutineDelayFirstRun         time.Duration
	MetricPruningMaxRequestMetricsHistoryDays int
}

const (
	LOG_LEVEL_ENVIRONMENT_KEY                                       = "LOG_LEVEL"
	DEFAULT_LOG_LEVEL                                               = "INFO"
	PROXY_SERVICE_PORT_ENVIRONMENT_KEY                              = "COMPOSER_SERVICE_PORT"
	DEFAULT_PROXY_SERVICE_PORT                                      = "7777"
	ROUTES_FILE_ENVIRONMENT_KEY                                     = "COMPOSER_ROUTES_FILE"
	DEFAULT_ROUTES_FILE                                             = "routes.yaml"
	HTTP_CACHE_ENABLED_ENVIRONMENT_KEY                              = "HTTP_CACHE_ENABLED"
	DEFAULT_HTTP_CACHE_ENABLED                                      = true
	HTTP_CACHE_SIZE_ENVIRONMENT_KEY                                 = "HTTP_CACHE_SIZE"
	DEFAULT_HTTP_CACHE_SIZE                                         = 10000
	HTTP_CACHE_BACKEND_ENVIRONMENT_KEY                              = "HTTP_CACHE_BACKEND"
	DEFAULT_HTTP_CACHE_BACKEND                                      = CACHE_BACKEND_MEMORY
	HTTP_CACHE_PREFIX_ENVIRONMENT_KEY                               = "HTTP_CACHE_PREFIX"
	DEFAULT_HTTP_CACHE_PREFIX                                       = "composer"
	REDIS_ENDPOINT_URL_ENVIRONMENT_KEY                              = "REDIS_ENDPOINT_URL"
	REDIS_PASSWORD_ENVIRONMENT_KEY                                  = "REDIS_PASSWORD"
	INCLUDE_TAG_ENVIRONMENT_KEY                                     = "COMPOSER_INCLUDE_TAG"
	DEFAULT_INCLUDE_TAG                                             = "include"
	CONTENT_TAG_ENVIRONMENT_KEY                                     = "COMPOSER_CONTENT_TAG"
	DEFAULT_CONTENT_TAG                                             = "content"
	ASSET_ATTRIBUTE_ENVIRONMENT_KEY                                 = "COMPOSER_ASSET_ATTRIBUTE"
	DEFAULT_ASSET_ATTRIBUTE                                         = "data-composer-asset"
	MAX_RECURSION_DEPTH_ENVIRONMENT_KEY                             = "COMPOSER_MAX_RECURSION_DEPTH"
	DEFAULT_MAX_RECURSION_DEPTH                                     = 10
	ALLOWED_INCLUDE_HOSTS_ENVIRONMENT_KEY                           = "COMPOSER_ALLOWED_INCLUDE_HOSTS"
	CIRCUIT_BREAKER_ENABLED_ENVIRONMENT_KEY                         = "BACKEND_CIRCUIT_BREAKER_ENABLED"
	DEFAULT_CIRCUIT_BREAKER_ENABLED                                 = false
	CIRCUIT_BREAKER_FAILURES_ENVIRONMENT_KEY                        = "BACKEND_CIRCUIT_BREAKER_FAILURES"
	DEFAULT_CIRCUIT_BREAKER_FAILURES                                = 5
	CIRCUIT_BREAKER_TIMEOUT_SECONDS_ENVIRONMENT_KEY                 = "BACKEND_CIRCUIT_BREAKER_TIMEOUT_SECONDS"
	DEFAULT_CIRCUIT_BREAKER_TIMEOUT_SECONDS                         = 30
	SESSION_COOKIE_NAME_ENVIRONMENT_KEY                             = "SESSION_COOKIE_NAME"
	DEFAULT_SESSION_COOKIE_NAME                                     = "rd-session"
	SESSION_SIGNING_SECRET_ENVIRONMENT_KEY                          = "SESSION_SIGNING_SECRET"
	SESSION_TTL_SECONDS_ENVIRONMENT_KEY                             = "SESSION_TTL_SECONDS"
	DEFAULT_SESSION_TTL_SECONDS                                     = 1800
	METRIC_DATABASE_ENABLED_ENVIRONMENT_KEY                         = "METRIC_DATABASE_ENABLED"
	DEFAULT_METRIC_DATABASE_ENABLED                                 = false
	DATABASE_NAME_ENVIRONMENT_KEY                                   = "DATABASE_NAME"
	DATABASE_ENDPOINT_URL_ENVIRONMENT_KEY                           = "DATABASE_ENDPOINT_URL"
	DATABASE_USERNAME_ENVIRONMENT_KEY                               = "DATABASE_USERNAME"
	DATABASE_PASSWORD_ENVIRONMENT_KEY                               = "DATABASE_PASSWORD"
	DATABASE_READ_TIMEOUT_SECONDS_ENVIRONMENT_KEY                   = "DATABASE_READ_TIMEOUT_SECONDS"
	DEFAULT_DATABASE_READ_TIMEOUT_SECONDS                           = 60
	DATABASE_WRITE_TIMEOUT_SECONDS_ENVIRONMENT_KEY                  = "DATABASE_WRITE_TIMEOUT_SECONDS"
	DEFAULT_DATABASE_WRITE_TIMEOUT_SECONDS                          = 10
	DATABASE_SSL_ENABLED_ENVIRONMENT_KEY                            = "DATABASE_SSL_ENABLED"
	DATABASE_QUERY_LOGGING_ENABLED_ENVIRONMENT_KEY                  = "DATABASE_QUERY_LOGGING_ENABLED"
	DATABASE_MAX_IDLE_CONNECTIONS_ENVIRONMENT_KEY                   = "DATABASE_MAX_IDLE_CONNECTIONS"
	DEFAULT_DATABASE_MAX_IDLE_CONNECTIONS                           = 5
	DATABASE_CONNECTION_MAX_IDLE_SECONDS_ENVIRONMENT_KEY            = "DATABASE_CONNECTION_MAX_IDLE_SECONDS"
	DEFAULT_DATABASE_CONNECTION_MAX_IDLE_SECONDS                    = 5
	DATABASE_MAX_OPEN_CONNECTIONS_ENVIRONMENT_KEY                   = "DATABASE_MAX_OPEN_CONNECTIONS"
	DEFAULT_DATABASE_MAX_OPEN_CONNECTIONS                           = 20
	RUN_DATABASE_MIGRATIONS_ENVIRONMENT_KEY                         = "RUN_DATABASE_MIGRATIONS"
	METRIC_PRUNING_ENABLED_ENVIRONMENT_KEY                          = "METRIC_PRUNING_ENABLED"
	DEFAULT_METRIC_PRUNING_ENABLED                                  = true
	METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS_ENVIRONMENT_KEY         = "METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS"
	DEFAULT_METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS                 = 86400
	METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS_ENVIRONMENT_KEY  = "METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS"
	DEFAULT_METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS          = 10
	METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS_ENVIRONMENT_KEY = "METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS"
	DEFAULT_METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS         = 45

	CACHE_BACKEND_MEMORY = "memory"
	CACHE_BACKEND_REDIS  = "redis"
)

// EnvOrDefault fetches an environment variable value, or if not set returns the fallback value
func EnvOrDefault(key string, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// EnvOrDefaultInt fetches an environment variable value, or if not set
// or not parseable as an int returns the fallback value
func EnvOrDefaultInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// EnvOrDefaultBool fetches an environment variable value, or if not set
// or not parseable as a bool returns the fallback value
func EnvOrDefaultBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// EnvOrDefaultList fetches a comma separated environment variable value,
// dropping blank entries, or if not set returns nil
func EnvOrDefaultList(key string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	var values []string
	for _, value := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

// ReadConfig attempts to parse service config from environment values
// the returned config may be invalid and should be validated via the `Validate`
// function of the Config package before use
func ReadConfig() Config {
	return Config{
		LogLevel:                                  EnvOrDefault(LOG_LEVEL_ENVIRONMENT_KEY, DEFAULT_LOG_LEVEL),
		ProxyServicePort:                          EnvOrDefault(PROXY_SERVICE_PORT_ENVIRONMENT_KEY, DEFAULT_PROXY_SERVICE_PORT),
		RoutesFile:                                EnvOrDefault(ROUTES_FILE_ENVIRONMENT_KEY, DEFAULT_ROUTES_FILE),
		HTTPCacheEnabled:                          EnvOrDefaultBool(HTTP_CACHE_ENABLED_ENVIRONMENT_KEY, DEFAULT_HTTP_CACHE_ENABLED),
		HTTPCacheSize:                             EnvOrDefaultInt(HTTP_CACHE_SIZE_ENVIRONMENT_KEY, DEFAULT_HTTP_CACHE_SIZE),
		HTTPCacheBackend:                          EnvOrDefault(HTTP_CACHE_BACKEND_ENVIRONMENT_KEY, DEFAULT_HTTP_CACHE_BACKEND),
		HTTPCachePrefix:                           EnvOrDefault(HTTP_CACHE_PREFIX_ENVIRONMENT_KEY, DEFAULT_HTTP_CACHE_PREFIX),
		RedisEndpointURL:                          EnvOrDefault(REDIS_ENDPOINT_URL_ENVIRONMENT_KEY, ""),
		RedisPassword:                             EnvOrDefault(REDIS_PASSWORD_ENVIRONMENT_KEY, ""),
		IncludeTag:                                EnvOrDefault(INCLUDE_TAG_ENVIRONMENT_KEY, DEFAULT_INCLUDE_TAG),
		ContentTag:                                EnvOrDefault(CONTENT_TAG_ENVIRONMENT_KEY, DEFAULT_CONTENT_TAG),
		AssetAttribute:                            EnvOrDefault(ASSET_ATTRIBUTE_ENVIRONMENT_KEY, DEFAULT_ASSET_ATTRIBUTE),
		MaxRecursionDepth:                         EnvOrDefaultInt(MAX_RECURSION_DEPTH_ENVIRONMENT_KEY, DEFAULT_MAX_RECURSION_DEPTH),
		AllowedIncludeHosts:                       EnvOrDefaultList(ALLOWED_INCLUDE_HOSTS_ENVIRONMENT_KEY),
		CircuitBreakerEnabled:                     EnvOrDefaultBool(CIRCUIT_BREAKER_ENABLED_ENVIRONMENT_KEY, DEFAULT_CIRCUIT_BREAKER_ENABLED),
		CircuitBreakerFailures:                    EnvOrDefaultInt(CIRCUIT_BREAKER_FAILURES_ENVIRONMENT_KEY, DEFAULT_CIRCUIT_BREAKER_FAILURES),
		CircuitBreakerTimeout:                     time.Duration(EnvOrDefaultInt(CIRCUIT_BREAKER_TIMEOUT_SECONDS_ENVIRONMENT_KEY, DEFAULT_CIRCUIT_BREAKER_TIMEOUT_SECONDS)) * time.Second,
		SessionCookieName:                         EnvOrDefault(SESSION_COOKIE_NAME_ENVIRONMENT_KEY, DEFAULT_SESSION_COOKIE_NAME),
		SessionSigningSecret:                      EnvOrDefault(SESSION_SIGNING_SECRET_ENVIRONMENT_KEY, ""),
		SessionTTL:                                time.Duration(EnvOrDefaultInt(SESSION_TTL_SECONDS_ENVIRONMENT_KEY, DEFAULT_SESSION_TTL_SECONDS)) * time.Second,
		MetricDatabaseEnabled:                     EnvOrDefaultBool(METRIC_DATABASE_ENABLED_ENVIRONMENT_KEY, DEFAULT_METRIC_DATABASE_ENABLED),
		DatabaseName:                              EnvOrDefault(DATABASE_NAME_ENVIRONMENT_KEY, ""),
		DatabaseEndpointURL:                       EnvOrDefault(DATABASE_ENDPOINT_URL_ENVIRONMENT_KEY, ""),
		DatabaseUserName:                          EnvOrDefault(DATABASE_USERNAME_ENVIRONMENT_KEY, ""),
		DatabasePassword:                          EnvOrDefault(DATABASE_PASSWORD_ENVIRONMENT_KEY, ""),
		DatabaseReadTimeoutSeconds:                int64(EnvOrDefaultInt(DATABASE_READ_TIMEOUT_SECONDS_ENVIRONMENT_KEY, DEFAULT_DATABASE_READ_TIMEOUT_SECONDS)),
		DatabaseWriteTimeoutSeconds:               int64(EnvOrDefaultInt(DATABASE_WRITE_TIMEOUT_SECONDS_ENVIRONMENT_KEY, DEFAULT_DATABASE_WRITE_TIMEOUT_SECONDS)),
		DatabaseSSLEnabled:                        EnvOrDefaultBool(DATABASE_SSL_ENABLED_ENVIRONMENT_KEY, false),
		DatabaseQueryLoggingEnabled:               EnvOrDefaultBool(DATABASE_QUERY_LOGGING_ENABLED_ENVIRONMENT_KEY, false),
		DatabaseMaxIdleConnections:                int64(EnvOrDefaultInt(DATABASE_MAX_IDLE_CONNECTIONS_ENVIRONMENT_KEY, DEFAULT_DATABASE_MAX_IDLE_CONNECTIONS)),
		DatabaseConnectionMaxIdleSeconds:          int64(EnvOrDefaultInt(DATABASE_CONNECTION_MAX_IDLE_SECONDS_ENVIRONMENT_KEY, DEFAULT_DATABASE_CONNECTION_MAX_IDLE_SECONDS)),
		DatabaseMaxOpenConnections:                int64(EnvOrDefaultInt(DATABASE_MAX_OPEN_CONNECTIONS_ENVIRONMENT_KEY, DEFAULT_DATABASE_MAX_OPEN_CONNECTIONS)),
		RunDatabaseMigrations:                     EnvOrDefaultBool(RUN_DATABASE_MIGRATIONS_ENVIRONMENT_KEY, false),
		MetricPruningEnabled:                      EnvOrDefaultBool(METRIC_PRUNING_ENABLED_ENVIRONMENT_KEY, DEFAULT_METRIC_PRUNING_ENABLED),
		MetricPruningRoutineInterval:              time.Duration(EnvOrDefaultInt(METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS_ENVIRONMENT_KEY, DEFAULT_METRIC_PRUNING_ROUTINE_INTERVAL_SECONDS)) * time.Second,
		MetricPruningRoutineDelayFirstRun:         time.Duration(EnvOrDefaultInt(METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS_ENVIRONMENT_KEY, DEFAULT_METRIC_PRUNING_ROUTINE_DELAY_FIRST_RUN_SECONDS)) * time.Second,
		MetricPruningMaxRequestMetricsHistoryDays: EnvOrDefaultInt(METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS_ENVIRONMENT_KEY, DEFAULT_METRIC_PRUNING_MAX_REQUEST_METRICS_HISTORY_DAYS),
	}
}
