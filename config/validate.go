package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ValidLogLevels     = [5]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}
	ValidCacheBackends = [2]string{CACHE_BACKEND_MEMORY, CACHE_BACKEND_REDIS}
)

// Validate validates the provided config
// returning a list of errors that can be unwrapped with `errors.Unwrap`
// or nil if the config is valid
func Validate(config Config) error {
	var validLogLevel bool
	var allErrs error

	for _, validLevel := range ValidLogLevels {
		if config.LogLevel == validLevel {
			validLogLevel = true
			break
		}
	}

	if !validLogLevel {
		allErrs = fmt.Errorf("invalid %s specified %s, supported values are %v", LOG_LEVEL_ENVIRONMENT_KEY, config.LogLevel, ValidLogLevels)
	}

	_, err := strconv.Atoi(config.ProxyServicePort)

	if err != nil {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s", PROXY_SERVICE_PORT_ENVIRONMENT_KEY, config.ProxyServicePort))
	}

	if _, err := LoadRoutes(config.RoutesFile); err != nil {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s: %w", ROUTES_FILE_ENVIRONMENT_KEY, config.RoutesFile, err))
	}

	if config.HTTPCacheEnabled {
		var validBackend bool
		for _, backend := range ValidCacheBackends {
			if config.HTTPCacheBackend == backend {
				validBackend = true
				break
			}
		}
		if !validBackend {
			allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, supported values are %v", HTTP_CACHE_BACKEND_ENVIRONMENT_KEY, config.HTTPCacheBackend, ValidCacheBackends))
		}

		if config.HTTPCacheBackend == CACHE_BACKEND_MEMORY && config.HTTPCacheSize <= 0 {
			allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must be greater than zero", HTTP_CACHE_SIZE_ENVIRONMENT_KEY, config.HTTPCacheSize))
		}

		if config.HTTPCacheBackend == CACHE_BACKEND_REDIS {
			if config.RedisEndpointURL == "" {
				allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must not be empty", REDIS_ENDPOINT_URL_ENVIRONMENT_KEY, config.RedisEndpointURL))
			}
			if config.HTTPCachePrefix == "" || strings.Contains(config.HTTPCachePrefix, ":") {
				allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must be non empty and not contain colon symbol", HTTP_CACHE_PREFIX_ENVIRONMENT_KEY, config.HTTPCachePrefix))
			}
		}
	}

	if config.MaxRecursionDepth <= 0 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must be greater than zero", MAX_RECURSION_DEPTH_ENVIRONMENT_KEY, config.MaxRecursionDepth))
	}

	if config.IncludeTag == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified, must not be empty", INCLUDE_TAG_ENVIRONMENT_KEY))
	}

	if config.SessionSigningSecret == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified, must not be empty", SESSION_SIGNING_SECRET_ENVIRONMENT_KEY))
	}

	if config.SessionTTL <= 0 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %s, must be greater than zero", SESSION_TTL_SECONDS_ENVIRONMENT_KEY, config.SessionTTL))
	}

	if config.CircuitBreakerEnabled && config.CircuitBreakerFailures <= 0 {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified %d, must be greater than zero", CIRCUIT_BREAKER_FAILURES_ENVIRONMENT_KEY, config.CircuitBreakerFailures))
	}

	if config.MetricDatabaseEnabled && config.DatabaseEndpointURL == "" {
		allErrs = errors.Join(allErrs, fmt.Errorf("invalid %s specified, must not be empty when %s is true", DATABASE_ENDPOINT_URL_ENVIRONMENT_KEY, METRIC_DATABASE_ENABLED_ENVIRONMENT_KEY))
	}

	return allErrs
}
