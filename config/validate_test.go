package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kava-labs/composer-proxy-service/config"
)

func defaultConfig(t *testing.T) config.Config {
	setDefaultEnv(t)
	return config.ReadConfig()
}

func TestUnitTestValidateConfigReturnsNilErrorForValidConfig(t *testing.T) {
	err := config.Validate(defaultConfig(t))

	assert.Nil(t, err)
}

func TestUnitTestValidateConfigReturnsErrorIfInvalidLogLevel(t *testing.T) {
	testConfig := defaultConfig(t)
	testConfig.LogLevel = "whisper"

	err := config.Validate(testConfig)

	assert.NotNil(t, err)
}

func TestUnitTestValidateConfigReturnsErrorIfInvalidProxyServicePort(t *testing.T) {
	testConfig := defaultConfig(t)
	testConfig.ProxyServicePort = "abc"

	err := config.Validate(testConfig)

	assert.ErrorContains(t, err, config.PROXY_SERVICE_PORT_ENVIRONMENT_KEY)
}

func TestUnitTestValidateConfigReturnsErrorIfRoutesFileMissing(t *testing.T) {
	testConfig := defaultConfig(t)
	testConfig.RoutesFile = "testdata/does-not-exist.yaml"

	err := config.Validate(testConfig)

	assert.ErrorContains(t, err, config.ROUTES_FILE_ENVIRONMENT_KEY)
}

func TestUnitTestValidateConfigRequiresRedisEndpointForRedisBackend(t *testing.T) {
	testConfig := defaultConfig(t)
	testConfig.HTTPCacheBackend = config.CACHE_BACKEND_REDIS
	testConfig.RedisEndpointURL = ""

	err := config.Validate(testConfig)

	assert.ErrorContains(t, err, config.REDIS_ENDPOINT_URL_ENVIRONMENT_KEY)
}

func TestUnitTestValidateConfigIgnoresCacheSettingsWhenDisabled(t *testing.T) {
	testConfig := defaultConfig(t)
	testConfig.HTTPCacheEnabled = false
	testConfig.HTTPCacheSize = 0
	testConfig.HTTPCacheBackend = "nope"

	err := config.Validate(testConfig)

	assert.Nil(t, err)
}

func TestUnitTestValidateConfigJoinsAllErrors(t *testing.T) {
	testConfig := defaultConfig(t)
	testConfig.MaxRecursionDepth = 0
	testConfig.SessionSigningSecret = ""
	testConfig.HTTPCacheSize = -1

	err := config.Validate(testConfig)

	assert.ErrorContains(t, err, config.MAX_RECURSION_DEPTH_ENVIRONMENT_KEY)
	assert.ErrorContains(t, err, config.SESSION_SIGNING_SECRET_ENVIRONMENT_KEY)
	assert.ErrorContains(t, err, config.HTTP_CACHE_SIZE_ENVIRONMENT_KEY)
}
