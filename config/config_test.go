package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kava-labs/composer-proxy-service/config"
)

var (
	proxyServicePort             = "7777"
	randomEnvironmentVariableKey = "TEST_COMPOSER_RANDOM_VALUE"
	testRoutesFile               = "testdata/routes.yaml"
)

func TestUnitTestEnvODefaultReturnsDefaultIfEnvironmentVariableNotSet(t *testing.T) {
	err := os.Unsetenv(randomEnvironmentVariableKey)

	assert.Nil(t, err, "error clearing environment variable")

	defaultValue := "default"

	value := config.EnvOrDefault(randomEnvironmentVariableKey, defaultValue)

	assert.Equal(t, defaultValue, value)
}

func TestUnitTestEnvODefaultReturnsSetValue(t *testing.T) {
	setValue := "default"
	t.Setenv(randomEnvironmentVariableKey, setValue)

	value := config.EnvOrDefault(randomEnvironmentVariableKey, "")

	assert.Equal(t, setValue, value)
}

func TestUnitTestEnvOrDefaultIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv(randomEnvironmentVariableKey, "ten")

	assert.Equal(t, 3, config.EnvOrDefaultInt(randomEnvironmentVariableKey, 3))

	t.Setenv(randomEnvironmentVariableKey, "10")

	assert.Equal(t, 10, config.EnvOrDefaultInt(randomEnvironmentVariableKey, 3))
}

func TestUnitTestEnvOrDefaultListDropsBlankEntries(t *testing.T) {
	t.Setenv(randomEnvironmentVariableKey, "a.example.com, ,b.example.com,")

	assert.Equal(t, []string{"a.example.com", "b.example.com"}, config.EnvOrDefaultList(randomEnvironmentVariableKey))
}

func TestUnitTestReadConfigReturnsConfigWithValuesFromEnv(t *testing.T) {
	setDefaultEnv(t)

	readConfig := config.ReadConfig()

	assert.Equal(t, config.DEFAULT_LOG_LEVEL, readConfig.LogLevel)
	assert.Equal(t, proxyServicePort, readConfig.ProxyServicePort)
	assert.Equal(t, testRoutesFile, readConfig.RoutesFile)
	assert.Equal(t, 30*time.Minute, readConfig.SessionTTL)
	assert.Equal(t, config.DEFAULT_INCLUDE_TAG, readConfig.IncludeTag)
}

func TestUnitTestLoadRoutesPreservesDeclarationOrder(t *testing.T) {
	routes, err := config.LoadRoutes(testRoutesFile)
	require.NoError(t, err)
	require.Len(t, routes, 3)

	assert.Equal(t, "/products/<id>", routes[0].Path)
	assert.Equal(t, "TEMPLATE", routes[0].Type)
	assert.Equal(t, 2*time.Second, routes[0].TTL)

	assert.Equal(t, "POST", routes[1].Method)
	assert.Equal(t, 500*time.Millisecond, routes[1].TTL)

	// method defaults to GET
	assert.Equal(t, "GET", routes[2].Method)
}

func TestUnitTestParseRoutesRejectsMissingOrInvalidTTL(t *testing.T) {
	_, err := config.ParseRoutes([]byte(`
routes:
  - path: /a
    type: PROXY
    target: http://a
  - path: /b
    type: PROXY
    target: http://b
    ttl: soon
  - path: /c
    type: PROXY
    target: http://c
    ttl: -1s
`))

	require.Error(t, err)
	assert.ErrorContains(t, err, "route 0 (/a): ttl must be set")
	assert.ErrorContains(t, err, `invalid ttl "soon"`)
	assert.ErrorContains(t, err, "ttl must be positive")
}

func TestUnitTestParseRoutesRejectsUnknownType(t *testing.T) {
	_, err := config.ParseRoutes([]byte(`
routes:
  - path: /a
    type: REDIRECT
    target: http://a
    ttl: 1s
`))

	assert.ErrorContains(t, err, `invalid type "REDIRECT"`)
}

func TestUnitTestParseRoutesReturnsErrEmptyRoutes(t *testing.T) {
	_, err := config.ParseRoutes([]byte("routes: []"))

	assert.ErrorIs(t, err, config.ErrEmptyRoutes)
}

func setDefaultEnv(t *testing.T) {
	t.Setenv(config.PROXY_SERVICE_PORT_ENVIRONMENT_KEY, proxyServicePort)
	t.Setenv(config.LOG_LEVEL_ENVIRONMENT_KEY, config.DEFAULT_LOG_LEVEL)
	t.Setenv(config.ROUTES_FILE_ENVIRONMENT_KEY, testRoutesFile)
	t.Setenv(config.SESSION_SIGNING_SECRET_ENVIRONMENT_KEY, "test-secret")
	t.Setenv(config.HTTP_CACHE_BACKEND_ENVIRONMENT_KEY, config.CACHE_BACKEND_MEMORY)
}
