package backend_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/logging"
)

func TestUnitTestChainAppliesFirstDecoratorOutermost(t *testing.T) {
	var order []string
	tag := func(name string) backend.Decorator {
		return func(next backend.Client) backend.Client {
			return backend.ClientFunc(func(req *http.Request) (*backend.Response, error) {
				order = append(order, name)
				return next.Send(req)
			})
		}
	}

	client := backend.Chain(&recordingClient{}, tag("outer"), tag("inner"))
	_, err := client.Send(httptest.NewRequest(http.MethodGet, "http://a/", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestUnitTestHTTPClientBuffersNon2xxAsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		w.Header().Set("X-Backend", "yes")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "missing")
	}))
	defer server.Close()

	client := backend.NewHTTPClient(nil, logging.Nop())
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	res, err := client.Send(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "missing", string(res.Body))
	assert.Equal(t, "yes", res.Header.Get("X-Backend"))
	assert.Empty(t, res.Header.Get("Connection"))
	assert.False(t, res.IsSuccess())
}

func TestUnitTestHTTPClientHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := backend.NewHTTPClient(nil, logging.Nop())
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	req, cancel := backend.WithDeadline(req, 20*time.Millisecond)
	defer cancel()

	_, err = client.Send(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestUnitTestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	failing := &recordingClient{response: backend.NewResponse(http.StatusBadGateway, nil)}
	client := backend.Chain(failing, backend.CircuitBreaker(backend.BreakerSettings{
		ConsecutiveFailures: 2,
		Timeout:             time.Minute,
		Logger:              logging.Nop(),
	}))

	for i := 0; i < 2; i++ {
		res, err := client.Send(httptest.NewRequest(http.MethodGet, "http://flaky/", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	}

	_, err := client.Send(httptest.NewRequest(http.MethodGet, "http://flaky/", nil))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, failing.requests, 2)

	// other hosts have their own breaker
	_, err = client.Send(httptest.NewRequest(http.MethodGet, "http://healthy/", nil))
	assert.NoError(t, err)
}

func TestUnitTestInstrumentedCountsRequests(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := backend.NewMetrics(registry)

	client := backend.Chain(&recordingClient{}, backend.Instrumented(metrics))
	_, err := client.Send(httptest.NewRequest(http.MethodGet, "http://counted/", nil))
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(registry, "composer_backend_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUnitTestResponseWithBodyDoesNotMutateOriginal(t *testing.T) {
	original := backend.NewResponse(http.StatusOK, []byte("a"))
	original.Header.Set("Content-Length", "1")

	changed := original.WithBody([]byte("abc"))

	assert.Equal(t, "a", string(original.Body))
	assert.Equal(t, "1", original.Header.Get("Content-Length"))
	assert.Equal(t, "abc", string(changed.Body))
	assert.Empty(t, changed.Header.Get("Content-Length"))
}
