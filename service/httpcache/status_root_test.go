package httpcache_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/composable"
	"github.com/kava-labs/composer-proxy-service/service/httpcache"
)

func responseWithStatus(status string) *backend.Response {
	res := backend.NewResponse(http.StatusOK, nil)
	if status != "" {
		res.Header.Set(httpcache.CacheHeaderKey, status)
	}
	return res
}

func TestUnitTestCacheStatusRootAggregates(t *testing.T) {
	testCases := []struct {
		name     string
		statuses []string
		expected string
	}{
		{name: "nothing observed", statuses: []string{"", ""}, expected: ""},
		{name: "all hits", statuses: []string{"HIT", "HIT"}, expected: "HIT"},
		{name: "all misses", statuses: []string{"MISS", ""}, expected: "MISS"},
		{name: "mixed", statuses: []string{"HIT", "MISS", "HIT"}, expected: "PARTIAL"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			composition, err := composable.New(httpcache.CacheStatusRoot{})
			require.NoError(t, err)

			for _, status := range tc.statuses {
				composition = composition.ComposedWithFragmentFor(responseWithStatus(status))
			}

			outer := composition.WriteTo(backend.NewResponse(http.StatusOK, nil))
			assert.Equal(t, tc.expected, outer.Header.Get(httpcache.CacheHeaderKey))
		})
	}
}
