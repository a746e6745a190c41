package cache_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kava-labs/composer-proxy-service/clients/cache"
	"github.com/kava-labs/composer-proxy-service/logging"
)

var testRedisEndpointURL = os.Getenv("TEST_REDIS_ENDPOINT_URL")

func testEntry(body string) cache.Entry {
	return cache.Entry{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Cache-Control": []string{"max-age=60"}},
		Body:       []byte(body),
		Expires:    time.Now().Add(time.Minute),
	}
}

func TestUnitTestLRUStoreRejectsNonPositiveSize(t *testing.T) {
	_, err := cache.NewLRUStore(0)
	assert.Error(t, err)
}

func TestUnitTestLRUStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewLRUStore(10)
	require.NoError(t, err)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, store.Set(ctx, "a", testEntry("A"), time.Minute))

	entry, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", string(entry.Body))

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestUnitTestLRUStoreNeverExceedsSize(t *testing.T) {
	ctx := context.Background()

	for _, size := range []int{1, 3, 16, 50} {
		store, err := cache.NewLRUStore(size)
		require.NoError(t, err)

		for i := 0; i < size*10; i++ {
			require.NoError(t, store.Set(ctx, fmt.Sprintf("key-%d", i), testEntry("x"), time.Minute))
			require.LessOrEqual(t, store.Len(), size)
		}
	}
}

func TestUnitTestLRUStoreKeepsEveryEntryUpToSize(t *testing.T) {
	ctx := context.Background()

	for _, size := range []int{2, 16, 100, 511} {
		store, err := cache.NewLRUStore(size)
		require.NoError(t, err)

		for i := 0; i < size; i++ {
			require.NoError(t, store.Set(ctx, fmt.Sprintf("http://fragment/%d", i), testEntry("x"), time.Minute))
		}

		assert.Equal(t, size, store.Len(), "size %d", size)
		for i := 0; i < size; i++ {
			_, err := store.Get(ctx, fmt.Sprintf("http://fragment/%d", i))
			require.NoError(t, err, "size %d key %d", size, i)
		}
	}
}

func TestUnitTestLRUStoreSingleEntryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewLRUStore(1)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "a", testEntry("A"), time.Minute))
	require.NoError(t, store.Set(ctx, "b", testEntry("B"), time.Minute))

	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	entry, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "B", string(entry.Body))
}

func TestUnitTestEntryExpired(t *testing.T) {
	now := time.Now()
	entry := cache.Entry{Expires: now.Add(time.Second)}

	assert.False(t, entry.Expired(now))
	assert.True(t, entry.Expired(now.Add(time.Second)))
}

func TestE2ETestRedisStoreRoundTrip(t *testing.T) {
	if testRedisEndpointURL == "" {
		t.Skip("TEST_REDIS_ENDPOINT_URL not set")
	}

	ctx := context.Background()
	store := cache.NewRedisStore(&cache.RedisConfig{
		Address: testRedisEndpointURL,
		Prefix:  "composer-test",
	}, logging.Nop())
	defer store.Close()

	require.NoError(t, store.Healthcheck(ctx))

	key := fmt.Sprintf("http://fragment/%d", time.Now().UnixNano())
	require.NoError(t, store.Set(ctx, key, testEntry("cached"), time.Minute))

	entry, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(entry.Body))
	assert.Equal(t, "max-age=60", entry.Header.Get("Cache-Control"))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrNotFound)
}
