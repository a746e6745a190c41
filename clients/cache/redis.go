package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kava-labs/composer-proxy-service/logging"
)

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// RedisStore is an implementation of Store that uses Redis as the caching backend.
// entries are json encoded and expire in redis together with their max-age
type RedisStore struct {
	client *redis.Client
	prefix string
	*logging.ServiceLogger
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(
	cfg *RedisConfig,
	logger *logging.ServiceLogger,
) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisStore{
		client:        client,
		prefix:        cfg.Prefix,
		ServiceLogger: logger,
	}
}

func (rs *RedisStore) key(key string) string {
	if rs.prefix == "" {
		return key
	}
	return rs.prefix + ":" + key
}

// Set sets the entry for the given key in the cache with the given expiration.
func (rs *RedisStore) Set(
	ctx context.Context,
	key string,
	entry Entry,
	expiration time.Duration,
) error {
	if expiration <= 0 {
		return nil
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("error encoding cache entry: %w", err)
	}

	rs.Logger.Trace().
		Str("key", key).
		Dur("expiration", expiration).
		Msg("setting value in redis")

	return rs.client.Set(ctx, rs.key(key), value, expiration).Err()
}

// Get gets the entry for the given key in the cache.
func (rs *RedisStore) Get(
	ctx context.Context,
	key string,
) (Entry, error) {
	rs.Logger.Trace().
		Str("key", key).
		Msg("getting value from redis")

	val, err := rs.client.Get(ctx, rs.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		rs.Logger.Trace().
			Str("key", key).
			Msg("value not found in redis")
		return Entry{}, ErrNotFound
	}
	if err != nil {
		rs.Logger.Error().
			Str("key", key).
			Err(err).
			Msg("error during getting value from redis")
		return Entry{}, err
	}

	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		return Entry{}, fmt.Errorf("error decoding cache entry for %s: %w", key, err)
	}

	return entry, nil
}

// Delete deletes the value for the given key in the cache.
func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	rs.Logger.Trace().
		Str("key", key).
		Msg("deleting value from redis")

	return rs.client.Del(ctx, rs.key(key)).Err()
}

func (rs *RedisStore) Healthcheck(ctx context.Context) error {
	rs.Logger.Trace().Msg("redis healthcheck was called")

	_, err := rs.client.Ping(ctx).Result()
	if err != nil {
		rs.Logger.Error().
			Err(err).
			Msg("can't ping redis")
		return fmt.Errorf("error connecting to Redis: %v", err)
	}

	rs.Logger.Trace().Msg("redis healthcheck was successful")

	return nil
}

// Close releases the connections held by the store
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
