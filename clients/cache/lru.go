package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	maxShards = 16
	// minShardSize is the smallest capacity a shard is given, stores
	// smaller than two of these use a single exact LRU
	minShardSize = 256
)

// LRUStore is a size bounded in memory Store. large stores spread keys
// over independent LRU shards by their xxhash so that concurrent
// requests for different keys rarely contend on the same lock
type LRUStore struct {
	shards []*lru.Cache[string, Entry]
}

var _ Store = (*LRUStore)(nil)

// NewLRUStore returns a store holding at most size entries in total
func NewLRUStore(size int) (*LRUStore, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid lru cache size %d, must be greater than zero", size)
	}

	count := size / minShardSize
	if count > maxShards {
		count = maxShards
	}
	if count < 1 {
		count = 1
	}

	shards := make([]*lru.Cache[string, Entry], count)
	for i := range shards {
		capacity := size / count
		if i < size%count {
			capacity++
		}

		shard, err := lru.New[string, Entry](capacity)
		if err != nil {
			return nil, err
		}
		shards[i] = shard
	}

	return &LRUStore{shards: shards}, nil
}

func (s *LRUStore) shard(key string) *lru.Cache[string, Entry] {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

// Set adds or replaces the entry for key, evicting the least recently
// used entry of its shard when full
func (s *LRUStore) Set(_ context.Context, key string, entry Entry, _ time.Duration) error {
	s.shard(key).Add(key, entry)
	return nil
}

// Get returns the entry for key and marks it recently used
func (s *LRUStore) Get(_ context.Context, key string) (Entry, error) {
	entry, ok := s.shard(key).Get(key)
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

func (s *LRUStore) Delete(_ context.Context, key string) error {
	s.shard(key).Remove(key)
	return nil
}

func (s *LRUStore) Healthcheck(context.Context) error {
	return nil
}

// Len returns the number of entries across all shards
func (s *LRUStore) Len() int {
	total := 0
	for _, shard := range s.shards {
		total += shard.Len()
	}
	return total
}
