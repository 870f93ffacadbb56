package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Cache is a redis-backed read cache for loyalty lookups. A nil Cache
// (or one built over a nil client) degrades to a no-op: every Get is a
// miss and writes do nothing, so correctness never depends on redis
// being up. Entries are invalidated after commit, never updated in
// place.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a cache over the given redis client. client may be nil.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Get unmarshals the cached value for key into dest, reporting whether
// a value was found
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error reading cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("error decoding cache key %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key with the configured TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error encoding cache key %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Del removes the given keys
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// InvalidatePattern removes every key matching the glob pattern using
// SCAN rather than KEYS to avoid blocking redis
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) error {
	if !c.enabled() {
		return nil
	}
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Key builders. Keeping these in one place so invalidation patterns
// stay in sync with reads.

func MemberKey(id uuid.UUID) string {
	return fmt.Sprintf("loyalty:member:%s", id)
}

func MemberByCodeKey(code string) string {
	return fmt.Sprintf("loyalty:member:code:%s", code)
}

func MemberByCustomerKey(customerID, programID uuid.UUID) string {
	return fmt.Sprintf("loyalty:member:customer:%s:%s", customerID, programID)
}

func ProgramKey(id uuid.UUID) string {
	return fmt.Sprintf("loyalty:program:%s", id)
}

func TransactionsPattern(memberID uuid.UUID) string {
	return fmt.Sprintf("loyalty:txns:%s:*", memberID)
}

func TransactionsKey(memberID uuid.UUID, page, pageSize int) string {
	return fmt.Sprintf("loyalty:txns:%s:%d:%d", memberID, page, pageSize)
}
