package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionsKeyMatchesPattern(t *testing.T) {
	memberID := uuid.New()
	pattern := TransactionsPattern(memberID)
	key := TransactionsKey(memberID, 2, 20)

	// pattern invalidation must cover every page key
	prefix := strings.TrimSuffix(pattern, "*")
	assert.True(t, strings.HasPrefix(key, prefix))
}

func TestKeysAreDistinctPerEntity(t *testing.T) {
	id := uuid.New()
	keys := []string{
		MemberKey(id),
		MemberByCodeKey("LYL-ABCDE-FGHJK"),
		MemberByCustomerKey(id, uuid.New()),
		ProgramKey(id),
		TransactionsKey(id, 1, 20),
	}
	seen := make(map[string]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
}

func TestNilCacheIsNoOp(t *testing.T) {
	ctx := context.Background()
	var c *Cache

	found, err := c.Get(ctx, "loyalty:member:x", &struct{}{})
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, c.Set(ctx, "loyalty:member:x", map[string]int{"a": 1}))
	assert.NoError(t, c.Del(ctx, "loyalty:member:x"))
	assert.NoError(t, c.InvalidatePattern(ctx, "loyalty:*"))

	// same behavior when constructed without a client
	c = New(nil, 0)
	found, err = c.Get(ctx, "loyalty:member:x", &struct{}{})
	require.NoError(t, err)
	assert.False(t, found)
}
