package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dinehall/ordering/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	// Create an in-memory Redis server
	mr := miniredis.RunT(t)

	// Create Redis client pointing to miniredis
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	// Create cache instance
	cache := NewRedisCache(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func testCart(customerID int64) *domain.Cart {
	c := &domain.Cart{
		CustomerID: customerID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	c.AddLine(domain.MenuItemRef{ID: 1, Name: "Pad Thai", UnitPrice: 12.50}, 2, "spicy")
	c.AddLine(domain.MenuItemRef{ID: 2, Name: "Iced Tea", UnitPrice: 3.00}, 1, "")
	return c
}

func TestGet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	cart := testCart(123)

	// Manually set data in miniredis
	cartJSON, _ := json.Marshal(cart)
	mr.Set(cacheKey(123), string(cartJSON))

	// Test Get
	result, err := cache.Get(ctx, 123)
	require.NoError(t, err)
	assert.Equal(t, int64(123), result.CustomerID)
	require.Len(t, result.Lines, 2)
	assert.Equal(t, int64(1), result.Lines[0].Item.ID)
	assert.Equal(t, "spicy", result.Lines[0].Notes)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	result, err := cache.Get(ctx, 404)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_CorruptBlobIsACacheMiss(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	key := cacheKey(123)

	jsonCart, err := json.Marshal(testCart(123))
	require.NoError(t, err)
	truncated := jsonCart[0:10]
	e2 := mr.Set(key, string(truncated))
	require.NoError(t, e2)

	// An unreadable blob degrades to a miss so the caller falls through to
	// the durable store instead of failing the request.
	result, cacheError := cache.Get(ctx, 123)
	assert.ErrorIs(t, cacheError, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestSet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	cart := testCart(456)

	// Set cart in cache
	err := cache.Set(ctx, 456, cart)
	require.NoError(t, err)

	// Verify data was stored correctly in miniredis
	stored, e2 := mr.Get(cacheKey(456))
	require.NoError(t, e2)
	assert.NotEmpty(t, stored)

	var storedCart domain.Cart
	err = json.Unmarshal([]byte(stored), &storedCart)
	require.NoError(t, err)
	assert.Equal(t, int64(456), storedCart.CustomerID)
	assert.Len(t, storedCart.Lines, 2)
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	err := cache.Set(ctx, 789, &domain.Cart{CustomerID: 789})
	require.NoError(t, err)

	// Check that TTL was set (miniredis tracks TTL)
	ttl := mr.TTL(cacheKey(789))
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 20*time.Minute, "TTL should be base + max jitter")
}

func TestDelete_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	// Set some data first
	cartJSON, _ := json.Marshal(testCart(999))
	mr.Set(cacheKey(999), string(cartJSON))

	// Verify data exists
	assert.True(t, mr.Exists(cacheKey(999)))

	// Delete
	err := cache.Delete(ctx, 999)
	require.NoError(t, err)

	// Verify data was deleted
	assert.False(t, mr.Exists(cacheKey(999)))
}

func TestDelete_NonExistentKey(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	// Deleting non-existent key should not error
	err := cache.Delete(ctx, 404)
	assert.NoError(t, err)
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "cart:123", cacheKey(123))
}
