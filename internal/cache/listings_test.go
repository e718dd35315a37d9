package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blaze/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisListings, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisListings(client, time.Minute), mr
}

func samplePage() domain.ListingPage {
	return domain.ListingPage{
		Products:   []domain.Product{{ID: "p1", Name: "Lamp", Price: decimal.RequireFromString("12.50"), SellerName: "alice"}},
		Page:       1,
		TotalPages: 1,
		Total:      1,
	}
}

func TestGet_CacheMiss(t *testing.T) {
	c, _ := setupTestRedis(t)
	_, gen, err := c.Get(context.Background(), domain.ListingFilter{Page: 1})
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, Generation("0"), gen)
}

func TestSetThenGet(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()
	f := domain.ListingFilter{Page: 1, Category: "Home & Garden", Sort: domain.SortNewest, Search: "la mp"}

	_, gen, err := c.Get(ctx, f)
	require.ErrorIs(t, err, ErrCacheMiss)
	require.NoError(t, c.Set(ctx, gen, f, samplePage()))
	got, _, err := c.Get(ctx, f)
	require.NoError(t, err)
	require.Len(t, got.Products, 1)
	assert.Equal(t, "Lamp", got.Products[0].Name)
	assert.True(t, got.Products[0].Price.Equal(decimal.RequireFromString("12.5")))

	_, _, err = c.Get(ctx, domain.ListingFilter{Page: 2, Category: "Home & Garden", Sort: domain.SortNewest, Search: "la mp"})
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestInvalidateDropsPages(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	f := domain.ListingFilter{Page: 1, Sort: domain.SortNewest}

	require.NoError(t, c.Set(ctx, "0", f, samplePage()))
	require.NoError(t, c.Invalidate(ctx))
	_, gen, err := c.Get(ctx, f)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, Generation("1"), gen)

	stored, err := mr.Get(generationKey)
	require.NoError(t, err)
	assert.Equal(t, "1", stored)
}

func TestSetAfterInvalidateStaysInOldGeneration(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()
	f := domain.ListingFilter{Page: 1, Sort: domain.SortNewest}

	// A reader misses, a sale invalidates, then the reader fills with the
	// page it loaded before the sale.
	_, gen, err := c.Get(ctx, f)
	require.ErrorIs(t, err, ErrCacheMiss)
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, gen, f, samplePage()))

	_, _, err = c.Get(ctx, f)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSetWithoutGenerationIsSkipped(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "", domain.ListingFilter{Page: 1}, samplePage()))
	assert.Empty(t, mr.Keys())
}

func TestCorruptPageIsAMiss(t *testing.T) {
	c, mr := setupTestRedis(t)
	f := domain.ListingFilter{Page: 1, Sort: domain.SortNewest}
	require.NoError(t, mr.Set(pageKey("0", f), "{not json"))
	_, gen, err := c.Get(context.Background(), f)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, Generation("0"), gen)
}

func TestPagesExpire(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	f := domain.ListingFilter{Page: 1, Sort: domain.SortNewest}
	require.NoError(t, c.Set(ctx, "0", f, samplePage()))
	mr.FastForward(2 * time.Minute)
	_, _, err := c.Get(ctx, f)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedisListings(client, 0)
	_, gen, err := c.Get(context.Background(), domain.ListingFilter{Page: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Empty(t, gen)
}

func TestNop(t *testing.T) {
	var n Nop
	_, _, err := n.Get(context.Background(), domain.ListingFilter{})
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, n.Set(context.Background(), "", domain.ListingFilter{}, samplePage()))
	assert.NoError(t, n.Invalidate(context.Background()))
}
