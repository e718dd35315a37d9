// Package cache holds short-lived copies of listing pages.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"blaze/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// Generation identifies the cache namespace a page was looked up in.
// The empty Generation means the lookup failed and nothing may be stored.
type Generation string

// Listings caches listing pages by filter. Invalidate drops every page.
// Set stores under the generation its Get reported, so a page read from
// the database before an Invalidate can never land in the newer namespace.
type Listings interface {
	Get(ctx context.Context, f domain.ListingFilter) (domain.ListingPage, Generation, error)
	Set(ctx context.Context, gen Generation, f domain.ListingFilter, page domain.ListingPage) error
	Invalidate(ctx context.Context) error
}

const generationKey = "blaze:listings:gen"

// RedisListings namespaces page keys by a generation counter, so Invalidate
// is a single INCR and stale pages simply expire.
type RedisListings struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisListings(client *redis.Client, ttl time.Duration) *RedisListings {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisListings{client: client, ttl: ttl}
}

func (r *RedisListings) generation(ctx context.Context) (Generation, error) {
	g, err := r.client.Get(ctx, generationKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get generation failed: %w", err)
	}
	return Generation(g), nil
}

func pageKey(gen Generation, f domain.ListingFilter) string {
	return fmt.Sprintf("blaze:listings:%s:p%d:c=%s:s=%s:q=%s",
		gen, f.Page, url.QueryEscape(f.Category), f.Sort, url.QueryEscape(f.Search))
}

// Get returns ErrCacheMiss together with the current generation on a miss.
func (r *RedisListings) Get(ctx context.Context, f domain.ListingFilter) (domain.ListingPage, Generation, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return domain.ListingPage{}, "", err
	}
	data, err := r.client.Get(ctx, pageKey(gen, f)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ListingPage{}, gen, ErrCacheMiss
	}
	if err != nil {
		return domain.ListingPage{}, "", fmt.Errorf("redis get failed: %w", err)
	}
	var page domain.ListingPage
	if err := json.Unmarshal(data, &page); err != nil {
		return domain.ListingPage{}, gen, ErrCacheMiss
	}
	return page, gen, nil
}

func (r *RedisListings) Set(ctx context.Context, gen Generation, f domain.ListingFilter, page domain.ListingPage) error {
	if gen == "" {
		return nil
	}
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal listing page failed: %w", err)
	}
	if err := r.client.Set(ctx, pageKey(gen, f), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisListings) Invalidate(ctx context.Context) error {
	if err := r.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("redis incr failed: %w", err)
	}
	return nil
}

// Nop never hits; used when no Redis is configured.
type Nop struct{}

func (Nop) Get(context.Context, domain.ListingFilter) (domain.ListingPage, Generation, error) {
	return domain.ListingPage{}, "", ErrCacheMiss
}

func (Nop) Set(context.Context, Generation, domain.ListingFilter, domain.ListingPage) error {
	return nil
}

func (Nop) Invalidate(context.Context) error { return nil }
