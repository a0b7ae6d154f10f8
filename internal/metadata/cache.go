package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/reelview/backend/internal/models"
)

type searchEntry struct {
	results []SearchResult
	expires time.Time
}

type genreEntry struct {
	genres  []models.Genre
	expires time.Time
}

// CachingProvider wraps another Provider with a TTL-based in-memory cache.
type CachingProvider struct {
	base Provider
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[string]searchEntry
	genres  genreEntry
}

// NewCachingProvider returns a Provider that caches lookups for the provided TTL.
func NewCachingProvider(base Provider, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingProvider{
		base:    base,
		ttl:     ttl,
		entries: make(map[string]searchEntry),
	}
}

// SearchTitles returns cached results when available, otherwise it delegates
// to the underlying provider and stores the result.
func (c *CachingProvider) SearchTitles(ctx context.Context, query, kind string) ([]SearchResult, error) {
	if c == nil || c.base == nil {
		return nil, ErrProviderUnavailable
	}

	key := kind + "|" + query
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.results, nil
	}

	results, err := c.base.SearchTitles(ctx, query, kind)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = searchEntry{results: results, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return results, nil
}

// ListGenres caches the provider's genre list under the same TTL.
func (c *CachingProvider) ListGenres(ctx context.Context) ([]models.Genre, error) {
	if c == nil || c.base == nil {
		return nil, ErrProviderUnavailable
	}

	now := time.Now()

	c.mu.RLock()
	cached := c.genres
	c.mu.RUnlock()
	if cached.genres != nil && now.Before(cached.expires) {
		return cached.genres, nil
	}

	genres, err := c.base.ListGenres(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.genres = genreEntry{genres: genres, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return genres, nil
}

var _ Provider = (*CachingProvider)(nil)
