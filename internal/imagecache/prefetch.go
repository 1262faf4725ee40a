// ABOUTME: Prefetch scheduler that warms the image cache for upcoming feed posts.
// ABOUTME: Fetches in parallel, swallows individual failures, and skips cached URLs.
package imagecache

import (
	"context"
	"log"
	"sync"

	"github.com/onlyfashion/fitfeed/internal/models"
)

// DefaultPrefetchLimit is how many leading posts get their images prefetched.
const DefaultPrefetchLimit = 10

// Prefetcher pushes image URLs through the cache ahead of rendering. A failed
// prefetch leaves the URL uncached; the renderer falls back to the remote URL.
type Prefetcher struct {
	cache *Cache
}

// NewPrefetcher creates a prefetcher over the given cache.
func NewPrefetcher(cache *Cache) *Prefetcher {
	return &Prefetcher{cache: cache}
}

// PrefetchPosts caches every image of the first limit posts. It waits for all
// attempts to settle and never reports failure; limit <= 0 uses the default.
func (p *Prefetcher) PrefetchPosts(ctx context.Context, posts []*models.FeedPost, limit int) {
	if limit <= 0 {
		limit = DefaultPrefetchLimit
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	var urls []string
	for _, post := range posts {
		urls = append(urls, post.Images...)
	}
	p.prefetch(ctx, urls)
}

// PrefetchPost caches all images of a single post, used when the post becomes
// focused.
func (p *Prefetcher) PrefetchPost(ctx context.Context, post *models.FeedPost) {
	if post == nil {
		return
	}
	p.prefetch(ctx, post.Images)
}

func (p *Prefetcher) prefetch(ctx context.Context, urls []string) {
	var wg sync.WaitGroup
	for _, u := range urls {
		if _, ok := p.cache.Lookup(u); ok {
			continue
		}
		wg.Add(1)
		go func(sourceURL string) {
			defer wg.Done()
			if _, err := p.cache.EnsureCached(ctx, sourceURL); err != nil {
				log.Printf("imagecache: prefetch %s: %v", sourceURL, err)
			}
		}(u)
	}
	wg.Wait()
}
