// ABOUTME: Content-addressed-by-URL disk cache for remote images with TTL eviction.
// ABOUTME: Coalesces concurrent downloads per URL and replaces entries atomically.
package imagecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DownloadError reports a failed image fetch. Status is zero for transport
// failures.
type DownloadError struct {
	URL    string
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to download %s: status %d", e.URL, e.Status)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Cache stores downloaded images in a directory, keyed by source URL. The
// in-memory index lives for the process; files on disk persist until the
// eviction sweep removes them.
type Cache struct {
	dir    string
	client *http.Client

	group singleflight.Group

	mu    sync.Mutex
	index map[string]string // source URL -> local path
}

// New creates a cache rooted at dir. The directory is created lazily on the
// first write.
func New(dir string) *Cache {
	return NewWithClient(dir, &http.Client{Timeout: 30 * time.Second})
}

// NewWithClient creates a cache that downloads through the given HTTP client.
func NewWithClient(dir string, client *http.Client) *Cache {
	return &Cache{
		dir:    dir,
		client: client,
		index:  make(map[string]string),
	}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Lookup returns the local path for a cached URL. It has no side effects; a
// miss means the caller should use the remote URL directly.
func (c *Cache) Lookup(sourceURL string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.index[sourceURL]
	return p, ok
}

// EnsureCached downloads the URL into the cache unless it is already present.
// Concurrent calls for the same URL share one download; every caller resolves
// to the same local path. A failed download leaves the URL uncached and
// eligible for a later retry.
func (c *Cache) EnsureCached(ctx context.Context, sourceURL string) (string, error) {
	if p, ok := c.Lookup(sourceURL); ok {
		return p, nil
	}

	v, err, _ := c.group.Do(sourceURL, func() (interface{}, error) {
		// A previous flight may have finished between the miss and here.
		if p, ok := c.Lookup(sourceURL); ok {
			return p, nil
		}
		return c.download(ctx, sourceURL)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// download fetches the URL to a temp file and renames it into place, so no
// reader ever observes a half-written entry.
func (c *Cache) download(ctx context.Context, sourceURL string) (string, error) {
	if err := os.MkdirAll(c.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", sourceURL, nil)
	if err != nil {
		return "", &DownloadError{URL: sourceURL, Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", &DownloadError{URL: sourceURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return "", &DownloadError{URL: sourceURL, Status: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", &DownloadError{URL: sourceURL, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to finish cache write: %w", err)
	}

	final := filepath.Join(c.dir, cacheFilename(sourceURL))
	if err := os.Rename(tmpPath, final); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move image into cache: %w", err)
	}

	c.mu.Lock()
	if old, ok := c.index[sourceURL]; ok && old != final {
		_ = os.Remove(old)
	}
	c.index[sourceURL] = final
	c.mu.Unlock()

	return final, nil
}

// EvictExpired deletes cache files older than maxAge and returns how many
// were removed. Per-file failures are logged and skipped so one bad entry
// never aborts the sweep. Runs once at process start.
func (c *Cache) EvictExpired(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan cache directory: %w", err)
	}

	now := time.Now()
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		p := filepath.Join(c.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			log.Printf("imagecache: skipping %s: %v", entry.Name(), err)
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if err := os.Remove(p); err != nil {
			log.Printf("imagecache: failed to evict %s: %v", entry.Name(), err)
			continue
		}
		removed++
		c.mu.Lock()
		for src, cached := range c.index {
			if cached == p {
				delete(c.index, src)
			}
		}
		c.mu.Unlock()
	}
	return removed, nil
}

// cacheFilename builds the on-disk name: unix millis, a short hash of the
// source URL, and the URL's original base name. The millis keep replacement
// downloads distinct files; the hash keeps two URLs that share a base name
// from colliding within the same millisecond.
func cacheFilename(sourceURL string) string {
	base := "image.jpg"
	if u, err := url.Parse(sourceURL); err == nil {
		if b := path.Base(u.Path); b != "" && b != "." && b != "/" {
			base = b
		}
	}
	sum := sha256.Sum256([]byte(sourceURL))
	return fmt.Sprintf("%d_%s_%s", time.Now().UnixMilli(), hex.EncodeToString(sum[:4]), base)
}
