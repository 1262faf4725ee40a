// ABOUTME: Tests for the disk image cache.
// ABOUTME: Covers single-flight coalescing, TTL eviction, atomic replace, and failures.
package imagecache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEnsureCachedSingleFlight(t *testing.T) {
	var downloads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte("imagebytes"))
	}))
	defer server.Close()

	cache := New(t.TempDir())
	url := server.URL + "/fits/look.jpg"

	const callers = 8
	paths := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = cache.EnsureCached(context.Background(), url)
		}(i)
	}
	wg.Wait()

	if got := downloads.Load(); got != 1 {
		t.Errorf("downloads: got %d, want exactly 1", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error: %v", i, errs[i])
		}
		if paths[i] != paths[0] {
			t.Errorf("caller %d path %q differs from %q", i, paths[i], paths[0])
		}
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("reading cached file: %v", err)
	}
	if string(data) != "imagebytes" {
		t.Errorf("cached content: got %q", data)
	}
}

func TestLookupHasNoSideEffects(t *testing.T) {
	cache := New(filepath.Join(t.TempDir(), "cache"))
	if _, ok := cache.Lookup("https://img.example/missing.jpg"); ok {
		t.Error("expected miss for uncached URL")
	}
	if _, err := os.Stat(cache.Dir()); !os.IsNotExist(err) {
		t.Error("Lookup must not create the cache directory")
	}
}

func TestEnsureCachedDownloadFailureRetryable(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	cache := New(t.TempDir())
	url := server.URL + "/a.jpg"

	_, err := cache.EnsureCached(context.Background(), url)
	var de *DownloadError
	if !errors.As(err, &de) {
		t.Fatalf("expected DownloadError, got %v", err)
	}
	if de.Status != http.StatusBadGateway {
		t.Errorf("status: got %d", de.Status)
	}
	if _, ok := cache.Lookup(url); ok {
		t.Error("failed download must not mark the URL as cached")
	}

	// The URL is not stuck in flight; a later call succeeds.
	failing.Store(false)
	p, err := cache.EnsureCached(context.Background(), url)
	if err != nil {
		t.Fatalf("retry error: %v", err)
	}
	if p == "" {
		t.Error("expected cached path after retry")
	}
}

func TestEnsureCachedReplacesEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("v"))
	}))
	defer server.Close()

	cache := New(t.TempDir())
	url := server.URL + "/b.jpg"

	first, err := cache.EnsureCached(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}

	// Force a fresh download for the same URL.
	second, err := cache.download(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	if p, _ := cache.Lookup(url); p != second {
		t.Errorf("index: got %q, want new path %q", p, second)
	}
	if first != second {
		if _, err := os.Stat(first); !os.IsNotExist(err) {
			t.Error("superseded cache file should be removed")
		}
	}
}

func TestSameBasenameDistinctURLs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	cache := New(t.TempDir())
	urlA := server.URL + "/posts/a/main.jpg"
	urlB := server.URL + "/posts/b/main.jpg"

	// Back-to-back downloads land in the same millisecond; the entries must
	// still be distinct files.
	pathA, err := cache.EnsureCached(context.Background(), urlA)
	if err != nil {
		t.Fatal(err)
	}
	pathB, err := cache.EnsureCached(context.Background(), urlB)
	if err != nil {
		t.Fatal(err)
	}
	if pathA == pathB {
		t.Fatalf("both URLs cached to %q", pathA)
	}

	dataA, err := os.ReadFile(pathA)
	if err != nil {
		t.Fatal(err)
	}
	dataB, err := os.ReadFile(pathB)
	if err != nil {
		t.Fatal(err)
	}
	if string(dataA) != "/posts/a/main.jpg" || string(dataB) != "/posts/b/main.jpg" {
		t.Errorf("cached contents aliased: %q / %q", dataA, dataB)
	}
}

func TestEvictExpired(t *testing.T) {
	dir := t.TempDir()
	cache := New(dir)

	old := filepath.Join(dir, "1000_old.jpg")
	fresh := filepath.Join(dir, "2000_fresh.jpg")
	for _, p := range []string{old, fresh} {
		if err := os.WriteFile(p, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	stale := time.Now().Add(-25 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}

	removed, err := cache.EvictExpired(24 * time.Hour)
	if err != nil {
		t.Fatalf("EvictExpired error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed: got %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("25h-old entry should be evicted")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("1h-old entry should be retained")
	}
}

func TestEvictExpiredMissingDir(t *testing.T) {
	cache := New(filepath.Join(t.TempDir(), "never-created"))
	removed, err := cache.EvictExpired(24 * time.Hour)
	if err != nil || removed != 0 {
		t.Errorf("got (%d, %v), want (0, nil)", removed, err)
	}
}
