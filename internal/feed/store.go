// ABOUTME: Feed store owning paginated post data and optimistic like mutations.
// ABOUTME: Tracks cursor state, serializes per-post toggles, and filters client-side.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/onlyfashion/fitfeed/internal/models"
)

// API is the slice of the feed API the store consumes.
type API interface {
	Feed(ctx context.Context, limit int, cursor string) (models.FeedPage, error)
	Like(ctx context.Context, postID string) error
	Unlike(ctx context.Context, postID string) error
}

// ErrToggleInFlight is returned when a like toggle is already pending for the
// same post. Toggles are serialized per post so a slow revert can never
// clobber a newer successful mutation; callers may treat this as a no-op.
var ErrToggleInFlight = errors.New("like toggle already in flight for this post")

// Store holds the loaded feed. Loads replace or append pages; a load failure
// never clears already-loaded posts.
type Store struct {
	api      API
	pageSize int

	mu         sync.Mutex
	posts      []*models.FeedPost
	nextCursor string
	hasMore    bool
	loading    int
	generation int // bumped on every reload; stale LoadMore results are dropped
	toggles    map[string]struct{}
}

// NewStore creates a feed store paging with the given size.
func NewStore(api API, pageSize int) *Store {
	return &Store{
		api:      api,
		pageSize: pageSize,
		toggles:  make(map[string]struct{}),
	}
}

// LoadFirstPage replaces the whole collection with a fresh first page.
// Overlapping calls are all treated as reloads; the latest successful
// response wins. While any load is in flight, LoadMore is a no-op.
func (s *Store) LoadFirstPage(ctx context.Context) error {
	s.mu.Lock()
	s.loading++
	s.generation++
	s.mu.Unlock()

	page, err := s.api.Feed(ctx, s.pageSize, "")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		return fmt.Errorf("failed to load feed: %w", err)
	}
	s.posts = page.Posts
	s.nextCursor = page.NextCursor
	s.hasMore = page.NextCursor != ""
	return nil
}

// LoadMore appends the next page after the current collection. It returns
// immediately when a load is already in flight or the feed is exhausted.
func (s *Store) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.loading > 0 || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	s.loading++
	cursor := s.nextCursor
	gen := s.generation
	s.mu.Unlock()

	page, err := s.api.Feed(ctx, s.pageSize, cursor)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		return fmt.Errorf("failed to load more posts: %w", err)
	}
	if gen != s.generation {
		// A reload replaced the collection while this page was in flight;
		// appending it now would duplicate posts.
		return nil
	}
	s.posts = append(s.posts, page.Posts...)
	s.nextCursor = page.NextCursor
	s.hasMore = page.NextCursor != ""
	return nil
}

// ToggleLike flips the post's liked state optimistically, then confirms with
// the API. On failure the exact pre-toggle snapshot is restored and the error
// returned. An unknown post ID is a no-op.
func (s *Store) ToggleLike(ctx context.Context, postID string) error {
	s.mu.Lock()
	post := s.findLocked(postID)
	if post == nil {
		s.mu.Unlock()
		return nil
	}
	if _, busy := s.toggles[postID]; busy {
		s.mu.Unlock()
		return ErrToggleInFlight
	}
	s.toggles[postID] = struct{}{}

	wasLiked := post.LikedByMe
	wasCount := post.LikeCount

	// Optimistic flip, visible to the renderer before any network round trip.
	post.LikedByMe = !wasLiked
	if wasLiked {
		post.LikeCount--
	} else {
		post.LikeCount++
	}
	s.mu.Unlock()

	var err error
	if wasLiked {
		err = s.api.Unlike(ctx, postID)
	} else {
		err = s.api.Like(ctx, postID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.toggles, postID)
	if err != nil {
		// Restore the snapshot captured before the flip, not a blind re-flip.
		if p := s.findLocked(postID); p != nil {
			p.LikedByMe = wasLiked
			p.LikeCount = wasCount
		}
		return fmt.Errorf("failed to update like: %w", err)
	}
	return nil
}

// Search filters the loaded collection in place by author handle or tag
// substring, case-insensitively. It never pages in more data; an empty query
// is a no-op (use ClearSearch to reload).
func (s *Store) Search(query string) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := s.posts[:0:0]
	for _, post := range s.posts {
		if matches(post, q) {
			filtered = append(filtered, post)
		}
	}
	s.posts = filtered
}

// ClearSearch discards the filtered view by reloading the first page.
func (s *Store) ClearSearch(ctx context.Context) error {
	return s.LoadFirstPage(ctx)
}

func matches(post *models.FeedPost, q string) bool {
	if strings.Contains(strings.ToLower(post.Author.Handle), q) {
		return true
	}
	for _, tag := range post.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Posts returns a snapshot of the loaded posts in feed order. Each post is a
// copy taken under the lock, so renderers on other goroutines never observe a
// like toggle mid-flight; re-read after the mutation settles.
func (s *Store) Posts() []*models.FeedPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.FeedPost, len(s.posts))
	for i, p := range s.posts {
		cp := *p
		out[i] = &cp
	}
	return out
}

// Post returns a snapshot of the post with the given ID, or nil.
func (s *Store) Post(postID string) *models.FeedPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findLocked(postID)
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// HasMore reports whether a further page exists.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Loading reports whether any page load is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

func (s *Store) findLocked(postID string) *models.FeedPost {
	for _, p := range s.posts {
		if p.ID == postID {
			return p
		}
	}
	return nil
}
