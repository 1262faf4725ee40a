// ABOUTME: View-mode state machine for the feed screen.
// ABOUTME: Governs grid/vertical transitions, per-post image paging, and load retry state.
package view

import (
	"math"
	"time"
)

// Mode is the feed presentation mode.
type Mode int

const (
	ModeGrid Mode = iota
	ModeVertical
)

func (m Mode) String() string {
	if m == ModeVertical {
		return "vertical"
	}
	return "grid"
}

// Policy values for transitions and image load retries.
const (
	TransitionDuration = 200 * time.Millisecond
	MaxRetries         = 3
	RetryBaseDelay     = time.Second
)

// ImageKey addresses one image slot of one post. A structured key avoids the
// collision risk of concatenated string keys.
type ImageKey struct {
	PostID string
	Index  int
}

// LoadState is the lifecycle state of one image slot.
type LoadState int

const (
	LoadIdle LoadState = iota
	LoadLoading
	LoadLoaded
	LoadError
)

// State holds the per-screen view state. It is driven from the single TUI
// event loop and is not safe for concurrent use.
type State struct {
	mode          Mode
	focusedPostID string
	transitioning bool
	imageIndex    map[string]int
	loadState     map[ImageKey]LoadState
	retryCount    map[ImageKey]int
}

// NewState creates a view state starting in grid mode.
func NewState() *State {
	return &State{
		imageIndex: make(map[string]int),
		loadState:  make(map[ImageKey]LoadState),
		retryCount: make(map[ImageKey]int),
	}
}

// Mode returns the current presentation mode.
func (s *State) Mode() Mode { return s.mode }

// FocusedPostID returns the isolated post in vertical mode, or empty.
func (s *State) FocusedPostID() string { return s.focusedPostID }

// Transitioning reports whether a mode transition animation is in progress.
func (s *State) Transitioning() bool { return s.transitioning }

// ToggleMode switches between grid and vertical. Leaving vertical clears any
// focused post. Returns the transition duration the renderer should wait out.
func (s *State) ToggleMode() time.Duration {
	if s.mode == ModeGrid {
		s.mode = ModeVertical
	} else {
		s.mode = ModeGrid
		s.focusedPostID = ""
	}
	return s.beginTransition()
}

// FocusPost isolates a single post in vertical mode.
func (s *State) FocusPost(postID string) time.Duration {
	s.mode = ModeVertical
	s.focusedPostID = postID
	return s.beginTransition()
}

// BackToGrid returns to grid mode and clears the focused post.
func (s *State) BackToGrid() time.Duration {
	s.mode = ModeGrid
	s.focusedPostID = ""
	return s.beginTransition()
}

func (s *State) beginTransition() time.Duration {
	s.transitioning = true
	return TransitionDuration
}

// EndTransition clears the transition-in-progress flag.
func (s *State) EndTransition() { s.transitioning = false }

// ImageIndex returns the current horizontal page for a post, defaulting to 0.
func (s *State) ImageIndex(postID string) int { return s.imageIndex[postID] }

// SetImageIndex stores a clamped horizontal page for a post.
func (s *State) SetImageIndex(postID string, index, imageCount int) int {
	if index < 0 {
		index = 0
	}
	if imageCount > 0 && index > imageCount-1 {
		index = imageCount - 1
	}
	s.imageIndex[postID] = index
	return index
}

// SnapImageIndex resolves a scroll-end offset to the nearest page and stores
// it. Paging snaps on scroll end rather than tracking continuously.
func (s *State) SnapImageIndex(postID string, offsetPx, pageWidthPx float64, imageCount int) int {
	if pageWidthPx <= 0 {
		return s.ImageIndex(postID)
	}
	idx := int(math.Round(offsetPx / pageWidthPx))
	return s.SetImageIndex(postID, idx, imageCount)
}

// LoadStateFor returns the lifecycle state of an image slot.
func (s *State) LoadStateFor(key ImageKey) LoadState { return s.loadState[key] }

// RetryCount returns how many retries have been scheduled for an image slot.
func (s *State) RetryCount(key ImageKey) int { return s.retryCount[key] }

// StartLoad marks an image slot as loading.
func (s *State) StartLoad(key ImageKey) { s.loadState[key] = LoadLoading }

// FinishLoad marks an image slot as loaded.
func (s *State) FinishLoad(key ImageKey) { s.loadState[key] = LoadLoaded }

// FailLoad marks an image slot as errored. While the retry cap is not
// exhausted it schedules another attempt with linear backoff and reports the
// delay; past the cap the slot stays in error and only a full reload
// recovers it.
func (s *State) FailLoad(key ImageKey) (retryIn time.Duration, willRetry bool) {
	s.loadState[key] = LoadError
	n := s.retryCount[key]
	if n >= MaxRetries {
		return 0, false
	}
	s.retryCount[key] = n + 1
	return RetryBaseDelay * time.Duration(n+1), true
}

// ResetLoads clears all image load and retry state, used on a full reload.
func (s *State) ResetLoads() {
	s.loadState = make(map[ImageKey]LoadState)
	s.retryCount = make(map[ImageKey]int)
}
