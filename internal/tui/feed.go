// ABOUTME: Interactive TUI feed browser with grid and vertical full-post modes.
// ABOUTME: Bubbletea model wiring the feed store, view state, and image cache together.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/onlyfashion/fitfeed/internal/cart"
	"github.com/onlyfashion/fitfeed/internal/feed"
	"github.com/onlyfashion/fitfeed/internal/imagecache"
	"github.com/onlyfashion/fitfeed/internal/models"
	"github.com/onlyfashion/fitfeed/internal/view"
)

// GridColumns is the number of cells per grid row.
const GridColumns = 3

// ToggleModePrefetchLimit caps how many posts are prefetched on a mode switch.
const ToggleModePrefetchLimit = 5

// ViewRecorder posts a view event for a focused post. Failures are ignored.
type ViewRecorder interface {
	RecordView(ctx context.Context, postID string) error
}

type pageLoadedMsg struct {
	appended bool
	err      error
}

type likeResultMsg struct {
	postID string
	err    error
}

type imageCachedMsg struct {
	key  view.ImageKey
	url  string
	path string
	err  error
}

type retryTickMsg struct {
	key view.ImageKey
	url string
}

type transitionDoneMsg struct{}

type viewRecordedMsg struct{}

type prefetchDoneMsg struct{}

var (
	cellStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(24)
	cellCursorStyle = cellStyle.
			BorderForeground(lipgloss.Color("212"))
	handleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	likedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dotStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// FeedModel is the bubbletea model for the feed browser.
type FeedModel struct {
	store      *feed.Store
	views      *view.State
	cache      *imagecache.Cache
	prefetcher *imagecache.Prefetcher
	recorder   ViewRecorder
	cart       *cart.Store

	spinner     spinner.Model
	searchInput textinput.Model

	width, height int
	cursor        int // grid cell index
	current       int // vertical post index
	selectedItem  int // shopping dot index within the current post
	sizeIndex     int // size choice for the selected item
	showDots      bool
	searching     bool
	searchApplied bool
	loading       bool
	statusMsg     string
	quitting      bool
}

// NewFeedModel creates a feed browser. The cart store may be nil when the
// browser is read-only; the recorder may be nil when view events are disabled.
func NewFeedModel(store *feed.Store, cache *imagecache.Cache, recorder ViewRecorder, cartStore *cart.Store) FeedModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	search := textinput.New()
	search.Placeholder = "handle or #tag"
	search.Width = 30

	return FeedModel{
		store:       store,
		views:       view.NewState(),
		cache:       cache,
		prefetcher:  imagecache.NewPrefetcher(cache),
		recorder:    recorder,
		cart:        cartStore,
		spinner:     s,
		searchInput: search,
		showDots:    true,
		loading:     true,
	}
}

// Init implements tea.Model.
func (m FeedModel) Init() tea.Cmd {
	return tea.Batch(m.loadFirstPage(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m FeedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case pageLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("feed load failed: %v", msg.err)
			return m, nil
		}
		m.statusMsg = ""
		m.clampCursor()
		cmds := []tea.Cmd{m.prefetchVisible(imagecache.DefaultPrefetchLimit)}
		if !msg.appended {
			m.views.ResetLoads()
		}
		if m.views.Mode() == view.ModeVertical {
			cmds = append(cmds, m.ensureCurrentImage())
		}
		return m, tea.Batch(cmds...)

	case likeResultMsg:
		if msg.err != nil && !errors.Is(msg.err, feed.ErrToggleInFlight) {
			m.statusMsg = "couldn't update like, try again"
		}
		return m, nil

	case imageCachedMsg:
		if msg.err != nil {
			delay, willRetry := m.views.FailLoad(msg.key)
			if !willRetry {
				return m, nil
			}
			key, url := msg.key, msg.url
			return m, tea.Tick(delay, func(time.Time) tea.Msg {
				return retryTickMsg{key: key, url: url}
			})
		}
		m.views.FinishLoad(msg.key)
		return m, nil

	case retryTickMsg:
		m.views.StartLoad(msg.key)
		return m, m.fetchImage(msg.key, msg.url)

	case transitionDoneMsg:
		m.views.EndTransition()
		return m, nil

	case viewRecordedMsg, prefetchDoneMsg:
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m FeedModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.updateSearch(msg)
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEscape:
		if m.views.Mode() == view.ModeVertical {
			return m.backToGrid()
		}
		if m.searchApplied {
			return m.clearSearch()
		}
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEnter:
		if m.views.Mode() == view.ModeGrid {
			return m.focusPost(m.cursor)
		}
		return m, nil
	case tea.KeyTab:
		if m.views.Mode() == view.ModeVertical {
			m.cycleItem(1)
		}
		return m, nil
	case tea.KeyUp:
		return m.move(0, -1)
	case tea.KeyDown:
		return m.move(0, 1)
	case tea.KeyLeft:
		return m.move(-1, 0)
	case tea.KeyRight:
		return m.move(1, 0)
	}

	if msg.Type != tea.KeyRunes || len(msg.Runes) == 0 {
		return m, nil
	}

	switch msg.Runes[0] {
	case 'q':
		m.quitting = true
		return m, tea.Quit
	case 'v':
		return m.toggleMode()
	case 'b':
		if m.views.Mode() == view.ModeVertical {
			return m.backToGrid()
		}
	case '/':
		m.searching = true
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		return m, textinput.Blink
	case 'r':
		m.loading = true
		return m, tea.Batch(m.loadFirstPage(), m.spinner.Tick)
	case 'n':
		return m.loadMore()
	case 'k':
		return m.move(0, -1)
	case 'j':
		return m.move(0, 1)
	case 'h':
		return m.move(-1, 0)
	case 'l':
		return m.move(1, 0)
	case 'L':
		return m.toggleLike()
	case 'd':
		if m.views.Mode() == view.ModeVertical {
			m.showDots = !m.showDots
		}
		return m, nil
	case 's':
		m.cycleSize(1)
		return m, nil
	case 'a':
		return m.addToCart()
	}

	return m, nil
}

func (m FeedModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEscape:
		m.searching = false
		m.searchInput.Blur()
		if m.searchApplied {
			return m.clearSearch()
		}
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.searchInput.Blur()
		query := m.searchInput.Value()
		if query == "" {
			return m, nil
		}
		m.store.Search(query)
		m.searchApplied = true
		m.cursor = 0
		m.current = 0
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m FeedModel) move(dx, dy int) (tea.Model, tea.Cmd) {
	posts := m.store.Posts()
	if len(posts) == 0 {
		return m, nil
	}

	if m.views.Mode() == view.ModeGrid {
		next := m.cursor + dx + dy*GridColumns
		if next >= 0 && next < len(posts) {
			m.cursor = next
		}
		return m, nil
	}

	// Vertical mode: up/down scrolls posts, left/right pages images.
	if dy != 0 {
		next := m.current + dy
		if next < 0 || next >= len(posts) {
			return m, nil
		}
		m.current = next
		m.selectedItem = 0
		m.sizeIndex = 0
		cmds := []tea.Cmd{m.ensureCurrentImage(), m.recordView(posts[m.current].ID), m.prefetchPost(posts[m.current])}
		// Fetch the next page when scrolling reaches the tail.
		if m.current == len(posts)-1 && m.store.HasMore() {
			var more tea.Cmd
			var model tea.Model
			model, more = m.loadMore()
			m = model.(FeedModel)
			cmds = append(cmds, more)
		}
		return m, tea.Batch(cmds...)
	}

	post := posts[m.current]
	idx := m.views.ImageIndex(post.ID)
	m.views.SetImageIndex(post.ID, idx+dx, len(post.Images))
	return m, m.ensureCurrentImage()
}

func (m FeedModel) focusPost(index int) (tea.Model, tea.Cmd) {
	posts := m.store.Posts()
	if index < 0 || index >= len(posts) {
		return m, nil
	}
	post := posts[index]
	m.current = index
	m.selectedItem = 0
	m.sizeIndex = 0
	d := m.views.FocusPost(post.ID)
	return m, tea.Batch(
		tea.Tick(d, func(time.Time) tea.Msg { return transitionDoneMsg{} }),
		m.ensureCurrentImage(),
		m.recordView(post.ID),
		m.prefetchPost(post),
	)
}

func (m FeedModel) backToGrid() (tea.Model, tea.Cmd) {
	m.cursor = m.current
	d := m.views.BackToGrid()
	return m, tea.Tick(d, func(time.Time) tea.Msg { return transitionDoneMsg{} })
}

func (m FeedModel) toggleMode() (tea.Model, tea.Cmd) {
	d := m.views.ToggleMode()
	cmds := []tea.Cmd{
		tea.Tick(d, func(time.Time) tea.Msg { return transitionDoneMsg{} }),
		m.prefetchVisible(ToggleModePrefetchLimit),
	}
	if m.views.Mode() == view.ModeVertical {
		m.current = m.cursor
		cmds = append(cmds, m.ensureCurrentImage())
	} else {
		m.cursor = m.current
	}
	return m, tea.Batch(cmds...)
}

func (m FeedModel) toggleLike() (tea.Model, tea.Cmd) {
	post := m.currentPost()
	if post == nil {
		return m, nil
	}
	store := m.store
	postID := post.ID
	return m, func() tea.Msg {
		return likeResultMsg{postID: postID, err: store.ToggleLike(context.Background(), postID)}
	}
}

func (m FeedModel) addToCart() (tea.Model, tea.Cmd) {
	if m.cart == nil || m.views.Mode() != view.ModeVertical {
		return m, nil
	}
	post := m.currentPost()
	if post == nil || len(post.Items) == 0 {
		return m, nil
	}
	item := post.Items[m.selectedItem%len(post.Items)]
	size := ""
	if len(item.Sizes) > 0 {
		size = item.Sizes[m.sizeIndex%len(item.Sizes)]
	}
	image := ""
	if len(post.Images) > 0 {
		image = post.Images[0]
	}
	if _, err := m.cart.Add(item, size, image, post.ID); err != nil {
		m.statusMsg = err.Error()
		return m, nil
	}
	m.statusMsg = fmt.Sprintf("added %s to cart (%d items)", item.Name, m.cart.Count())
	return m, nil
}

func (m *FeedModel) cycleItem(by int) {
	post := m.currentPost()
	if post == nil || len(post.Items) == 0 {
		return
	}
	m.selectedItem = (m.selectedItem + by + len(post.Items)) % len(post.Items)
	m.sizeIndex = 0
}

func (m *FeedModel) cycleSize(by int) {
	post := m.currentPost()
	if post == nil || len(post.Items) == 0 {
		return
	}
	item := post.Items[m.selectedItem%len(post.Items)]
	if len(item.Sizes) == 0 {
		return
	}
	m.sizeIndex = (m.sizeIndex + by + len(item.Sizes)) % len(item.Sizes)
}

func (m FeedModel) loadFirstPage() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return pageLoadedMsg{err: store.LoadFirstPage(context.Background())}
	}
}

func (m FeedModel) loadMore() (tea.Model, tea.Cmd) {
	if !m.store.HasMore() || m.store.Loading() {
		return m, nil
	}
	store := m.store
	return m, func() tea.Msg {
		return pageLoadedMsg{appended: true, err: store.LoadMore(context.Background())}
	}
}

func (m FeedModel) clearSearch() (tea.Model, tea.Cmd) {
	m.searchApplied = false
	m.cursor = 0
	m.current = 0
	m.loading = true
	store := m.store
	return m, tea.Batch(func() tea.Msg {
		return pageLoadedMsg{err: store.ClearSearch(context.Background())}
	}, m.spinner.Tick)
}

func (m FeedModel) recordView(postID string) tea.Cmd {
	if m.recorder == nil {
		return nil
	}
	rec := m.recorder
	return func() tea.Msg {
		// View tracking is best effort.
		_ = rec.RecordView(context.Background(), postID)
		return viewRecordedMsg{}
	}
}

func (m FeedModel) prefetchVisible(limit int) tea.Cmd {
	posts := m.store.Posts()
	p := m.prefetcher
	return func() tea.Msg {
		p.PrefetchPosts(context.Background(), posts, limit)
		return prefetchDoneMsg{}
	}
}

func (m FeedModel) prefetchPost(post *models.FeedPost) tea.Cmd {
	p := m.prefetcher
	return func() tea.Msg {
		p.PrefetchPost(context.Background(), post)
		return prefetchDoneMsg{}
	}
}

// ensureCurrentImage starts loading the image the vertical view is showing,
// unless it is already cached or in flight.
func (m FeedModel) ensureCurrentImage() tea.Cmd {
	post := m.currentPost()
	if post == nil || len(post.Images) == 0 {
		return nil
	}
	idx := m.views.ImageIndex(post.ID)
	if idx >= len(post.Images) {
		idx = len(post.Images) - 1
	}
	key := view.ImageKey{PostID: post.ID, Index: idx}
	url := post.Images[idx]

	if _, ok := m.cache.Lookup(url); ok {
		m.views.FinishLoad(key)
		return nil
	}
	if m.views.LoadStateFor(key) == view.LoadLoading {
		return nil
	}
	m.views.StartLoad(key)
	return m.fetchImage(key, url)
}

func (m FeedModel) fetchImage(key view.ImageKey, url string) tea.Cmd {
	c := m.cache
	return func() tea.Msg {
		path, err := c.EnsureCached(context.Background(), url)
		return imageCachedMsg{key: key, url: url, path: path, err: err}
	}
}

func (m FeedModel) currentPost() *models.FeedPost {
	posts := m.store.Posts()
	if len(posts) == 0 {
		return nil
	}
	idx := m.current
	if m.views.Mode() == view.ModeGrid {
		idx = m.cursor
	}
	if idx < 0 || idx >= len(posts) {
		return nil
	}
	return posts[idx]
}

func (m *FeedModel) clampCursor() {
	n := len(m.store.Posts())
	if n == 0 {
		m.cursor = 0
		m.current = 0
		return
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.current >= n {
		m.current = n - 1
	}
}

// View implements tea.Model.
func (m FeedModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(brandStyle.Render("  ONLYFASHION"))
	b.WriteString(titleStyle.Render(" - Feed"))
	b.WriteString("\n\n")

	if m.searching {
		b.WriteString("  Search: ")
		b.WriteString(m.searchInput.View())
		b.WriteString("\n\n")
	}

	switch {
	case m.loading:
		b.WriteString("  ")
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading feed...\n")
	case m.views.Mode() == view.ModeGrid:
		b.WriteString(m.viewGrid())
	default:
		b.WriteString(m.viewVertical())
	}

	if m.statusMsg != "" {
		b.WriteString("\n  ")
		b.WriteString(statusStyle.Render(m.statusMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(dimStyle.Render(m.helpLine()))
	b.WriteString("\n")
	return b.String()
}

func (m FeedModel) viewGrid() string {
	posts := m.store.Posts()
	if len(posts) == 0 {
		return dimStyle.Render("  No posts yet. Press r to refresh.") + "\n"
	}

	var rows []string
	for start := 0; start < len(posts); start += GridColumns {
		end := start + GridColumns
		if end > len(posts) {
			end = len(posts)
		}
		var cells []string
		for i := start; i < end; i++ {
			cells = append(cells, m.gridCell(posts[i], i == m.cursor))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	out := strings.Join(rows, "\n")
	if m.store.HasMore() {
		out += "\n" + dimStyle.Render("  n: load more")
	}
	return out + "\n"
}

func (m FeedModel) gridCell(post *models.FeedPost, selected bool) string {
	style := cellStyle
	if selected {
		style = cellCursorStyle
	}

	imageMark := "▢"
	if len(post.Images) > 0 {
		if _, ok := m.cache.Lookup(post.Images[0]); ok {
			imageMark = "▣"
		}
	}

	like := fmt.Sprintf("♡ %d", post.LikeCount)
	if post.LikedByMe {
		like = likedStyle.Render(fmt.Sprintf("♥ %d", post.LikeCount))
	}

	var b strings.Builder
	b.WriteString(imageMark + " " + truncate(post.Title, 18))
	b.WriteString("\n")
	b.WriteString(handleStyle.Render("@" + post.Author.Handle))
	b.WriteString("\n")
	b.WriteString(like)
	if len(post.Items) > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d items", len(post.Items))))
	}
	return style.Render(b.String())
}

func (m FeedModel) viewVertical() string {
	post := m.currentPost()
	if post == nil {
		return dimStyle.Render("  No posts yet. Press r to refresh.") + "\n"
	}

	var b strings.Builder
	b.WriteString("  " + titleStyle.Render(post.Title) + "\n")
	b.WriteString("  " + handleStyle.Render("@"+post.Author.Handle))
	b.WriteString(dimStyle.Render(" · " + models.RelativeTime(post.CreatedAt, time.Now())))
	b.WriteString("\n\n")

	b.WriteString(m.viewImage(post))

	if len(post.Images) > 1 {
		b.WriteString("  " + m.pagerDots(post) + "\n")
	}

	like := fmt.Sprintf("♡ %d", post.LikeCount)
	if post.LikedByMe {
		like = likedStyle.Render(fmt.Sprintf("♥ %d", post.LikeCount))
	}
	b.WriteString("\n  " + like + "\n")

	if m.showDots && len(post.Items) > 0 {
		b.WriteString("\n")
		for i, item := range post.Items {
			marker := "  ○ "
			if i == m.selectedItem%len(post.Items) {
				marker = dotStyle.Render("  ● ")
			}
			line := fmt.Sprintf("%s%s", marker, item.Name)
			if item.Brand != "" {
				line += dimStyle.Render(" · " + item.Brand)
			}
			line += "  " + item.Price
			if len(item.Sizes) > 0 && i == m.selectedItem%len(post.Items) {
				line += dimStyle.Render(fmt.Sprintf("  [size %s]", item.Sizes[m.sizeIndex%len(item.Sizes)]))
			}
			b.WriteString(line + "\n")
		}
	}

	if post.Description != "" {
		b.WriteString("\n  " + truncate(post.Description, 70) + "\n")
	}
	return b.String()
}

func (m FeedModel) viewImage(post *models.FeedPost) string {
	if len(post.Images) == 0 {
		return dimStyle.Render("  (no image)") + "\n"
	}
	idx := m.views.ImageIndex(post.ID)
	if idx >= len(post.Images) {
		idx = len(post.Images) - 1
	}
	key := view.ImageKey{PostID: post.ID, Index: idx}

	switch m.views.LoadStateFor(key) {
	case view.LoadLoaded:
		if path, ok := m.cache.Lookup(post.Images[idx]); ok {
			return dimStyle.Render("  [image: "+path+"]") + "\n"
		}
		return dimStyle.Render("  [image cached]") + "\n"
	case view.LoadLoading:
		return dimStyle.Render("  loading image...") + "\n"
	case view.LoadError:
		return statusStyle.Render("  image failed to load") + "\n"
	default:
		return dimStyle.Render("  [image: "+post.Images[idx]+"]") + "\n"
	}
}

func (m FeedModel) pagerDots(post *models.FeedPost) string {
	idx := m.views.ImageIndex(post.ID)
	dots := make([]string, len(post.Images))
	for i := range post.Images {
		if i == idx {
			dots[i] = "●"
		} else {
			dots[i] = "○"
		}
	}
	return strings.Join(dots, " ")
}

func (m FeedModel) helpLine() string {
	if m.searching {
		return "enter: search  esc: cancel"
	}
	if m.views.Mode() == view.ModeGrid {
		return "↑↓←→: move  enter: open  v: mode  L: like  /: search  r: refresh  q: quit"
	}
	return "↑↓: posts  ←→: images  L: like  d: dots  tab: item  s: size  a: add to cart  esc: back"
}

// Quitting reports whether the user exited the browser.
func (m FeedModel) Quitting() bool { return m.quitting }

// truncate shortens s to max runes, never cutting mid-rune.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
