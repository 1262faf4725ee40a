// ABOUTME: Interactive TUI wizard for composing and uploading an outfit post.
// ABOUTME: Collects images, title, tagged items, and dot positions before uploading.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/onlyfashion/fitfeed/internal/api"
	"github.com/onlyfashion/fitfeed/internal/tagging"
)

// ComposeStep represents the current composer step.
type ComposeStep int

const (
	ComposeImages ComposeStep = iota
	ComposeTitle
	ComposeDescription
	ComposeItemName
	ComposeItemBrand
	ComposeItemPrice
	ComposeItemSizes
	ComposeItemLink
	ComposePosition
	ComposeUploading
	ComposeDone
	ComposeFailed
)

// nudgePx is how far one arrow key press moves a dot on the position canvas.
const nudgePx = 4

// Dot positioning treats the post image as a fixed-size canvas so arrow-key
// nudges translate to percentage deltas.
const (
	canvasWidthPx  = 100.0
	canvasHeightPx = 100.0
)

// UploadFn is the function signature for performing the upload.
type UploadFn func(ctx context.Context, req api.UploadRequest) (*api.UploadResult, error)

type uploadResultMsg struct {
	result *api.UploadResult
	err    error
}

// ComposerModel is the bubbletea model for the post composer.
type ComposerModel struct {
	step      ComposeStep
	input     textinput.Model
	spinner   spinner.Model
	uploadFn  UploadFn
	cancelCtx *cancelHolder

	images      []string
	title       string
	description string
	items       []api.UploadItem
	draft       api.UploadItem // item being entered

	positionItem int // which item's dot the arrows move

	result    *api.UploadResult
	uploadErr error
	fieldErr  string
	quitting  bool
}

// NewComposerModel creates a composer wizard. Image paths given up front (from
// command line flags) skip the image entry step.
func NewComposerModel(uploadFn UploadFn, imagePaths []string) ComposerModel {
	in := textinput.New()
	in.Width = 60
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := ComposerModel{
		step:      ComposeImages,
		input:     in,
		spinner:   s,
		uploadFn:  uploadFn,
		cancelCtx: &cancelHolder{},
		images:    imagePaths,
	}
	if len(imagePaths) > 0 {
		m.step = ComposeTitle
	}
	m.configureInput()
	return m
}

// Init implements tea.Model.
func (m ComposerModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m ComposerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		}

		switch m.step {
		case ComposePosition:
			return m.updatePosition(msg)
		case ComposeFailed:
			return m.updateFailed(msg)
		case ComposeUploading, ComposeDone:
			return m, nil
		default:
			return m.updateInput(msg)
		}

	case uploadResultMsg:
		m.cancelCtx.cancel = nil
		if msg.err == nil {
			m.result = msg.result
			m.step = ComposeDone
			return m, tea.Quit
		}
		m.uploadErr = msg.err
		m.step = ComposeFailed
		return m, nil

	case spinner.TickMsg:
		if m.step == ComposeUploading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m ComposerModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	value := strings.TrimSpace(m.input.Value())
	m.fieldErr = ""

	switch m.step {
	case ComposeImages:
		paths := splitList(value)
		if len(paths) == 0 {
			m.fieldErr = "at least one image is required"
			return m, nil
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err != nil {
				m.fieldErr = fmt.Sprintf("cannot read %s", p)
				return m, nil
			}
		}
		m.images = paths
		m.step = ComposeTitle

	case ComposeTitle:
		if value == "" {
			m.fieldErr = "title is required"
			return m, nil
		}
		m.title = value
		m.step = ComposeDescription

	case ComposeDescription:
		m.description = value
		m.step = ComposeItemName

	case ComposeItemName:
		if value == "" {
			// Empty name finishes item entry.
			if len(m.items) == 0 {
				return m.startUpload()
			}
			m.positionItem = 0
			m.step = ComposePosition
			m.configureInput()
			return m, nil
		}
		m.draft = api.UploadItem{Name: value}
		m.step = ComposeItemBrand

	case ComposeItemBrand:
		m.draft.Brand = value
		m.step = ComposeItemPrice

	case ComposeItemPrice:
		if value == "" {
			m.fieldErr = "price is required"
			return m, nil
		}
		m.draft.Price = value
		m.step = ComposeItemSizes

	case ComposeItemSizes:
		m.draft.Sizes = splitList(value)
		m.step = ComposeItemLink

	case ComposeItemLink:
		m.draft.Link = value
		m.draft.Position = tagging.DefaultLayout(len(m.items))
		m.items = append(m.items, m.draft)
		m.draft = api.UploadItem{}
		m.step = ComposeItemName
	}

	m.configureInput()
	return m, textinput.Blink
}

func (m ComposerModel) updatePosition(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.items) == 0 {
		return m.startUpload()
	}

	switch msg.Type {
	case tea.KeyEnter:
		return m.startUpload()
	case tea.KeyTab:
		m.positionItem = (m.positionItem + 1) % len(m.items)
		return m, nil
	case tea.KeyUp:
		return m.nudge(0, -nudgePx), nil
	case tea.KeyDown:
		return m.nudge(0, nudgePx), nil
	case tea.KeyLeft:
		return m.nudge(-nudgePx, 0), nil
	case tea.KeyRight:
		return m.nudge(nudgePx, 0), nil
	}
	return m, nil
}

func (m ComposerModel) nudge(dx, dy float64) ComposerModel {
	it := &m.items[m.positionItem]
	it.Position = tagging.ApplyDragDelta(it.Position, dx, dy, canvasWidthPx, canvasHeightPx)
	return m
}

func (m ComposerModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes {
		switch msg.Runes[0] {
		case 'r':
			m.uploadErr = nil
			return m.startUpload()
		case 'q':
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ComposerModel) startUpload() (tea.Model, tea.Cmd) {
	m.step = ComposeUploading

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel

	req := api.UploadRequest{
		Images:      m.images,
		Title:       m.title,
		Description: m.description,
		Items:       m.items,
	}
	fn := m.uploadFn
	cmd := func() tea.Msg {
		result, err := fn(ctx, req)
		return uploadResultMsg{result: result, err: err}
	}
	return m, tea.Batch(cmd, m.spinner.Tick)
}

// configureInput resets the shared text input for the current step.
func (m *ComposerModel) configureInput() {
	m.input.SetValue("")
	m.input.Focus()
	switch m.step {
	case ComposeImages:
		m.input.Placeholder = "photo1.jpg, photo2.jpg"
	case ComposeTitle:
		m.input.Placeholder = "Sunday streetwear"
	case ComposeDescription:
		m.input.Placeholder = "optional description"
	case ComposeItemName:
		m.input.Placeholder = "item name (empty to finish)"
	case ComposeItemBrand:
		m.input.Placeholder = "brand (optional)"
	case ComposeItemPrice:
		m.input.Placeholder = "¥5999"
	case ComposeItemSizes:
		m.input.Placeholder = "S, M, L (optional)"
	case ComposeItemLink:
		m.input.Placeholder = "https:// (optional)"
	}
}

// View implements tea.Model.
func (m ComposerModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   ONLYFASHION"))
	b.WriteString(titleStyle.Render(" - New Post"))
	b.WriteString("\n\n")

	switch m.step {
	case ComposeImages:
		b.WriteString(stepStyle.Render("Images (comma separated paths)"))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")

	case ComposeTitle:
		b.WriteString(fmt.Sprintf("  Images: %d\n\n", len(m.images)))
		b.WriteString(stepStyle.Render("Title"))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")

	case ComposeDescription:
		b.WriteString(stepStyle.Render("Description"))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")

	case ComposeItemName, ComposeItemBrand, ComposeItemPrice, ComposeItemSizes, ComposeItemLink:
		if len(m.items) > 0 {
			b.WriteString(fmt.Sprintf("  Items so far: %d\n\n", len(m.items)))
		}
		b.WriteString(stepStyle.Render(m.itemPrompt()))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")

	case ComposePosition:
		b.WriteString(stepStyle.Render("Position the shopping dots"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(arrows: move  tab: next item  enter: upload)"))
		b.WriteString("\n\n")
		for i, it := range m.items {
			marker := "  ○ "
			if i == m.positionItem {
				marker = dotStyle.Render("  ● ")
			}
			b.WriteString(fmt.Sprintf("%s%-20s  x=%.1f%%  y=%.1f%%\n", marker, it.Name, it.Position.X, it.Position.Y))
		}

	case ComposeUploading:
		b.WriteString(m.spinner.View())
		b.WriteString(" Uploading post...")
		b.WriteString("\n")

	case ComposeDone:
		b.WriteString(successStyle.Render("✓ Posted!"))
		if m.result != nil && m.result.PostID != "" {
			b.WriteString(dimStyle.Render("  (" + m.result.PostID + ")"))
		}
		b.WriteString("\n")

	case ComposeFailed:
		errMsg := "unknown error"
		if m.uploadErr != nil {
			errMsg = m.uploadErr.Error()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Upload failed: %s", errMsg)))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[r]etry  [q]uit"))
		b.WriteString("\n")
	}

	if m.fieldErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("  " + m.fieldErr))
		b.WriteString("\n")
	}

	return b.String()
}

func (m ComposerModel) itemPrompt() string {
	switch m.step {
	case ComposeItemName:
		return "Item name (leave empty to finish)"
	case ComposeItemBrand:
		return "Brand"
	case ComposeItemPrice:
		return "Price"
	case ComposeItemSizes:
		return "Sizes (comma separated)"
	case ComposeItemLink:
		return "Shop link"
	default:
		return ""
	}
}

// Result returns the created post, or nil when the upload never completed.
func (m ComposerModel) Result() *api.UploadResult {
	if m.step != ComposeDone {
		return nil
	}
	return m.result
}

// Cancelled reports whether the user quit before finishing.
func (m ComposerModel) Cancelled() bool { return m.quitting }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
