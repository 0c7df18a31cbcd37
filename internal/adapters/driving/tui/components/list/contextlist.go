// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/styles"
)

// ContextList displays the passages retrieved during a traced run.
// The selected passage is shown in full; the others as one-line previews.
type ContextList struct {
	passages []string
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewContextList creates a new, empty context list.
func NewContextList(s *styles.Styles) *ContextList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ContextList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (c *ContextList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (c *ContextList) Update(msg tea.Msg) (*ContextList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyUp:
			c.MoveUp()
		case tea.KeyDown:
			c.MoveDown()
		}
	}
	return c, nil
}

// View renders the passage list.
func (c *ContextList) View() string {
	if len(c.passages) == 0 {
		return c.styles.Muted.Render("No passages retrieved")
	}

	lines := make([]string, 0, len(c.passages)+2)
	lines = append(lines, c.styles.Subtitle.Render(fmt.Sprintf("Passages (%d)", len(c.passages))), "")

	// Selected passage may wrap over several lines; keep a window of previews around it.
	visible := c.height - 6
	if visible < 1 {
		visible = 1
	}
	start := 0
	if c.selected >= visible {
		start = c.selected - visible + 1
	}
	end := start + visible
	if end > len(c.passages) {
		end = len(c.passages)
	}

	for i := start; i < end; i++ {
		lines = append(lines, c.renderPassage(i))
	}

	return strings.Join(lines, "\n")
}

func (c *ContextList) renderPassage(index int) string {
	prefix := fmt.Sprintf("  [%d] ", index+1)
	if index != c.selected {
		return c.styles.Muted.Render(prefix + preview(c.passages[index], c.width-len(prefix)-2))
	}

	body := c.styles.Normal.Width(c.width - len(prefix)).Render(c.passages[index])
	return c.styles.Selected.Render(fmt.Sprintf("> [%d]", index+1)) + " " + body
}

// preview collapses whitespace and cuts s to at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n < 10 {
		n = 10
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// SetPassages replaces the list contents and resets the selection.
func (c *ContextList) SetPassages(passages []string) {
	c.passages = passages
	c.selected = 0
}

// Passages returns the current passages.
func (c *ContextList) Passages() []string {
	return c.passages
}

// Selected returns the index of the selected passage.
func (c *ContextList) Selected() int {
	return c.selected
}

// MoveUp moves selection up.
func (c *ContextList) MoveUp() {
	if c.selected > 0 {
		c.selected--
	}
}

// MoveDown moves selection down.
func (c *ContextList) MoveDown() {
	if c.selected < len(c.passages)-1 {
		c.selected++
	}
}

// SetDimensions sets the component dimensions.
func (c *ContextList) SetDimensions(width, height int) {
	c.width = width
	c.height = height
}

// Count returns the number of passages.
func (c *ContextList) Count() int {
	return len(c.passages)
}
