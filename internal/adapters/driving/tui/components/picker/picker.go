// Package picker provides the drawing category selector.
package picker

import (
	"strings"

	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

// CategoryPicker cycles through the accepted drawing categories.
type CategoryPicker struct {
	categories []domain.Category
	selected   int
	styles     *styles.Styles
}

// NewCategoryPicker creates a picker with the first category selected.
func NewCategoryPicker(s *styles.Styles) *CategoryPicker {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &CategoryPicker{
		categories: domain.AllCategories(),
		styles:     s,
	}
}

// Next selects the following category, wrapping at the end.
func (p *CategoryPicker) Next() domain.Category {
	p.selected = (p.selected + 1) % len(p.categories)
	return p.Selected()
}

// Prev selects the preceding category, wrapping at the start.
func (p *CategoryPicker) Prev() domain.Category {
	p.selected = (p.selected - 1 + len(p.categories)) % len(p.categories)
	return p.Selected()
}

// Selected returns the current category.
func (p *CategoryPicker) Selected() domain.Category {
	return p.categories[p.selected]
}

// Select makes c current. Unknown categories are ignored.
func (p *CategoryPicker) Select(c domain.Category) bool {
	for i, known := range p.categories {
		if known == c {
			p.selected = i
			return true
		}
	}
	return false
}

// View renders the categories as a row of chips.
func (p *CategoryPicker) View() string {
	chips := make([]string, 0, len(p.categories))
	for i, c := range p.categories {
		label := c.String() + " · " + c.Subject()
		if i == p.selected {
			chips = append(chips, p.styles.ChipActive.Render(label))
		} else {
			chips = append(chips, p.styles.Chip.Render(label))
		}
	}
	return p.styles.Muted.Render("Drawing: ") + strings.Join(chips, " ")
}
