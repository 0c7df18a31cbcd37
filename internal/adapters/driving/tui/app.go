package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	// askView is the observation input and answer view.
	askView *ask.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// category mirrors the picker selection.
	category domain.Category

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	askView := ask.NewView(s, km, ports.Analysis)

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		askView:     askView,
		currentView: messages.ViewAsk,
		category:    askView.Category(),
	}, nil
}

// WithContext sets the context for the app. Analysis runs derive from it.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.askView.WithContext(ctx)
	return a
}

// WithCategory preselects a drawing category. Unknown categories are ignored.
func (a *App) WithCategory(c domain.Category) *App {
	if a.askView.SetCategory(c) {
		a.category = c
	}
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("htp - drawing interpretation"),
		a.askView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.askView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		keyStr := msg.String()
		if keymap.Matches(keyStr, a.keymap.Quit) {
			return a, tea.Quit
		}
		if keymap.Matches(keyStr, a.keymap.Help) {
			if a.currentView == messages.ViewHelp {
				a.currentView = messages.ViewAsk
			} else {
				a.currentView = messages.ViewHelp
			}
			return a, nil
		}
		if a.currentView == messages.ViewHelp {
			// Esc from help goes back
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewAsk
			}
			return a, nil
		}
		a.askView, cmd = a.askView.Update(msg)
		return a, cmd

	case messages.CategoryChanged:
		a.category = msg.Category
		return a, nil

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	// Completions, spinner ticks and cursor blinks belong to the ask view
	// even while help is shown.
	a.askView, cmd = a.askView.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	if a.currentView == messages.ViewHelp {
		return a.viewHelp()
	}
	return a.askView.View()
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Observation:
  (type)       Describe what you see in the drawing
  enter        Interpret the observation
  tab          Next drawing category (HOME, TREE, PERSON1, PERSON2)
  shift+tab    Previous drawing category
  ctrl+t       Toggle trace mode (steps and passages)

Answer:
  ↑/↓          Browse retrieved passages (trace mode)
  ctrl+n, esc  New observation

While interpreting:
  esc          Cancel

Global:
  f1           Toggle help
  ctrl+c       Quit

` + a.styles.Help.Render("[esc] back")
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Category returns the selected drawing category.
func (a *App) Category() domain.Category {
	return a.category
}

// Answer returns the last answer shown.
func (a *App) Answer() string {
	return a.askView.Answer()
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.askView.Err()
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions (for testing).
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.askView.SetDimensions(width, height)
}
