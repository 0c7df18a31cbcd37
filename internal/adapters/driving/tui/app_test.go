package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

func newTestApp(t *testing.T, svc *MockAnalysisService) *App {
	t.Helper()
	app, err := NewApp(NewPorts(svc))
	require.NoError(t, err)
	return app
}

// runCmd executes cmd, expanding batches, and feeds every resulting
// AnalysisCompleted back into the app.
func runCmd(app *App, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			runCmd(app, c)
		}
		return
	}
	if _, ok := msg.(messages.AnalysisCompleted); ok {
		app.Update(msg)
	}
}

func typeText(app *App, s string) {
	for _, r := range s {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestNewApp_Success(t *testing.T) {
	app := newTestApp(t, &MockAnalysisService{})

	assert.Equal(t, messages.ViewAsk, app.CurrentView())
	assert.Equal(t, domain.CategoryHome, app.Category())
	assert.False(t, app.Ready())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})

	assert.ErrorIs(t, err, ErrMissingAnalysisService)
	assert.Nil(t, app)
}

func TestApp_Init(t *testing.T) {
	app := newTestApp(t, &MockAnalysisService{})

	assert.NotNil(t, app.Init())
}

func TestApp_WindowSize(t *testing.T) {
	app := newTestApp(t, &MockAnalysisService{})
	assert.Equal(t, "Initialising...", app.View())

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "HTP Interpretation")
}

func TestApp_Quit(t *testing.T) {
	app := newTestApp(t, &MockAnalysisService{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = app.Update(messages.Quit{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_HelpToggle(t *testing.T) {
	app := newTestApp(t, &MockAnalysisService{})
	app.SetDimensions(100, 30)

	app.Update(tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "Toggle trace mode")

	// Typing is swallowed by the help view.
	typeText(app, "abc")
	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewAsk, app.CurrentView())
	assert.NotContains(t, app.View(), "abc")

	app.Update(tea.KeyMsg{Type: tea.KeyF1})
	app.Update(tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, messages.ViewAsk, app.CurrentView())
}

func TestApp_ViewChanged(t *testing.T) {
	app := newTestApp(t, &MockAnalysisService{})

	app.Update(messages.ViewChanged{View: messages.ViewHelp})

	assert.Equal(t, messages.ViewHelp, app.CurrentView())
}

func TestApp_CategoryChangedIsTracked(t *testing.T) {
	app := newTestApp(t, &MockAnalysisService{})
	app.SetDimensions(100, 30)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, domain.CategoryTree, app.Category())
}

func TestApp_WithCategory(t *testing.T) {
	app := newTestApp(t, &MockAnalysisService{})

	app.WithCategory(domain.CategoryPerson1)
	assert.Equal(t, domain.CategoryPerson1, app.Category())

	app.WithCategory("PERSON9")
	assert.Equal(t, domain.CategoryPerson1, app.Category())
}

func TestApp_AskFlow(t *testing.T) {
	var got domain.AnalysisRequest
	svc := &MockAnalysisService{
		AnalyzeFunc: func(_ context.Context, req domain.AnalysisRequest) (*domain.AnalysisResponse, error) {
			got = req
			return &domain.AnalysisResponse{Answer: "뿌리가 강조된 나무는 안정 욕구를 나타냅니다."}, nil
		},
	}
	app := newTestApp(t, svc).WithCategory(domain.CategoryTree).WithContext(t.Context())
	app.SetDimensions(120, 40)

	typeText(app, "뿌리가 강조되어 있어요")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(app, cmd)

	assert.Equal(t, domain.AnalysisRequest{Question: "뿌리가 강조되어 있어요", Category: "TREE"}, got)
	assert.Equal(t, "뿌리가 강조된 나무는 안정 욕구를 나타냅니다.", app.Answer())
	assert.NoError(t, app.Err())
	assert.Contains(t, app.View(), "안정 욕구")
}

func TestApp_AskError(t *testing.T) {
	svc := &MockAnalysisService{
		AnalyzeFunc: func(context.Context, domain.AnalysisRequest) (*domain.AnalysisResponse, error) {
			return nil, domain.ErrRetrievalUnavailable
		},
	}
	app := newTestApp(t, svc)
	app.SetDimensions(120, 40)

	typeText(app, "창문이 크다")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(app, cmd)

	assert.ErrorIs(t, app.Err(), domain.ErrRetrievalUnavailable)
	assert.Equal(t, "", app.Answer())
}
