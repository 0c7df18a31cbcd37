// Package ask provides the observation input and interpretation view for the TUI.
package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/components/picker"
	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driving"
)

// View lets the user pick a drawing, type an observation and read the
// interpretation. In trace mode it also shows the workflow steps and the
// passages the answer was grounded on.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	picker    *picker.CategoryPicker
	input     *input.QuestionInput
	answer    viewport.Model
	contexts  *list.ContextList
	statusbar *status.Bar

	analysis driving.AnalysisService
	ctx      context.Context
	cancel   context.CancelFunc

	// seq increments per request so late completions of cancelled runs are dropped.
	seq   int
	busy  bool
	trace bool

	result string
	state  *domain.WorkflowState
	err    error

	width  int
	height int
	ready  bool
}

// NewView creates a new ask view.
func NewView(s *styles.Styles, km *keymap.KeyMap, analysis driving.AnalysisService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:    s,
		keymap:    km,
		picker:    picker.NewCategoryPicker(s),
		input:     input.NewQuestionInput(s),
		answer:    viewport.New(80, 6),
		contexts:  list.NewContextList(s),
		statusbar: status.NewBar(s, km),
		analysis:  analysis,
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
}

// WithContext sets the parent context for analysis runs.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnalysisCompleted:
		v.handleCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	v.statusbar, cmd = v.statusbar.Update(msg)
	cmds = append(cmds, cmd)
	v.input, cmd = v.input.Update(msg)
	cmds = append(cmds, cmd)
	return v, tea.Batch(cmds...)
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	if v.busy {
		if keymap.Matches(keyStr, v.keymap.Cancel) {
			v.cancelRun()
		}
		return v, nil
	}

	switch {
	case keymap.Matches(keyStr, v.keymap.NextCategory):
		return v, categoryChanged(v.picker.Next())

	case keymap.Matches(keyStr, v.keymap.PrevCategory):
		return v, categoryChanged(v.picker.Prev())

	case keymap.Matches(keyStr, v.keymap.ToggleTrace):
		v.trace = !v.trace
		v.statusbar.SetTrace(v.trace)
		return v, nil

	case keymap.Matches(keyStr, v.keymap.NewQuestion),
		keymap.Matches(keyStr, v.keymap.Cancel) && !v.input.Focused():
		return v, v.Reset()

	case keymap.Matches(keyStr, v.keymap.Submit) && v.input.Focused():
		return v, v.submit()
	}

	if v.input.Focused() {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	// Answer on screen: arrows walk passages when traced, otherwise scroll.
	if v.contexts.Count() > 0 {
		switch {
		case keymap.Matches(keyStr, v.keymap.Up):
			v.contexts.MoveUp()
			return v, nil
		case keymap.Matches(keyStr, v.keymap.Down):
			v.contexts.MoveDown()
			return v, nil
		}
	}
	var cmd tea.Cmd
	v.answer, cmd = v.answer.Update(msg)
	return v, cmd
}

func categoryChanged(c domain.Category) tea.Cmd {
	return func() tea.Msg {
		return messages.CategoryChanged{Category: c}
	}
}

// submit starts an analysis of the current input.
func (v *View) submit() tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" {
		return nil
	}

	req := domain.AnalysisRequest{Question: question, Category: v.picker.Selected().String()}
	v.err = nil
	v.busy = true
	v.seq++
	v.input.Blur()
	v.statusbar.SetMessage("")
	spin := v.statusbar.SetState(status.StateAnalyzing)
	return tea.Batch(spin, v.performAnalysis(v.seq, req, v.trace))
}

// performAnalysis runs the workflow off the event loop.
func (v *View) performAnalysis(seq int, req domain.AnalysisRequest, trace bool) tea.Cmd {
	svc := v.analysis
	ctx, cancel := context.WithCancel(v.ctx)
	v.cancel = cancel

	return func() tea.Msg {
		defer cancel()
		if svc == nil {
			return messages.AnalysisCompleted{Seq: seq, Err: ErrNoAnalysisService}
		}

		if trace {
			state, err := svc.Trace(ctx, req)
			if err != nil {
				return messages.AnalysisCompleted{Seq: seq, Err: err}
			}
			return messages.AnalysisCompleted{Seq: seq, Answer: answerOf(state), State: state}
		}

		resp, err := svc.Analyze(ctx, req)
		if err != nil {
			return messages.AnalysisCompleted{Seq: seq, Err: err}
		}
		return messages.AnalysisCompleted{Seq: seq, Answer: resp.Answer}
	}
}

func answerOf(state *domain.WorkflowState) string {
	if state.Rejected() {
		return domain.FallbackAnswer
	}
	return state.Generation
}

func (v *View) cancelRun() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.seq++
	v.busy = false
	v.input.Focus()
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("Cancelled")
}

func (v *View) handleCompleted(msg messages.AnalysisCompleted) {
	if msg.Seq != v.seq {
		return
	}
	v.busy = false
	v.cancel = nil

	if msg.Err != nil {
		v.input.Focus()
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.result = msg.Answer
	v.state = msg.State

	if msg.Answer == domain.FallbackAnswer {
		v.answer.SetContent(v.styles.Fallback.Render(msg.Answer))
		v.statusbar.SetState(status.StateRejected)
	} else {
		v.answer.SetContent(v.styles.Normal.Width(v.answer.Width).Render(msg.Answer))
		v.statusbar.SetState(status.StateAnswered)
	}
	v.answer.GotoTop()

	if msg.State != nil {
		v.contexts.SetPassages(msg.State.RetrievedContexts)
		v.statusbar.SetMessage(fmt.Sprintf("%d steps", len(msg.State.Steps)))
	} else {
		v.contexts.SetPassages(nil)
		v.statusbar.SetMessage("")
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(describe(err))
}

// describe turns service errors into a short status line.
func describe(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid observation"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate limited, try again shortly"
	case errors.Is(err, domain.ErrLLMUnavailable):
		return "language model unavailable"
	case errors.Is(err, domain.ErrRetrievalUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return "passage retrieval unavailable"
	case errors.Is(err, domain.ErrIterationLimitExceeded):
		return "no grounded answer within the step limit"
	default:
		return err.Error()
	}
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections,
		v.styles.Title.Render("HTP Interpretation"), "",
		v.picker.View(), "",
		v.input.View(), "",
	)

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.result != "" {
		sections = append(sections, v.styles.Answer.Width(v.width-2).Render(v.answer.View()), "")
	}

	if v.state != nil && !v.state.Rejected() {
		sections = append(sections, v.renderTrace(), "", v.contexts.View(), "")
	}

	sections = append(sections, v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderTrace() string {
	lines := []string{
		v.styles.Subtitle.Render("Steps: ") + v.styles.Muted.Render(strings.Join(v.state.Steps, " → ")),
	}
	for _, q := range v.state.DecomposedQuestions {
		lines = append(lines, v.styles.Muted.Render("  · "+q))
	}
	return strings.Join(lines, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)

	answerHeight := height / 4
	if answerHeight < 3 {
		answerHeight = 3
	}
	v.answer.Width = width - 6
	v.answer.Height = answerHeight
	// Header, picker, input, answer frame, trace lines and status bar.
	v.contexts.SetDimensions(width, height-answerHeight-14)
}

// SetCategory preselects a drawing category.
func (v *View) SetCategory(c domain.Category) bool {
	return v.picker.Select(c)
}

// Category returns the selected drawing category.
func (v *View) Category() domain.Category {
	return v.picker.Selected()
}

// SetQuestion sets the observation text.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Question returns the observation text.
func (v *View) Question() string {
	return v.input.Value()
}

// Answer returns the last answer, if any.
func (v *View) Answer() string {
	return v.result
}

// State returns the workflow state of the last traced run.
func (v *View) State() *domain.WorkflowState {
	return v.state
}

// Busy reports whether an analysis is running.
func (v *View) Busy() bool {
	return v.busy
}

// Tracing reports whether runs are traced.
func (v *View) Tracing() bool {
	return v.trace
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.input.Focused()
}

// Reset clears the answer and returns to input mode.
func (v *View) Reset() tea.Cmd {
	v.result = ""
	v.state = nil
	v.err = nil
	v.answer.SetContent("")
	v.contexts.SetPassages(nil)
	v.input.SetValue("")
	v.statusbar.Clear()
	return v.input.Focus()
}
