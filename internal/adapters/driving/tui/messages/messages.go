// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

// CategoryChanged is sent when the drawing category selection changes.
type CategoryChanged struct {
	Category domain.Category
}

// AnalysisRequested is a command to interpret an observation.
type AnalysisRequested struct {
	Request domain.AnalysisRequest
	Trace   bool
}

// AnalysisCompleted carries the outcome of an interpretation run.
// State is only set for traced runs.
type AnalysisCompleted struct {
	// Seq identifies the request; stale completions are discarded.
	Seq    int
	Answer string
	State  *domain.WorkflowState
	Err    error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewAsk is the observation input and answer view.
	ViewAsk ViewType = iota
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewAsk:
		return "ask"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
