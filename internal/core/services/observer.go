package services

import (
	"time"

	"github.com/custodia-labs/htp-rag/internal/logger"
)

// WorkflowEventType classifies workflow events.
type WorkflowEventType string

// Workflow event types.
const (
	EventNodeEnter   WorkflowEventType = "node_enter"
	EventNodeExit    WorkflowEventType = "node_exit"
	EventTransition  WorkflowEventType = "transition"
	EventRunComplete WorkflowEventType = "run_complete"
	EventRunError    WorkflowEventType = "run_error"
)

// WorkflowEvent is a single observation from a workflow run.
type WorkflowEvent struct {
	Type    WorkflowEventType
	RunID   string
	Node    string
	Next    string
	Step    int
	Elapsed time.Duration
	Error   error
}

// WorkflowObserver receives events during a workflow run.
// Implementations must be safe for concurrent runs.
type WorkflowObserver interface {
	OnEvent(WorkflowEvent)
}

// WorkflowObserverFunc adapts a plain function to the WorkflowObserver interface.
type WorkflowObserverFunc func(WorkflowEvent)

// OnEvent calls f(e).
func (f WorkflowObserverFunc) OnEvent(e WorkflowEvent) { f(e) }

// MultiObserver fans out events to multiple observers.
type MultiObserver []WorkflowObserver

// OnEvent forwards e to every non-nil observer.
func (m MultiObserver) OnEvent(e WorkflowEvent) {
	for _, obs := range m {
		if obs != nil {
			obs.OnEvent(e)
		}
	}
}

// LogObserver writes workflow events to the verbose logger.
type LogObserver struct{}

// OnEvent logs e.
func (LogObserver) OnEvent(e WorkflowEvent) {
	log := logger.ForRun(e.RunID)
	switch e.Type {
	case EventNodeEnter:
		log.Debug("step %d: enter %s", e.Step, e.Node)
	case EventNodeExit:
		if e.Error != nil {
			log.Warn("step %d: %s failed after %s: %v", e.Step, e.Node, e.Elapsed, e.Error)
			return
		}
		log.Debug("step %d: exit %s (%s)", e.Step, e.Node, e.Elapsed)
	case EventTransition:
		log.Debug("%s -> %s", e.Node, e.Next)
	case EventRunComplete:
		log.Info("run complete in %d steps (%s)", e.Step, e.Elapsed)
	case EventRunError:
		log.Warn("run aborted at %s: %v", e.Node, e.Error)
	}
}

func emitEvent(obs WorkflowObserver, e WorkflowEvent) {
	if obs != nil {
		obs.OnEvent(e)
	}
}
