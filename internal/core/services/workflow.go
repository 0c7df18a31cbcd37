package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

// NodeFunc executes one workflow step, reading and writing state fields.
type NodeFunc func(ctx context.Context, state *domain.WorkflowState) error

// Condition picks the next node from the state. Conditions are pure: they
// must not mutate state and must return the same target for the same state.
type Condition func(state *domain.WorkflowState) string

// Node is a named workflow step.
type Node struct {
	Name string
	Run  NodeFunc
}

// Edge leaves From. An edge with a nil When always goes to To. A
// conditional edge evaluates When and may only reach one of Targets.
type Edge struct {
	From    string
	To      string
	When    Condition
	Targets []string
}

// Graph is a validated directed workflow graph. It is immutable and can be
// shared by concurrent runs.
type Graph struct {
	entry string
	nodes map[string]NodeFunc
	edges map[string]Edge
}

// NewGraph constructs a Graph. Every edge must start at a known node and end
// at a known node or domain.NodeEnd, every node must have exactly one
// outgoing edge, and entry must be a known node. Violations are
// domain.ErrConfig.
func NewGraph(entry string, nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		entry: entry,
		nodes: make(map[string]NodeFunc, len(nodes)),
		edges: make(map[string]Edge, len(edges)),
	}

	for _, n := range nodes {
		if n.Name == "" || n.Name == domain.NodeEnd || n.Run == nil {
			return nil, fmt.Errorf("%w: invalid node %q", domain.ErrConfig, n.Name)
		}
		if _, dup := g.nodes[n.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", domain.ErrConfig, n.Name)
		}
		g.nodes[n.Name] = n.Run
	}
	if _, ok := g.nodes[entry]; !ok {
		return nil, fmt.Errorf("%w: entry node %q not found", domain.ErrConfig, entry)
	}

	for _, e := range edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge references source %q", domain.ErrConfig, e.From)
		}
		if _, dup := g.edges[e.From]; dup {
			return nil, fmt.Errorf("%w: node %q has more than one outgoing edge", domain.ErrConfig, e.From)
		}
		targets := e.Targets
		if e.When == nil {
			targets = []string{e.To}
		} else if len(targets) == 0 {
			return nil, fmt.Errorf("%w: conditional edge from %q lists no targets", domain.ErrConfig, e.From)
		}
		for _, to := range targets {
			if to == domain.NodeEnd {
				continue
			}
			if _, ok := g.nodes[to]; !ok {
				return nil, fmt.Errorf("%w: edge from %q references target %q", domain.ErrConfig, e.From, to)
			}
		}
		g.edges[e.From] = e
	}

	for name := range g.nodes {
		if _, ok := g.edges[name]; !ok {
			return nil, fmt.Errorf("%w: node %q has no outgoing edge", domain.ErrConfig, name)
		}
	}

	return g, nil
}

// Entry returns the entry node name.
func (g *Graph) Entry() string { return g.entry }

// next resolves the node that follows from.
func (g *Graph) next(from string, state *domain.WorkflowState) (string, error) {
	e := g.edges[from]
	if e.When == nil {
		return e.To, nil
	}
	to := e.When(state)
	if !slices.Contains(e.Targets, to) {
		return "", fmt.Errorf("%w: condition after %q chose undeclared target %q", domain.ErrConfig, from, to)
	}
	return to, nil
}

// Engine runs a Graph with a bounded number of node executions.
type Engine struct {
	graph    *Graph
	maxSteps int
	observer WorkflowObserver
	newRunID func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxSteps sets the node execution bound. Values below one are ignored.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithObserver attaches an observer that receives run events.
func WithObserver(obs WorkflowObserver) EngineOption {
	return func(e *Engine) {
		e.observer = obs
	}
}

// NewEngine creates an engine for graph. The default bound is
// domain.DefaultMaxSteps node executions.
func NewEngine(graph *Graph, opts ...EngineOption) *Engine {
	e := &Engine{
		graph:    graph,
		maxSteps: domain.DefaultMaxSteps,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxSteps returns the node execution bound.
func (e *Engine) MaxSteps() int { return e.maxSteps }

// Run executes the graph from its entry node until a transition reaches
// domain.NodeEnd. Nodes run one at a time; the context is checked before
// each. Attempting a node execution once the bound is reached fails with
// domain.ErrIterationLimitExceeded. On any failure no state is returned.
func (e *Engine) Run(ctx context.Context, question string, category domain.Category) (*domain.WorkflowState, error) {
	state := domain.NewWorkflowState(e.newRunID(), question, category)
	started := time.Now()

	current := e.graph.entry
	steps := 0
	for current != domain.NodeEnd {
		if err := ctx.Err(); err != nil {
			return nil, e.fail(state, current, steps, err)
		}
		if steps >= e.maxSteps {
			err := fmt.Errorf("%w: %d node executions reached before %q",
				domain.ErrIterationLimitExceeded, e.maxSteps, current)
			return nil, e.fail(state, current, steps, err)
		}
		steps++

		emitEvent(e.observer, WorkflowEvent{Type: EventNodeEnter, RunID: state.RunID, Node: current, Step: steps})
		nodeStart := time.Now()
		err := e.graph.nodes[current](ctx, state)
		emitEvent(e.observer, WorkflowEvent{
			Type: EventNodeExit, RunID: state.RunID, Node: current, Step: steps,
			Elapsed: time.Since(nodeStart), Error: err,
		})
		if err != nil {
			return nil, e.fail(state, current, steps, fmt.Errorf("%s: %w", current, err))
		}
		state.Steps = append(state.Steps, current)

		next, err := e.graph.next(current, state)
		if err != nil {
			return nil, e.fail(state, current, steps, err)
		}
		emitEvent(e.observer, WorkflowEvent{Type: EventTransition, RunID: state.RunID, Node: current, Next: next, Step: steps})
		current = next
	}

	emitEvent(e.observer, WorkflowEvent{
		Type: EventRunComplete, RunID: state.RunID, Step: steps, Elapsed: time.Since(started),
	})
	return state, nil
}

func (e *Engine) fail(state *domain.WorkflowState, node string, steps int, err error) error {
	emitEvent(e.observer, WorkflowEvent{Type: EventRunError, RunID: state.RunID, Node: node, Step: steps, Error: err})
	return err
}
