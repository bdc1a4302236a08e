package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/state"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
)

const DefaultMaxSteps = 50

// StageFunc is one processing stage. It must not mutate the state it is given;
// changes go into the returned Delta, which the engine merges before the next stage.
type StageFunc func(ctx context.Context, st *statex.ConversationState) (statex.Delta, contractx.RouteDecision, error)

// Step describes one executed stage. State is the conversation after the stage's
// delta was merged; observers must treat it as read-only.
type Step struct {
	TurnID   string
	Index    int
	Stage    string
	Next     contractx.RouteDecision
	Duration time.Duration
	Err      error
	State    *statex.ConversationState
}

type Observer func(ctx context.Context, step Step)

type Option func(*Engine)

func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(e *Engine) {
		if obs != nil {
			e.observers = append(e.observers, obs)
		}
	}
}

// Engine runs named stages until one of them terminates the turn.
// Stages are compiled onto an eino graph: one lambda node per stage and one branch
// per node that follows the stage's RouteDecision.
type Engine struct {
	name      string
	maxSteps  int
	observers []Observer

	mu       sync.Mutex
	order    []string
	stages   map[string]StageFunc
	entry    string
	compiled compose.Runnable[*turn, *turn]
}

// turn is the envelope carried between eino nodes.
type turn struct {
	state *statex.ConversationState
	next  contractx.RouteDecision
	steps int
	err   error
}

func New(name string, opts ...Option) *Engine {
	e := &Engine{
		name:     strings.TrimSpace(name),
		maxSteps: DefaultMaxSteps,
		stages:   make(map[string]StageFunc),
	}
	if e.name == "" {
		e.name = "engine"
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *Engine) Register(stage string, fn StageFunc) error {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return fmt.Errorf("%w: stage name is empty", contractx.ErrConfiguration)
	}
	if stage == compose.START || stage == compose.END {
		return fmt.Errorf("%w: stage name %q is reserved", contractx.ErrConfiguration, stage)
	}
	if fn == nil {
		return fmt.Errorf("%w: stage %q has no function", contractx.ErrConfiguration, stage)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.compiled != nil {
		return fmt.Errorf("%w: register %q after compile", contractx.ErrConfiguration, stage)
	}
	if _, ok := e.stages[stage]; ok {
		return fmt.Errorf("%w: duplicate stage %q", contractx.ErrConfiguration, stage)
	}
	e.stages[stage] = fn
	e.order = append(e.order, stage)
	return nil
}

func (e *Engine) SetEntry(stage string) error {
	stage = strings.TrimSpace(stage)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.compiled != nil {
		return fmt.Errorf("%w: set entry after compile", contractx.ErrConfiguration)
	}
	if _, ok := e.stages[stage]; !ok {
		return fmt.Errorf("%w: entry stage %q is not registered", contractx.ErrConfiguration, stage)
	}
	e.entry = stage
	return nil
}

func (e *Engine) Stages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

// Compile builds the eino graph. It is safe to call more than once.
func (e *Engine) Compile(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compileLocked(ctx)
}

func (e *Engine) compileLocked(ctx context.Context) error {
	if e.compiled != nil {
		return nil
	}
	if e.entry == "" {
		return fmt.Errorf("%w: no entry stage", contractx.ErrConfiguration)
	}

	g := compose.NewGraph[*turn, *turn]()
	for _, name := range e.order {
		if err := g.AddLambdaNode(name, compose.InvokableLambda(e.stageNode(name, e.stages[name]))); err != nil {
			return fmt.Errorf("%w: add node %s: %v", contractx.ErrConfiguration, name, err)
		}
	}

	if err := g.AddEdge(compose.START, e.entry); err != nil {
		return fmt.Errorf("%w: add edge start->%s: %v", contractx.ErrConfiguration, e.entry, err)
	}

	for _, name := range e.order {
		endNodes := map[string]bool{compose.END: true}
		for _, other := range e.order {
			if other != name {
				endNodes[other] = true
			}
		}
		if err := g.AddBranch(name, compose.NewGraphBranch(e.route(name), endNodes)); err != nil {
			return fmt.Errorf("%w: add branch %s: %v", contractx.ErrConfiguration, name, err)
		}
	}

	// eino counts its own supersteps; the engine's counter is authoritative.
	runner, err := g.Compile(ctx,
		compose.WithGraphName(e.name),
		compose.WithMaxRunSteps(2*e.maxSteps+10),
	)
	if err != nil {
		return fmt.Errorf("%w: compile %s: %v", contractx.ErrConfiguration, e.name, err)
	}
	e.compiled = runner
	return nil
}

// Run executes the graph from the entry stage until a stage terminates.
// The given state is updated in place and returned.
func (e *Engine) Run(ctx context.Context, st *statex.ConversationState) (*statex.ConversationState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: nil conversation state", contractx.ErrValidation)
	}

	e.mu.Lock()
	err := e.compileLocked(ctx)
	runner := e.compiled
	e.mu.Unlock()
	if err != nil {
		return st, err
	}

	envelope := &turn{state: st}
	_, err = runner.Invoke(ctx, envelope)
	if envelope.err != nil {
		return st, envelope.err
	}
	if err != nil {
		return st, fmt.Errorf("run %s: %w", e.name, err)
	}
	return st, nil
}

// stageNode runs a stage, including immediate re-runs when it routes to itself.
func (e *Engine) stageNode(name string, fn StageFunc) func(context.Context, *turn) (*turn, error) {
	return func(ctx context.Context, t *turn) (*turn, error) {
		for {
			if err := e.step(ctx, name, fn, t); err != nil {
				t.err = err
				return nil, err
			}
			if t.next.IsTerminal() || t.next.Stage() != name {
				return t, nil
			}
		}
	}
}

func (e *Engine) step(ctx context.Context, name string, fn StageFunc, t *turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.steps++
	if t.steps > e.maxSteps {
		logx.Error().
			Str("turn_id", t.state.TurnID).
			Str("stage", name).
			Int("steps", t.steps).
			Strs("path", t.state.Path).
			Msg("routing loop aborted")
		return fmt.Errorf("%w: %d steps (last stage %s)", contractx.ErrRoutingLoop, e.maxSteps, name)
	}

	started := time.Now()
	delta, next, err := fn(ctx, t.state)
	if err == nil {
		err = t.state.Apply(delta)
	}
	t.state.Path = append(t.state.Path, name)
	t.next = next

	s := Step{
		TurnID:   t.state.TurnID,
		Index:    t.steps,
		Stage:    name,
		Next:     next,
		Duration: time.Since(started),
		Err:      err,
		State:    t.state,
	}
	for _, obs := range e.observers {
		obs(ctx, s)
	}

	if err != nil {
		logx.Error().Err(err).
			Str("turn_id", s.TurnID).
			Str("stage", name).
			Msg("stage failed")
		return fmt.Errorf("stage %s: %w", name, err)
	}

	logx.Debug().
		Str("turn_id", s.TurnID).
		Str("stage", name).
		Str("next", next.String()).
		Int("step", s.Index).
		Dur("took", s.Duration).
		Msg("stage done")
	return nil
}

func (e *Engine) route(from string) func(context.Context, *turn) (string, error) {
	return func(ctx context.Context, t *turn) (string, error) {
		if t == nil {
			return "", errors.New("nil turn envelope")
		}
		if t.next.IsTerminal() {
			return compose.END, nil
		}
		next := t.next.Stage()
		if _, ok := e.stages[next]; !ok || next == from {
			t.err = fmt.Errorf("%w: %s routed to %q", contractx.ErrUnknownStage, from, next)
			return "", t.err
		}
		return next, nil
	}
}
