package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	graphx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/graph"
	nodex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/nodes"
	statex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/state"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
)

// FailureText replies to a turn the engine could not finish.
const FailureText = "Sorry, something went wrong while handling your request."

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

// Deps are the collaborators of a turn. Summarizer, Store, Sink and Observer are
// optional; the summarizer is only used when RouterConfig.Summarize is set.
type Deps struct {
	Classifier contractx.Classifier
	Agents     map[contractx.AgentName]contractx.Agent
	Summarizer contractx.Summarizer
	Store      statex.CarryStore
	Sink       contractx.TurnSink
	Observer   graphx.Observer
}

type TurnResult struct {
	Reply string
	Carry statex.Carry
	State *statex.ConversationState
}

// Agents lists the agents the turn dispatched to, in order.
func (r TurnResult) Agents() []string {
	if r.State == nil {
		return nil
	}
	var out []string
	for _, stage := range r.State.Path {
		if stage == contractx.StageRouter || stage == contractx.StageAggregator {
			continue
		}
		out = append(out, stage)
	}
	return out
}

// Decomposed reports whether the turn went through the aggregator.
func (r TurnResult) Decomposed() bool {
	if r.State == nil {
		return false
	}
	for _, stage := range r.State.Path {
		if stage == contractx.StageAggregator {
			return true
		}
	}
	return false
}

type Orchestrator struct {
	engine    *graphx.Engine
	router    *nodex.Router
	clarifier nodex.Clarifier
	store     statex.CarryStore
	sink      contractx.TurnSink

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

func New(ctx context.Context, deps Deps, cfg nodex.RouterConfig) (*Orchestrator, error) {
	router, err := nodex.NewRouter(deps.Classifier, nodex.WithFallback(contractx.Category(cfg.FallbackCategory)))
	if err != nil {
		return nil, err
	}

	engine := graphx.New("orchestrator.turn",
		graphx.WithMaxSteps(cfg.MaxSteps),
		graphx.WithObserver(deps.Observer),
	)
	if err := engine.Register(contractx.StageRouter, router.Route); err != nil {
		return nil, err
	}
	for _, name := range nodex.Agents() {
		if deps.Agents[name] == nil {
			return nil, fmt.Errorf("%w: agent %s is required", contractx.ErrConfiguration, name)
		}
	}
	for name, agent := range deps.Agents {
		if agent == nil {
			continue
		}
		if err := engine.Register(string(name), nodex.DispatchAgent(name, agent)); err != nil {
			return nil, err
		}
	}
	var summarizer contractx.Summarizer
	if cfg.Summarize {
		summarizer = deps.Summarizer
	}
	if err := engine.Register(contractx.StageAggregator, nodex.NewAggregator(summarizer).Aggregate); err != nil {
		return nil, err
	}
	if err := engine.SetEntry(contractx.StageRouter); err != nil {
		return nil, err
	}
	if err := engine.Compile(ctx); err != nil {
		return nil, err
	}

	store := deps.Store
	if store == nil {
		store = statex.NewMemoryCarryStore()
	}

	o := &Orchestrator{
		engine: engine,
		router: router,
		store:  store,
		sink:   deps.Sink,
		now:    time.Now,
		newID:  uuid.NewString,
	}

	graphRunner, err := o.compileHandleMessageGraph(ctx)
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	logx.Debug().
		Strs("stages", engine.Stages()).
		Str("fallback", string(router.Fallback())).
		Bool("summarize", summarizer != nil).
		Msg("orchestrator ready")
	return o, nil
}

// Turn runs one user message. carry is what the previous turn left behind; the
// returned carry replaces it. A failed turn still returns FailureText and an empty
// carry together with the error.
func (o *Orchestrator) Turn(ctx context.Context, text string, carry statex.Carry) (TurnResult, error) {
	return o.turn(ctx, "", text, carry)
}

func (o *Orchestrator) turn(ctx context.Context, sessionID string, text string, carry statex.Carry) (TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return TurnResult{}, ErrInvalidMessage
	}

	started := o.now()
	resolved, _ := o.clarifier.Resolve(carry, text)
	st := statex.NewConversationState(o.newID(), resolved)

	st, err := o.engine.Run(ctx, st)
	result := TurnResult{State: st}
	if err != nil {
		logx.Error().Err(err).
			Str("turn_id", st.TurnID).
			Str("session_id", sessionID).
			Strs("path", st.Path).
			Msg("turn failed")
		result.Reply = FailureText
	} else {
		result.Reply = st.FinalText()
		result.Carry = st.CarryOver()
		if result.Reply == "" {
			result.Reply = nodex.NoResultsText
		}
	}

	o.publish(ctx, sessionID, text, started, result, err)
	return result, err
}

func (o *Orchestrator) publish(ctx context.Context, sessionID, text string, started time.Time, res TurnResult, turnErr error) {
	if o.sink == nil {
		return
	}

	event := contractx.TurnEvent{
		TurnID:     res.State.TurnID,
		SessionID:  sessionID,
		Text:       text,
		Reply:      res.Reply,
		Path:       append([]string(nil), res.State.Path...),
		Clarifying: res.Carry.Awaiting(),
		StartedAt:  started.UTC(),
		Duration:   float64(o.now().Sub(started).Microseconds()) / 1000,
	}
	if res.State.Request != nil && !res.Decomposed() {
		event.Categories = []contractx.Category{res.State.Request.Category}
	}
	if res.Carry.Awaiting() {
		event.Categories = []contractx.Category{res.Carry.Clarification.Category}
	}
	if turnErr != nil {
		event.Error = turnErr.Error()
	}

	if err := o.sink.Publish(ctx, event); err != nil {
		logx.Warn().Err(err).Str("turn_id", event.TurnID).Msg("publish turn event failed")
	}
}

// HandleMessage runs a turn for a session, loading and saving its carry.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (string, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return "", err
	}
	return out.Reply, out.Err
}
