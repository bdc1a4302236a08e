package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/state"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
)

var ErrNoUserMessage = errors.New("no user message to route")

type RouterConfig struct {
	FallbackCategory string `split_words:"true" default:"balance"`
	MaxSteps         int    `split_words:"true" default:"50"`
	// Summarize lets the summarizer rewrite multi-part replies. Off keeps the plain
	// newline join of the partial answers.
	Summarize bool `split_words:"true" default:"false"`
}

type RouterOption func(*Router)

func WithFallback(c contractx.Category) RouterOption {
	return func(r *Router) {
		r.fallback = ParseFallback(string(c))
	}
}

// Router decides, on every entry, what the turn does next. It is re-entered after
// each agent while a decomposition is in progress.
type Router struct {
	classifier contractx.Classifier
	fallback   contractx.Category
}

func NewRouter(classifier contractx.Classifier, opts ...RouterOption) (*Router, error) {
	if classifier == nil {
		return nil, fmt.Errorf("%w: classifier is required", contractx.ErrConfiguration)
	}
	r := &Router{
		classifier: classifier,
		fallback:   DefaultFallbackCategory,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

func (r *Router) Fallback() contractx.Category {
	return r.fallback
}

func (r *Router) Route(
	ctx context.Context,
	st *statex.ConversationState,
) (statex.Delta, contractx.RouteDecision, error) {
	if st == nil {
		return statex.Delta{}, contractx.Terminate(), fmt.Errorf("%w: conversation state is nil", contractx.ErrValidation)
	}

	if st.InDecomposition {
		return r.advance(st)
	}

	msg, ok := st.LastMessage(contractx.RoleUser)
	text := strings.TrimSpace(msg.Text)
	if !ok || text == "" {
		return statex.Delta{}, contractx.Terminate(), ErrNoUserMessage
	}

	if delta, next, ok := r.decompose(ctx, st.TurnID, text); ok {
		return delta, next, nil
	}
	return r.single(ctx, st.TurnID, text)
}

// advance records the result of the sub-request just served and moves to the next one.
func (r *Router) advance(st *statex.ConversationState) (statex.Delta, contractx.RouteDecision, error) {
	d := st.Decomposition.Clone()
	last, _ := st.LastMessage(contractx.RoleAgent)
	if err := d.Record(last.Text); err != nil {
		return statex.Delta{}, contractx.Terminate(), err
	}

	if !d.InProgress() {
		logx.Debug().
			Str("turn_id", st.TurnID).
			Int("results", len(d.Results)).
			Msg("decomposition complete")
		return statex.Delta{Decomposition: d}, contractx.Continue(contractx.StageAggregator), nil
	}
	return dispatchSubRequest(d)
}

func (r *Router) decompose(ctx context.Context, turnID string, text string) (statex.Delta, contractx.RouteDecision, bool) {
	candidate, err := r.classifier.ClassifyMulti(ctx, text)
	if err != nil {
		logx.Warn().Err(err).
			Str("turn_id", turnID).
			Msg("multi classification failed; treating request as single")
		return statex.Delta{}, contractx.RouteDecision{}, false
	}
	if !candidate.IsMulti {
		return statex.Delta{}, contractx.RouteDecision{}, false
	}

	subs := validateSubRequests(candidate.SubRequests, r.fallback)
	if len(subs) < 2 {
		return statex.Delta{}, contractx.RouteDecision{}, false
	}

	d, err := statex.NewDecomposition(subs)
	if err != nil {
		return statex.Delta{}, contractx.RouteDecision{}, false
	}
	logx.Info().
		Str("turn_id", turnID).
		Int("sub_requests", len(subs)).
		Msg("decomposition started")

	delta, next, err := dispatchSubRequest(d)
	if err != nil {
		return statex.Delta{}, contractx.RouteDecision{}, false
	}
	return delta, next, true
}

func (r *Router) single(ctx context.Context, turnID string, text string) (statex.Delta, contractx.RouteDecision, error) {
	intent, err := r.classifier.ClassifySingle(ctx, text)
	if err != nil {
		logx.Warn().Err(err).
			Str("turn_id", turnID).
			Msg("classification failed; using fallback category")
		intent = contractx.Intent{Category: contractx.CategoryUnknown}
	}
	intent = intent.Normalize()

	category := resolveCategory(intent.Category, r.fallback)
	if category != intent.Category {
		logx.Debug().
			Str("turn_id", turnID).
			Str("category", string(intent.Category)).
			Str("fallback", string(category)).
			Msg("category replaced by fallback")
	}

	if intent.Clarification != "" && intent.Amount == 0 {
		logx.Debug().
			Str("turn_id", turnID).
			Str("category", string(category)).
			Msg("awaiting clarification")
		delta := statex.Delta{
			Clarification: &statex.PendingClarification{
				Category: category,
				Question: intent.Clarification,
			},
		}.AddMessage(contractx.RoleAgent, intent.Clarification)
		return delta, contractx.Terminate(), nil
	}

	agent, _ := AgentFor(category)
	delta := statex.Delta{
		Request: &statex.Request{
			Text:     text,
			Category: category,
			Amount:   intent.Amount,
		},
	}
	return delta, contractx.Continue(string(agent)), nil
}

func dispatchSubRequest(d *statex.Decomposition) (statex.Delta, contractx.RouteDecision, error) {
	cur, ok := d.Current()
	if !ok {
		return statex.Delta{}, contractx.Terminate(), statex.ErrDecompositionDone
	}
	delta := statex.Delta{
		Decomposition: d,
		Request: &statex.Request{
			Text:     cur.Text,
			Category: cur.Category,
			Amount:   cur.Amount,
			Index:    d.Cursor,
		},
	}.AddMessage(contractx.RoleUser, cur.Text)
	return delta, contractx.Continue(string(cur.Agent)), nil
}
