package orchestratornode

import (
	"context"
	"strings"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/state"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
)

const (
	NoResultsText   = "I apologize, but I couldn't process your request."
	ResultSeparator = "\n"
)

type Aggregator struct {
	summarizer contractx.Summarizer
}

// NewAggregator builds the aggregator stage. The summarizer is optional.
func NewAggregator(summarizer contractx.Summarizer) *Aggregator {
	return &Aggregator{summarizer: summarizer}
}

func (a *Aggregator) Aggregate(
	ctx context.Context,
	st *statex.ConversationState,
) (statex.Delta, contractx.RouteDecision, error) {
	var results []string
	if st != nil && st.Decomposition != nil {
		results = st.Decomposition.Results
	}

	text := a.combine(ctx, originalQuery(st), results)
	delta := statex.Delta{DropDecomposition: true}.AddMessage(contractx.RoleAgent, text)
	return delta, contractx.Terminate(), nil
}

func (a *Aggregator) combine(ctx context.Context, query string, results []string) string {
	switch len(results) {
	case 0:
		return NoResultsText
	case 1:
		return results[0]
	}

	joined := strings.Join(results, ResultSeparator)
	if a.summarizer == nil {
		return joined
	}

	summary, err := a.summarizer.Summarize(ctx, query, results)
	if err != nil {
		logx.Warn().Err(err).Msg("summarizer failed; returning joined results")
		return joined
	}
	if strings.TrimSpace(summary) == "" {
		return joined
	}
	return strings.TrimSpace(summary)
}

func originalQuery(st *statex.ConversationState) string {
	if st == nil {
		return ""
	}
	for _, msg := range st.Messages {
		if msg.Role == contractx.RoleUser {
			return msg.Text
		}
	}
	return ""
}
