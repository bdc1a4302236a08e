package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	knowledgex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/knowledge"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
)

const contextSeparator = "\n\n---\n\n"

// DocumentAgent answers questions from one knowledge collection: it retrieves the
// best matching chunks and lets the model answer from them.
type DocumentAgent struct {
	name       contractx.AgentName
	collection string
	retriever  knowledgex.Retriever
	topK       int
	runner     compose.Runnable[map[string]any, *schema.Message]
}

func NewDocumentAgent(
	ctx context.Context,
	name contractx.AgentName,
	retriever knowledgex.Retriever,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	topK int,
) (*DocumentAgent, error) {
	if retriever == nil {
		return nil, fmt.Errorf("%w: retriever is required for agent=%s", contractx.ErrConfiguration, name)
	}
	if !strings.Contains(systemPrompt, "{context}") {
		return nil, fmt.Errorf("%w: document prompt for agent=%s has no context slot", contractx.ErrPromptMissing, name)
	}
	if topK <= 0 {
		topK = knowledgex.DefaultTopK
	}
	runner, err := compileChatGraph(ctx, chatModel, systemPrompt, "document."+string(name)+"_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile document graph: %v", contractx.ErrModelInvoke, err)
	}
	return &DocumentAgent{
		name:       name,
		collection: string(name),
		retriever:  retriever,
		topK:       topK,
		runner:     runner,
	}, nil
}

func (a *DocumentAgent) Invoke(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	query := strings.TrimSpace(req.Text)
	if query == "" {
		return contractx.AgentResult{}, fmt.Errorf("%w: %w: empty question", contractx.ErrAgentInvocation, contractx.ErrValidation)
	}

	hits, err := a.retriever.Retrieve(ctx, a.collection, query, a.topK)
	if err != nil {
		return contractx.AgentResult{}, fmt.Errorf("%w: retrieve from %s: %v", contractx.ErrAgentInvocation, a.collection, err)
	}
	if len(hits) == 0 {
		logx.Debug().
			Str("turn_id", req.TurnID).
			Str("collection", a.collection).
			Msg("no documents matched")
		return contractx.AgentResult{
			Text: fmt.Sprintf("I couldn't find anything about that in our %s documents.", a.collection),
			Next: req.Next(),
		}, nil
	}

	passages := make([]string, 0, len(hits))
	for _, h := range hits {
		passages = append(passages, strings.TrimSpace(h.Content))
	}

	msg, err := a.runner.Invoke(ctx, map[string]any{
		"context": strings.Join(passages, contextSeparator),
		"input":   query,
	})
	if err != nil {
		return contractx.AgentResult{}, fmt.Errorf("%w: %w: agent=%s: %v", contractx.ErrAgentInvocation, contractx.ErrModelInvoke, a.name, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return contractx.AgentResult{}, fmt.Errorf("%w: %w: agent=%s returned no text", contractx.ErrAgentInvocation, contractx.ErrSchemaViolation, a.name)
	}

	return contractx.AgentResult{
		Text: strings.TrimSpace(msg.Content),
		Next: req.Next(),
	}, nil
}
