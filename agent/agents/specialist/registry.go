package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	knowledgex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/knowledge"
	ledgerx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/ledger"
	llmx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/llm"
	promptx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/prompt"
)

// Registry holds the collaborators a turn needs.
type Registry struct {
	Classifier contractx.Classifier
	Summarizer contractx.Summarizer
	Agents     map[contractx.AgentName]contractx.Agent
}

type Deps struct {
	Ledger    ledgerx.Store
	AccountID string
	Retriever knowledgex.Retriever
	TopK      int
	CacheSize int
}

// ModelFactory builds the chat model used for a role.
type ModelFactory func(ctx context.Context, role llmx.Role) (einomodel.BaseChatModel, error)

func NewRegistry(ctx context.Context, cfg llmx.Config, deps Deps) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewRegistryWithModels(ctx, cfg.NewChatModel, promptx.LoadPromptSet(), deps)
}

func NewRegistryWithModels(ctx context.Context, models ModelFactory, prompts promptx.PromptSet, deps Deps) (*Registry, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: model factory is required", contractx.ErrConfiguration)
	}

	classifierModel, err := models(ctx, llmx.RoleClassifier)
	if err != nil {
		return nil, fmt.Errorf("%w: create classifier model: %v", contractx.ErrModelInvoke, err)
	}
	documentModel, err := models(ctx, llmx.RoleDocument)
	if err != nil {
		return nil, fmt.Errorf("%w: create document model: %v", contractx.ErrModelInvoke, err)
	}
	summarizerModel, err := models(ctx, llmx.RoleSummarizer)
	if err != nil {
		return nil, fmt.Errorf("%w: create summarizer model: %v", contractx.ErrModelInvoke, err)
	}

	classifier, err := NewClassifier(ctx, classifierModel, prompts.ClassifierSingle, prompts.ClassifierMulti)
	if err != nil {
		return nil, err
	}
	cached, err := NewCachedClassifier(classifier, deps.CacheSize)
	if err != nil {
		return nil, err
	}

	summarizer, err := NewSummarizer(ctx, summarizerModel, prompts.Summarizer)
	if err != nil {
		return nil, err
	}

	ledger, err := NewLedgerAgent(deps.Ledger, deps.AccountID)
	if err != nil {
		return nil, err
	}

	agents := map[contractx.AgentName]contractx.Agent{
		contractx.AgentLedger: ledger,
	}
	for _, name := range []contractx.AgentName{contractx.AgentFAQ, contractx.AgentPolicy, contractx.AgentInvestment} {
		prompt, ok := prompts.Document(string(name))
		if !ok {
			return nil, fmt.Errorf("%w: no prompt for agent=%s", contractx.ErrPromptMissing, name)
		}
		agent, err := NewDocumentAgent(ctx, name, deps.Retriever, documentModel, prompt, deps.TopK)
		if err != nil {
			return nil, err
		}
		agents[name] = agent
	}

	return &Registry{
		Classifier: cached,
		Summarizer: summarizer,
		Agents:     agents,
	}, nil
}
