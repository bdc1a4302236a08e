package specialist

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	ledgerx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/ledger"
	llmx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/llm"
	promptx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/prompt"
)

func TestNewRegistryWithModels(t *testing.T) {
	t.Parallel()

	var roles []llmx.Role
	factory := func(_ context.Context, role llmx.Role) (einomodel.BaseChatModel, error) {
		roles = append(roles, role)
		return &fakeChatModel{}, nil
	}

	reg, err := NewRegistryWithModels(context.Background(), factory, promptx.LoadPromptSet(), Deps{
		Ledger:    ledgerx.NewMemoryStore(),
		Retriever: &fakeRetriever{},
	})
	if err != nil {
		t.Fatalf("NewRegistryWithModels() error = %v", err)
	}
	if reg.Classifier == nil || reg.Summarizer == nil {
		t.Fatal("classifier and summarizer must be set")
	}
	for _, name := range []contractx.AgentName{
		contractx.AgentLedger, contractx.AgentFAQ, contractx.AgentPolicy, contractx.AgentInvestment,
	} {
		if reg.Agents[name] == nil {
			t.Fatalf("agent %s missing", name)
		}
	}
	if len(roles) != 3 {
		t.Fatalf("expected 3 models, got %v", roles)
	}
}

func TestNewRegistryWithModelsErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := NewRegistryWithModels(ctx, nil, promptx.LoadPromptSet(), Deps{}); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}

	failing := func(context.Context, llmx.Role) (einomodel.BaseChatModel, error) {
		return nil, errors.New("no key")
	}
	if _, err := NewRegistryWithModels(ctx, failing, promptx.LoadPromptSet(), Deps{}); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}

	ok := func(context.Context, llmx.Role) (einomodel.BaseChatModel, error) {
		return &fakeChatModel{}, nil
	}
	_, err := NewRegistryWithModels(ctx, ok, promptx.LoadPromptSet(), Deps{Ledger: ledgerx.NewMemoryStore()})
	if !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration without retriever, got %v", err)
	}
}
