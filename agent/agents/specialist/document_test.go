package specialist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	knowledgex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/knowledge"
)

type fakeRetriever struct {
	hits       []knowledgex.Hit
	err        error
	collection string
	k          int
}

func (f *fakeRetriever) Retrieve(_ context.Context, collection string, _ string, k int) ([]knowledgex.Hit, error) {
	f.collection = collection
	f.k = k
	return f.hits, f.err
}

const testDocumentPrompt = "Answer from these passages:\n{context}"

func TestDocumentAgentAnswersFromPassages(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{hits: []knowledgex.Hit{
		{Content: "Savings accounts pay 2% interest."},
		{Content: "Interest is paid monthly."},
	}}
	fake := &fakeChatModel{responses: []*schema.Message{reply("  Savings pay 2% monthly.  ")}}
	agent, err := NewDocumentAgent(context.Background(), contractx.AgentInvestment, retriever, fake, testDocumentPrompt, 0)
	if err != nil {
		t.Fatalf("NewDocumentAgent() error = %v", err)
	}

	got, err := agent.Invoke(context.Background(), contractx.AgentRequest{
		Text:            "what interest do savings pay?",
		Category:        contractx.CategoryInvestment,
		InDecomposition: true,
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got.Text != "Savings pay 2% monthly." {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if !got.Next.Equal(contractx.Continue(contractx.StageRouter)) {
		t.Fatalf("unexpected next %s", got.Next)
	}
	if retriever.collection != "investment" || retriever.k != knowledgex.DefaultTopK {
		t.Fatalf("retrieved from %s with k=%d", retriever.collection, retriever.k)
	}

	system := fake.inputs[0][0]
	if system.Role != schema.System || !strings.Contains(system.Content, "Savings accounts pay 2% interest.") {
		t.Fatalf("passages not rendered into system prompt: %q", system.Content)
	}
}

func TestDocumentAgentNoMatches(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{}
	agent, err := NewDocumentAgent(context.Background(), contractx.AgentFAQ, &fakeRetriever{}, fake, testDocumentPrompt, 3)
	if err != nil {
		t.Fatalf("NewDocumentAgent() error = %v", err)
	}

	got, err := agent.Invoke(context.Background(), contractx.AgentRequest{Text: "opening hours?"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got.Text != "I couldn't find anything about that in our faq documents." {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if !got.Next.IsTerminal() {
		t.Fatalf("expected terminal decision, got %s", got.Next)
	}
	if fake.calls() != 0 {
		t.Fatalf("model must not be called without passages")
	}
}

func TestDocumentAgentErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agent, err := NewDocumentAgent(ctx, contractx.AgentPolicy, &fakeRetriever{err: errors.New("index closed")}, &fakeChatModel{}, testDocumentPrompt, 3)
	if err != nil {
		t.Fatalf("NewDocumentAgent() error = %v", err)
	}
	if _, err := agent.Invoke(ctx, contractx.AgentRequest{Text: "limits?"}); !errors.Is(err, contractx.ErrAgentInvocation) {
		t.Fatalf("expected ErrAgentInvocation, got %v", err)
	}

	failing := &fakeChatModel{err: errors.New("rate limited")}
	agent, err = NewDocumentAgent(ctx, contractx.AgentPolicy, &fakeRetriever{hits: []knowledgex.Hit{{Content: "x"}}}, failing, testDocumentPrompt, 3)
	if err != nil {
		t.Fatalf("NewDocumentAgent() error = %v", err)
	}
	_, err = agent.Invoke(ctx, contractx.AgentRequest{Text: "limits?"})
	if !errors.Is(err, contractx.ErrAgentInvocation) || !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrAgentInvocation and ErrModelInvoke, got %v", err)
	}

	if _, err := NewDocumentAgent(ctx, contractx.AgentFAQ, &fakeRetriever{}, &fakeChatModel{}, "no slot", 3); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}
	if _, err := NewDocumentAgent(ctx, contractx.AgentFAQ, nil, &fakeChatModel{}, testDocumentPrompt, 3); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
