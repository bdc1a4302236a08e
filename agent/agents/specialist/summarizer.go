package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
)

// Summarizer merges the partial answers of a decomposed request into one reply.
type Summarizer struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

func NewSummarizer(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*Summarizer, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: summarizer prompt", contractx.ErrPromptMissing)
	}
	runner, err := compileChatGraph(ctx, chatModel, systemPrompt, "summarizer.graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile summarizer graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Summarizer{runner: runner}, nil
}

func (s *Summarizer) Summarize(ctx context.Context, query string, parts []string) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: nothing to summarize", contractx.ErrValidation)
	}

	msg, err := s.runner.Invoke(ctx, map[string]any{
		"input": summaryInput(query, parts),
	})
	if err != nil {
		return "", fmt.Errorf("%w: summarize: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: empty summary response", contractx.ErrSchemaViolation)
	}
	return strings.TrimSpace(msg.Content), nil
}

func summaryInput(query string, parts []string) string {
	var b strings.Builder
	b.WriteString("Original message:\n")
	b.WriteString(strings.TrimSpace(query))
	b.WriteString("\n\nPartial answers:")
	for i, p := range parts {
		fmt.Fprintf(&b, "\n%d. %s", i+1, strings.TrimSpace(p))
	}
	return b.String()
}
