package evaluator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	llmx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/llm"
	openrouterx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/openrouter"
)

const (
	DefaultScore = 5
	MinScore     = 1
	MaxScore     = 10
)

var (
	scoreLine     = regexp.MustCompile(`(?im)^\s*score\s*:\s*(\d+(?:\.\d+)?)`)
	reasoningLine = regexp.MustCompile(`(?ims)^\s*reasoning\s*:\s*(.+)`)
)

type Evaluation struct {
	Score     int    `json:"score" yaml:"score"`
	Reasoning string `json:"reasoning" yaml:"reasoning"`
}

// Evaluator asks a model to grade an assistant reply from 1 to 10.
type Evaluator struct {
	client *openaisdk.Client
	model  string
	prompt string
}

func New(client *openaisdk.Client, model string, prompt string) (*Evaluator, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: evaluator client is required", contractx.ErrConfiguration)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: evaluator model is required", contractx.ErrConfiguration)
	}
	if !strings.Contains(prompt, "{query}") || !strings.Contains(prompt, "{response}") {
		return nil, fmt.Errorf("%w: evaluator prompt needs {query} and {response}", contractx.ErrPromptMissing)
	}
	return &Evaluator{client: client, model: model, prompt: prompt}, nil
}

// FromConfig builds an evaluator on the OpenAI-compatible endpoint of cfg.
func FromConfig(cfg llmx.Config, prompt string) (*Evaluator, error) {
	orCfg := cfg.OpenRouterFor(llmx.RoleEvaluator)
	return New(openrouterx.NewClient(orCfg), orCfg.Model, prompt)
}

func (e *Evaluator) Evaluate(ctx context.Context, query, response string) (Evaluation, error) {
	content := strings.NewReplacer("{query}", query, "{response}", response).Replace(e.prompt)

	resp, err := e.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(e.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(content),
		},
		Temperature: openaisdk.Float(0),
	})
	if err != nil {
		return Evaluation{}, fmt.Errorf("%w: evaluate: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return Evaluation{}, fmt.Errorf("%w: evaluation has no choices", contractx.ErrSchemaViolation)
	}
	return ParseEvaluation(resp.Choices[0].Message.Content), nil
}

// ParseEvaluation reads "Score:" and "Reasoning:" lines. A missing or unreadable
// score gives DefaultScore; scores outside 1..10 are clamped.
func ParseEvaluation(text string) Evaluation {
	out := Evaluation{Score: DefaultScore}

	if m := scoreLine.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			out.Score = clamp(int(f + 0.5))
		}
	}
	if m := reasoningLine.FindStringSubmatch(text); m != nil {
		out.Reasoning = strings.TrimSpace(m[1])
	} else {
		out.Reasoning = strings.TrimSpace(text)
	}
	return out
}

func clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
