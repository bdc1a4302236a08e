package specialist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
)

type singleLLMOutput struct {
	Category string     `json:"category"`
	Amount   flexAmount `json:"amount"`
	Followup string     `json:"followup,omitempty"`
}

type subQueryLLMOutput struct {
	Query    string     `json:"query"`
	Category string     `json:"category"`
	Agent    string     `json:"agent,omitempty"`
	Amount   flexAmount `json:"amount"`
}

type multiLLMOutput struct {
	IsMultiQuery  bool                `json:"is_multi_query"`
	SubQueries    []subQueryLLMOutput `json:"sub_queries,omitempty"`
	OriginalQuery string              `json:"original_query,omitempty"`
}

// flexAmount accepts numbers, numeric strings ("$1,200.50") and null.
type flexAmount float64

func (a *flexAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
		if s == "" {
			*a = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// A non-numeric amount is treated as not supplied.
			*a = 0
			return nil
		}
		*a = flexAmount(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = flexAmount(v)
	return nil
}

// Classifier is the LLM-backed intent classifier. Its output is untrusted: categories
// are mapped onto the closed set and amounts are sanitised before they leave.
type Classifier struct {
	single compose.Runnable[map[string]any, singleLLMOutput]
	multi  compose.Runnable[map[string]any, multiLLMOutput]
}

func NewClassifier(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	singlePrompt string,
	multiPrompt string,
) (*Classifier, error) {
	if strings.TrimSpace(singlePrompt) == "" || strings.TrimSpace(multiPrompt) == "" {
		return nil, fmt.Errorf("%w: classifier prompts", contractx.ErrPromptMissing)
	}
	single, err := compileStructuredLLMGraph[singleLLMOutput](ctx, chatModel, singlePrompt, "classifier.single_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile single classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	multi, err := compileStructuredLLMGraph[multiLLMOutput](ctx, chatModel, multiPrompt, "classifier.multi_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile multi classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Classifier{single: single, multi: multi}, nil
}

func (c *Classifier) ClassifySingle(ctx context.Context, text string) (contractx.Intent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return contractx.Intent{}, fmt.Errorf("%w: %w: text is empty", contractx.ErrClassifier, contractx.ErrValidation)
	}

	out, err := c.single.Invoke(ctx, map[string]any{"input": text})
	if err != nil {
		return contractx.Intent{}, fmt.Errorf("%w: single: %v", contractx.ErrClassifier, err)
	}

	intent := contractx.Intent{
		Category:      contractx.Category(out.Category),
		Amount:        float64(out.Amount),
		Clarification: out.Followup,
	}.Normalize()

	// A follow-up question only makes sense while a required amount is missing.
	if !intent.Category.NeedsAmount() || intent.Amount > 0 {
		intent.Clarification = ""
	}

	logx.Debug().
		Str("category", string(intent.Category)).
		Float64("amount", intent.Amount).
		Bool("clarifying", intent.Clarification != "").
		Msg("single classification")
	return intent, nil
}

func (c *Classifier) ClassifyMulti(ctx context.Context, text string) (contractx.DecompositionCandidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return contractx.DecompositionCandidate{}, fmt.Errorf("%w: %w: text is empty", contractx.ErrClassifier, contractx.ErrValidation)
	}

	out, err := c.multi.Invoke(ctx, map[string]any{"input": text})
	if err != nil {
		return contractx.DecompositionCandidate{}, fmt.Errorf("%w: multi: %v", contractx.ErrClassifier, err)
	}
	if !out.IsMultiQuery {
		return contractx.DecompositionCandidate{}, nil
	}

	subs := make([]contractx.SubRequest, 0, len(out.SubQueries))
	for _, q := range out.SubQueries {
		subs = append(subs, contractx.SubRequest{
			Text:     strings.TrimSpace(q.Query),
			Category: contractx.ParseCategory(q.Category),
			Agent:    contractx.AgentName(strings.ToLower(strings.TrimSpace(q.Agent))),
			Amount:   float64(q.Amount),
		})
	}

	logx.Debug().
		Int("sub_requests", len(subs)).
		Msg("multi classification")
	return contractx.DecompositionCandidate{IsMulti: true, SubRequests: subs}, nil
}
