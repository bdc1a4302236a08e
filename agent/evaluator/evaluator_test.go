package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
)

func TestParseEvaluation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Evaluation
	}{
		{"Score: 8\nReasoning: Correct amount and balance.", Evaluation{Score: 8, Reasoning: "Correct amount and balance."}},
		{"score:7.6\nreasoning: fine", Evaluation{Score: 8, Reasoning: "fine"}},
		{"Score: 42\nReasoning: generous", Evaluation{Score: 10, Reasoning: "generous"}},
		{"Score: 0\nReasoning: wrong", Evaluation{Score: 1, Reasoning: "wrong"}},
		{"The answer looks okay.", Evaluation{Score: DefaultScore, Reasoning: "The answer looks okay."}},
	}
	for _, tt := range tests {
		if got := ParseEvaluation(tt.in); got != tt.want {
			t.Fatalf("ParseEvaluation(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestEvaluateCallsChatCompletions(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "judge",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "Score: 9\nReasoning: Accurate."}
			}]
		}`)
	}))
	defer server.Close()

	client := openaisdk.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(server.URL),
		option.WithMaxRetries(0),
	)
	e, err := New(&client, "judge", "Q={query} R={response}")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := e.Evaluate(context.Background(), "balance?", "Your current account balance is $10.00.")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got.Score != 9 || got.Reasoning != "Accurate." {
		t.Fatalf("Evaluate() = %#v", got)
	}

	if gotBody["model"] != "judge" {
		t.Fatalf("unexpected model %v", gotBody["model"])
	}
	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %v", gotBody["messages"])
	}
	first, _ := messages[0].(map[string]any)
	if first["content"] != "Q=balance? R=Your current account balance is $10.00." {
		t.Fatalf("unexpected prompt %v", first["content"])
	}
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	client := openaisdk.NewClient(option.WithAPIKey("test"))
	if _, err := New(nil, "m", "{query}{response}"); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if _, err := New(&client, "", "{query}{response}"); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if _, err := New(&client, "m", "no slots"); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}
}
