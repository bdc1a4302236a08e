package orchestratornode

import (
	"context"
	"testing"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/state"
)

func stateWithResults(t *testing.T, results ...string) *statex.ConversationState {
	t.Helper()
	st := statex.NewConversationState("t", "q")
	if len(results) == 0 {
		return st
	}
	subs := make([]contractx.SubRequest, len(results))
	for i := range results {
		subs[i] = contractx.SubRequest{Text: "s", Category: contractx.CategoryFAQ, Agent: contractx.AgentFAQ}
	}
	d, err := statex.NewDecomposition(subs)
	if err != nil {
		t.Fatalf("NewDecomposition() error = %v", err)
	}
	for _, r := range results {
		if err := d.Record(r); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if err := st.Apply(statex.Delta{Decomposition: d}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	return st
}

func TestAggregatorTexts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		results    []string
		summarizer contractx.Summarizer
		want       string
	}{
		{"none", nil, nil, NoResultsText},
		{"one", []string{"only"}, fakeSummarizer{out: "ignored"}, "only"},
		{"joined", []string{"a", "b"}, nil, "a\nb"},
		{"summarized", []string{"a", "b"}, fakeSummarizer{out: "a and b"}, "a and b"},
		{"summarizer error", []string{"a", "b"}, fakeSummarizer{err: errFake}, "a\nb"},
		{"summarizer empty", []string{"a", "b"}, fakeSummarizer{out: "  "}, "a\nb"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			st := stateWithResults(t, tc.results...)
			delta, next, err := NewAggregator(tc.summarizer).Aggregate(context.Background(), st)
			if err != nil {
				t.Fatalf("Aggregate() error = %v", err)
			}
			if !next.IsTerminal() {
				t.Fatalf("aggregator must terminate, got %s", next)
			}
			if !delta.DropDecomposition {
				t.Fatal("aggregator must drop the decomposition")
			}
			if len(delta.Messages) != 1 || delta.Messages[0].Text != tc.want {
				t.Fatalf("messages = %#v, want %q", delta.Messages, tc.want)
			}
		})
	}
}
