package state

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
)

func testSubRequests() []contractx.SubRequest {
	return []contractx.SubRequest{
		{Text: "Deposit 50", Category: contractx.CategoryDeposit, Agent: contractx.AgentLedger, Amount: 50},
		{Text: "tell me about investments", Category: contractx.CategoryInvestment, Agent: contractx.AgentInvestment},
		{Text: "what is my balance", Category: contractx.CategoryBalance, Agent: contractx.AgentLedger},
	}
}

func TestDecompositionRecordKeepsCursorInvariant(t *testing.T) {
	t.Parallel()

	d, err := NewDecomposition(testSubRequests())
	if err != nil {
		t.Fatalf("NewDecomposition() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		cur, ok := d.Current()
		if !ok {
			t.Fatalf("step %d: expected current sub-request", i)
		}
		if cur.Text != testSubRequests()[i].Text {
			t.Fatalf("step %d: current = %q", i, cur.Text)
		}
		if err := d.Record("r"); err != nil {
			t.Fatalf("step %d: Record() error = %v", i, err)
		}
		if len(d.Results) != d.Cursor {
			t.Fatalf("step %d: len(results)=%d cursor=%d", i, len(d.Results), d.Cursor)
		}
	}

	if d.InProgress() {
		t.Fatal("decomposition must be complete after three results")
	}
	if err := d.Record("extra"); !errors.Is(err, ErrDecompositionDone) {
		t.Fatalf("expected ErrDecompositionDone, got %v", err)
	}
	if len(d.Results) != 3 {
		t.Fatalf("extra record must not be stored, got %d results", len(d.Results))
	}
}

func TestNewDecompositionEmpty(t *testing.T) {
	t.Parallel()

	if _, err := NewDecomposition(nil); !errors.Is(err, ErrDecompositionEmpty) {
		t.Fatalf("expected ErrDecompositionEmpty, got %v", err)
	}
}

func TestDecompositionValidate(t *testing.T) {
	t.Parallel()

	d := &Decomposition{SubRequests: testSubRequests(), Cursor: 2, Results: []string{"a"}}
	if err := d.Validate(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
	d = &Decomposition{SubRequests: testSubRequests(), Cursor: 4, Results: []string{"a", "b", "c", "d"}}
	if err := d.Validate(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant for cursor overflow, got %v", err)
	}
}

func TestApplyDelta(t *testing.T) {
	t.Parallel()

	st := NewConversationState("turn-1", "Deposit 50 and tell me about investments")
	d, _ := NewDecomposition(testSubRequests()[:2])

	err := st.Apply(Delta{
		Decomposition: d,
		Request:       &Request{Text: "Deposit 50", Category: contractx.CategoryDeposit, Amount: 50},
	}.AddMessage(contractx.RoleUser, "Deposit 50"))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !st.InDecomposition {
		t.Fatal("installing an in-progress decomposition must set InDecomposition")
	}
	if len(st.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(st.Messages))
	}

	req := st.AgentRequest()
	if req.Text != "Deposit 50" || req.Amount != 50 || !req.InDecomposition {
		t.Fatalf("unexpected agent request: %#v", req)
	}
	if !req.Next().Equal(contractx.Continue(contractx.StageRouter)) {
		t.Fatalf("in a decomposition agents must return to the router, got %s", req.Next())
	}

	if err := st.Apply(Delta{DropDecomposition: true}); err != nil {
		t.Fatalf("Apply(drop) error = %v", err)
	}
	if st.Decomposition != nil || st.InDecomposition {
		t.Fatal("drop must clear the decomposition and the flag")
	}
}

func TestApplyRejectsBrokenDecomposition(t *testing.T) {
	t.Parallel()

	st := NewConversationState("turn-2", "x")
	err := st.Apply(Delta{Decomposition: &Decomposition{SubRequests: testSubRequests(), Cursor: 1}})
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestFinalTextAndCarryOver(t *testing.T) {
	t.Parallel()

	st := NewConversationState("turn-3", "deposit")
	if st.FinalText() != "" {
		t.Fatalf("no agent message yet, got %q", st.FinalText())
	}
	if st.CarryOver().Awaiting() {
		t.Fatal("fresh state must not carry a clarification")
	}

	_ = st.Apply(Delta{
		Clarification: &PendingClarification{Category: contractx.CategoryDeposit, Question: "How much?"},
	}.AddMessage(contractx.RoleAgent, "How much?"))

	if st.FinalText() != "How much?" {
		t.Fatalf("FinalText() = %q", st.FinalText())
	}
	carry := st.CarryOver()
	if !carry.Awaiting() || carry.Clarification.Category != contractx.CategoryDeposit {
		t.Fatalf("unexpected carry: %#v", carry)
	}
	carry.Clarification.Question = "changed"
	if st.Clarification.Question != "How much?" {
		t.Fatal("carry must be a copy")
	}
}
