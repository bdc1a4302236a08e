package orchestratornode

import (
	"context"
	"errors"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
)

type fakeClassifier struct {
	single   map[string]contractx.Intent
	multi    map[string]contractx.DecompositionCandidate
	singleEr error
	multiEr  error

	singleCalls int
	multiCalls  int
}

func (f *fakeClassifier) ClassifySingle(_ context.Context, text string) (contractx.Intent, error) {
	f.singleCalls++
	if f.singleEr != nil {
		return contractx.Intent{}, f.singleEr
	}
	if intent, ok := f.single[text]; ok {
		return intent, nil
	}
	return contractx.Intent{Category: contractx.CategoryUnknown}, nil
}

func (f *fakeClassifier) ClassifyMulti(_ context.Context, text string) (contractx.DecompositionCandidate, error) {
	f.multiCalls++
	if f.multiEr != nil {
		return contractx.DecompositionCandidate{}, f.multiEr
	}
	return f.multi[text], nil
}

type fakeAgent struct {
	text  string
	err   error
	next  *contractx.RouteDecision
	calls []contractx.AgentRequest
}

func (f *fakeAgent) Invoke(_ context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return contractx.AgentResult{}, f.err
	}
	next := req.Next()
	if f.next != nil {
		next = *f.next
	}
	return contractx.AgentResult{Text: f.text, Next: next}, nil
}

type fakeSummarizer struct {
	out string
	err error
}

func (f fakeSummarizer) Summarize(context.Context, string, []string) (string, error) {
	return f.out, f.err
}

var errFake = errors.New("fake failure")
