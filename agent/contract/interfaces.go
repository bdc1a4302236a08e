package contract

import "context"

type Classifier interface {
	ClassifySingle(ctx context.Context, text string) (Intent, error)
	ClassifyMulti(ctx context.Context, text string) (DecompositionCandidate, error)
}

type Agent interface {
	Invoke(ctx context.Context, req AgentRequest) (AgentResult, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, query string, parts []string) (string, error)
}

type TurnSink interface {
	Publish(ctx context.Context, event TurnEvent) error
}
