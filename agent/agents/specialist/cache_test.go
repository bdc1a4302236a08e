package specialist

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
)

type countingClassifier struct {
	single int
	multi  int
	err    error
}

func (c *countingClassifier) ClassifySingle(context.Context, string) (contractx.Intent, error) {
	c.single++
	if c.err != nil {
		return contractx.Intent{}, c.err
	}
	return contractx.Intent{Category: contractx.CategoryBalance}, nil
}

func (c *countingClassifier) ClassifyMulti(context.Context, string) (contractx.DecompositionCandidate, error) {
	c.multi++
	if c.err != nil {
		return contractx.DecompositionCandidate{}, c.err
	}
	return contractx.DecompositionCandidate{
		IsMulti: true,
		SubRequests: []contractx.SubRequest{
			{Text: "a", Category: contractx.CategoryBalance},
			{Text: "b", Category: contractx.CategoryFAQ},
		},
	}, nil
}

func TestCachedClassifierHits(t *testing.T) {
	t.Parallel()

	next := &countingClassifier{}
	c, err := NewCachedClassifier(next, 8)
	if err != nil {
		t.Fatalf("NewCachedClassifier() error = %v", err)
	}

	ctx := context.Background()
	for _, text := range []string{"What is my balance?", "  what is   my BALANCE? "} {
		if _, err := c.ClassifySingle(ctx, text); err != nil {
			t.Fatalf("ClassifySingle() error = %v", err)
		}
	}
	if next.single != 1 {
		t.Fatalf("expected one upstream call, got %d", next.single)
	}

	first, _ := c.ClassifyMulti(ctx, "x and y")
	first.SubRequests[0].Text = "mutated"
	second, _ := c.ClassifyMulti(ctx, "x and y")
	if next.multi != 1 {
		t.Fatalf("expected one upstream multi call, got %d", next.multi)
	}
	if second.SubRequests[0].Text != "a" {
		t.Fatalf("cached candidate was mutated through a returned copy")
	}

	hits, misses := c.Stats()
	if hits != 2 || misses != 2 {
		t.Fatalf("Stats() = %d hits, %d misses", hits, misses)
	}
}

func TestCachedClassifierDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	next := &countingClassifier{err: errors.New("boom")}
	c, err := NewCachedClassifier(next, 0)
	if err != nil {
		t.Fatalf("NewCachedClassifier() error = %v", err)
	}

	ctx := context.Background()
	if _, err := c.ClassifySingle(ctx, "deposit"); err == nil {
		t.Fatal("expected error")
	}
	next.err = nil
	got, err := c.ClassifySingle(ctx, "deposit")
	if err != nil || got.Category != contractx.CategoryBalance {
		t.Fatalf("ClassifySingle() = %#v, %v", got, err)
	}
	if next.single != 2 {
		t.Fatalf("expected retry after error, got %d calls", next.single)
	}

	if _, err := NewCachedClassifier(nil, 1); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
