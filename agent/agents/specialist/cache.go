package specialist

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
)

const DefaultCacheSize = 256

// CachedClassifier memoises classifier results by normalised text. Failed
// classifications are not cached.
type CachedClassifier struct {
	next   contractx.Classifier
	single *lru.Cache[string, contractx.Intent]
	multi  *lru.Cache[string, contractx.DecompositionCandidate]

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCachedClassifier(next contractx.Classifier, size int) (*CachedClassifier, error) {
	if next == nil {
		return nil, fmt.Errorf("%w: classifier is required", contractx.ErrConfiguration)
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	single, err := lru.New[string, contractx.Intent](size)
	if err != nil {
		return nil, fmt.Errorf("create single cache: %w", err)
	}
	multi, err := lru.New[string, contractx.DecompositionCandidate](size)
	if err != nil {
		return nil, fmt.Errorf("create multi cache: %w", err)
	}
	return &CachedClassifier{next: next, single: single, multi: multi}, nil
}

func (c *CachedClassifier) ClassifySingle(ctx context.Context, text string) (contractx.Intent, error) {
	key := cacheKey(text)
	if intent, ok := c.single.Get(key); ok {
		c.hits.Add(1)
		return intent, nil
	}
	c.misses.Add(1)

	intent, err := c.next.ClassifySingle(ctx, text)
	if err != nil {
		return contractx.Intent{}, err
	}
	c.single.Add(key, intent)
	return intent, nil
}

func (c *CachedClassifier) ClassifyMulti(ctx context.Context, text string) (contractx.DecompositionCandidate, error) {
	key := cacheKey(text)
	if candidate, ok := c.multi.Get(key); ok {
		c.hits.Add(1)
		return cloneCandidate(candidate), nil
	}
	c.misses.Add(1)

	candidate, err := c.next.ClassifyMulti(ctx, text)
	if err != nil {
		return contractx.DecompositionCandidate{}, err
	}
	c.multi.Add(key, cloneCandidate(candidate))
	return candidate, nil
}

// Stats returns cache hits and misses across both classifications.
func (c *CachedClassifier) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func cacheKey(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func cloneCandidate(c contractx.DecompositionCandidate) contractx.DecompositionCandidate {
	if c.SubRequests != nil {
		c.SubRequests = append([]contractx.SubRequest(nil), c.SubRequests...)
	}
	return c
}
