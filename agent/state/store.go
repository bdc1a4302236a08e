package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrStateNotFound  = errors.New("carry state not found")
	ErrInvalidSession = errors.New("session id is empty")
)

const (
	defaultStoreKeyPrefix = "bank:carry:"
	defaultStoreTTL       = 30 * time.Minute
)

// CarryStore keeps the cross-turn carry (a pending clarification) per session.
// Load returns ErrStateNotFound when nothing is pending. Saving a carry that is
// not awaiting anything removes the entry.
type CarryStore interface {
	Load(ctx context.Context, sessionID string) (Carry, error)
	Save(ctx context.Context, sessionID string, carry Carry) error
	Delete(ctx context.Context, sessionID string) error
}

func carryKey(prefix string, sessionID string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultStoreKeyPrefix
	}
	return prefix + strings.TrimSpace(sessionID)
}

// ttlSeconds rounds up so a sub-second ttl never becomes "no expiry".
func ttlSeconds(ttl time.Duration) int64 {
	secs := int64(ttl / time.Second)
	if ttl%time.Second != 0 {
		secs++
	}
	return max(secs, 1)
}

func encodeCarry(carry Carry) ([]byte, error) {
	payload, err := json.Marshal(carry)
	if err != nil {
		return nil, fmt.Errorf("marshal carry: %w", err)
	}
	return payload, nil
}

func decodeCarry(raw []byte) (Carry, error) {
	var carry Carry
	if err := json.Unmarshal(raw, &carry); err != nil {
		return Carry{}, fmt.Errorf("unmarshal carry: %w", err)
	}
	if !carry.Awaiting() {
		return Carry{}, ErrStateNotFound
	}
	if strings.TrimSpace(carry.Clarification.Question) == "" {
		return Carry{}, fmt.Errorf("%w: stored clarification has no question", ErrInvariant)
	}
	return carry, nil
}
