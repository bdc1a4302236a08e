package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
)

func newRecordingServer(t *testing.T, reply string, got *[][]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("unexpected authorization header: %q", r.Header.Get("Authorization"))
		}
		var cmd []any
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			t.Errorf("decode command: %v", err)
		}
		*got = append(*got, cmd)
		fmt.Fprint(w, reply)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestUpstashStore(t *testing.T, server *httptest.Server, opts ...StoreOption) *UpstashRedisStore {
	t.Helper()
	opts = append([]StoreOption{WithHTTPClient(server.Client())}, opts...)
	store, err := NewUpstashRedisStore(UpstashRedisConfig{URL: server.URL, Token: "token"}, opts...)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	return store
}

func TestUpstashRedisStoreKey(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{keyPrefix: "bank:carry:"}
	got, err := store.key(" abc ")
	if err != nil {
		t.Fatalf("key() error = %v", err)
	}
	if got != "bank:carry:abc" {
		t.Fatalf("key() = %q, want %q", got, "bank:carry:abc")
	}

	_, err = store.key("   ")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("key() error = %v, want ErrInvalidSession", err)
	}
}

func TestTTLSecondsRoundsUp(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]int64{
		90 * time.Second:        90,
		1500 * time.Millisecond: 2,
		time.Millisecond:        1,
	}
	for ttl, want := range cases {
		if got := ttlSeconds(ttl); got != want {
			t.Fatalf("ttlSeconds(%v) = %d, want %d", ttl, got, want)
		}
	}
}

func TestUpstashRedisStoreSavePendingClarification(t *testing.T) {
	t.Parallel()

	var commands [][]any
	server := newRecordingServer(t, `{"result":"OK"}`, &commands)
	store := newTestUpstashStore(t, server, WithTTL(90*time.Second), WithKeyPrefix("test:"))

	carry := Carry{Clarification: &PendingClarification{
		Category: contractx.CategoryDeposit,
		Question: "How much?",
	}}
	if err := store.Save(context.Background(), "session-1", carry); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(commands) != 1 {
		t.Fatalf("expected one command, got %d", len(commands))
	}
	cmd := commands[0]
	if len(cmd) != 5 {
		t.Fatalf("unexpected command: %#v", cmd)
	}
	if cmd[0] != "SET" || cmd[1] != "test:session-1" {
		t.Fatalf("unexpected command head: %#v", cmd[:2])
	}
	if cmd[3] != "EX" || cmd[4] != float64(90) {
		t.Fatalf("unexpected ttl args: %#v", cmd[3:])
	}

	var stored Carry
	if err := json.Unmarshal([]byte(cmd[2].(string)), &stored); err != nil {
		t.Fatalf("stored payload is not a carry: %v", err)
	}
	if stored.Clarification == nil || stored.Clarification.Category != contractx.CategoryDeposit {
		t.Fatalf("unexpected stored carry: %#v", stored)
	}
}

func TestUpstashRedisStoreSaveClearCarryDeletes(t *testing.T) {
	t.Parallel()

	var commands [][]any
	server := newRecordingServer(t, `{"result":1}`, &commands)
	store := newTestUpstashStore(t, server)

	if err := store.Save(context.Background(), "session-2", Carry{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(commands) != 1 || commands[0][0] != "DEL" || commands[0][1] != "bank:carry:session-2" {
		t.Fatalf("expected DEL of carry key, got %#v", commands)
	}
}

func TestUpstashRedisStoreLoad(t *testing.T) {
	t.Parallel()

	payload, err := json.Marshal(Carry{Clarification: &PendingClarification{
		Category: contractx.CategoryWithdrawal,
		Question: "How much would you like to withdraw?",
	}})
	if err != nil {
		t.Fatalf("marshal carry: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("marshal encoded carry: %v", err)
	}

	var commands [][]any
	server := newRecordingServer(t, fmt.Sprintf(`{"result":%s}`, encoded), &commands)
	store := newTestUpstashStore(t, server)

	carry, err := store.Load(context.Background(), "session-3")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !carry.Awaiting() || carry.Clarification.Category != contractx.CategoryWithdrawal {
		t.Fatalf("unexpected carry: %#v", carry)
	}
	if commands[0][0] != "GET" || commands[0][1] != "bank:carry:session-3" {
		t.Fatalf("unexpected command: %#v", commands[0])
	}
}

func TestUpstashRedisStoreLoadMissing(t *testing.T) {
	t.Parallel()

	var commands [][]any
	server := newRecordingServer(t, `{"result":null}`, &commands)
	store := newTestUpstashStore(t, server)

	_, err := store.Load(context.Background(), "session-4")
	if !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
}

func TestUpstashRedisStoreErrorResponse(t *testing.T) {
	t.Parallel()

	var commands [][]any
	server := newRecordingServer(t, `{"error":"WRONGTYPE"}`, &commands)
	store := newTestUpstashStore(t, server)

	err := store.Delete(context.Background(), "session-5")
	if err == nil || !strings.Contains(err.Error(), "WRONGTYPE") {
		t.Fatalf("Delete() error = %v, want WRONGTYPE", err)
	}
}

func TestMemoryCarryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryCarryStore()
	ctx := context.Background()

	if _, err := store.Load(ctx, "s"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected ErrStateNotFound, got %v", err)
	}

	pending := &PendingClarification{Category: contractx.CategoryDeposit, Question: "How much?"}
	if err := store.Save(ctx, "s", Carry{Clarification: pending}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	pending.Question = "mutated"

	carry, err := store.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if carry.Clarification.Question != "How much?" {
		t.Fatalf("store must copy the clarification, got %q", carry.Clarification.Question)
	}

	if err := store.Save(ctx, "s", Carry{}); err != nil {
		t.Fatalf("Save(empty) error = %v", err)
	}
	if _, err := store.Load(ctx, "s"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("expected cleared carry, got %v", err)
	}
}
