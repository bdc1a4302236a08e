package qstash

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
)

func TestPublishTurnEvent(t *testing.T) {
	t.Parallel()

	var (
		gotPath  string
		gotAuth  string
		gotRetry string
		gotEvent contractx.TurnEvent
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRetry = r.Header.Get("Upstash-Retries")
		_ = json.NewDecoder(r.Body).Decode(&gotEvent)
		_, _ = w.Write([]byte(`{"messageId":"msg_1"}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL, Token: "tok", Retries: 2})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	sink := NewTurnSink(client, "https://example.com/turns")
	event := contractx.TurnEvent{TurnID: "t-1", Text: "balance?", Reply: "Your current account balance is $1.00.", Path: []string{"router", "ledger"}}
	if err := sink.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if gotPath != "/v2/publish/https://example.com/turns" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer tok" || gotRetry != "2" {
		t.Fatalf("unexpected headers auth=%q retries=%q", gotAuth, gotRetry)
	}
	if gotEvent.TurnID != "t-1" || len(gotEvent.Path) != 2 {
		t.Fatalf("unexpected event %#v", gotEvent)
	}
}

func TestPublishErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer server.Close()

	client := MustNew(Config{URL: server.URL, Token: "bad"})
	_, err := client.Publish(context.Background(), "https://example.com/turns", map[string]string{"a": "b"})
	if err == nil || !strings.Contains(err.Error(), "invalid token") {
		t.Fatalf("expected invalid token error, got %v", err)
	}

	if _, err := client.Publish(context.Background(), " ", nil); err == nil {
		t.Fatal("expected error for empty destination")
	}
}

func TestConfigEnabled(t *testing.T) {
	t.Parallel()

	if (Config{Token: "t"}).Enabled() {
		t.Fatal("config without destination must be disabled")
	}
	if !(Config{Token: "t", Destination: "https://example.com"}).Enabled() {
		t.Fatal("config with token and destination must be enabled")
	}
	if _, err := NewClient(Config{URL: "::bad"}); err == nil {
		t.Fatal("expected error for invalid url")
	}
}
