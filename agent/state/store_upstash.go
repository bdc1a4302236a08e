package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const upstashMaxReplyBytes = 2 << 20

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	TTL     time.Duration `envconfig:"TTL" split_words:"true" default:"30m"`
}

// UpstashRedisStore keeps Carry in Upstash Redis through its REST endpoint.
// Every command is a JSON array POSTed to the database URL.
type UpstashRedisStore struct {
	endpoint  string
	token     string
	client    *http.Client
	keyPrefix string
	ttl       time.Duration
}

type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		if p := strings.TrimSpace(prefix); p != "" {
			s.keyPrefix = p
		}
	}
}

// WithTTL overrides the expiry of saved carries. Zero keeps them until deleted.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) { s.ttl = ttl }
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) { s.client = client }
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if endpoint == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid upstash redis url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	s := &UpstashRedisStore{
		endpoint:  endpoint,
		token:     token,
		keyPrefix: defaultStoreKeyPrefix,
		ttl:       defaultStoreTTL,
	}
	if cfg.TTL > 0 {
		s.ttl = cfg.TTL
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	if s.client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		s.client = &http.Client{Timeout: timeout}
	}
	return s, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, sessionID string) (Carry, error) {
	key, err := s.key(sessionID)
	if err != nil {
		return Carry{}, err
	}
	result, err := s.command(ctx, "GET", key)
	if err != nil {
		return Carry{}, err
	}
	if len(result) == 0 || string(result) == "null" {
		return Carry{}, ErrStateNotFound
	}

	// GET replies with the stored value as a JSON string.
	var stored string
	if err := json.Unmarshal(result, &stored); err != nil {
		return Carry{}, fmt.Errorf("decode carry payload: %w", err)
	}
	return decodeCarry([]byte(stored))
}

func (s *UpstashRedisStore) Save(ctx context.Context, sessionID string, carry Carry) error {
	if !carry.Awaiting() {
		return s.Delete(ctx, sessionID)
	}
	key, err := s.key(sessionID)
	if err != nil {
		return err
	}
	payload, err := encodeCarry(carry)
	if err != nil {
		return err
	}

	args := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		args = append(args, "EX", ttlSeconds(s.ttl))
	}
	_, err = s.command(ctx, args...)
	return err
}

func (s *UpstashRedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.key(sessionID)
	if err != nil {
		return err
	}
	_, err = s.command(ctx, "DEL", key)
	return err
}

func (s *UpstashRedisStore) key(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	return carryKey(s.keyPrefix, sessionID), nil
}

// command runs one Redis command and returns the raw "result" field.
func (s *UpstashRedisStore) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal upstash command: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstash request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstash %v: %w", args[0], err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, upstashMaxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("read upstash reply: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("upstash %v: http %d: %s", args[0], resp.StatusCode, bytes.TrimSpace(raw))
	}

	var reply struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("decode upstash reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("upstash %v: %s", args[0], reply.Error)
	}
	return bytes.TrimSpace(reply.Result), nil
}
