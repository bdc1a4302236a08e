package gemini

import (
	"context"
	"fmt"
	"strings"

	geminimodel "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

type Config struct {
	BaseURL     string  `envconfig:"BASE_URL" split_words:"true"`
	APIKey      string  `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model       string  `envconfig:"MODEL" split_words:"true" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"MAX_TOKENS" split_words:"true" default:"2000"`
	Temperature float32 `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
}

func NewClient(ctx context.Context, cfg Config) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions.BaseURL = base
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}

// New builds an eino chat model backed by the Gemini API.
func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	client, err := NewClient(ctx, *c)
	if err != nil {
		return nil, err
	}

	temperature := c.Temperature
	maxTokens := c.MaxTokens
	m, err := geminimodel.NewChatModel(ctx, &geminimodel.Config{
		Client:      client,
		Model:       strings.TrimSpace(c.Model),
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create chat model: %w", err)
	}
	return m, nil
}
