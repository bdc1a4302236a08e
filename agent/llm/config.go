package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	geminix "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/gemini"
	openrouterx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/openrouter"
)

type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderGemini     Provider = "gemini"
)

// Role names what a chat model is used for, so each use can get its own model.
type Role string

const (
	RoleClassifier Role = "classifier"
	RoleDocument   Role = "document"
	RoleSummarizer Role = "summarizer"
	RoleEvaluator  Role = "evaluator"
)

type Config struct {
	Provider           string        `envconfig:"PROVIDER" split_words:"true" default:"openrouter"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ClassifierModel       string  `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	DocumentModel         string  `envconfig:"DOCUMENT_MODEL" split_words:"true"`
	SummarizerModel       string  `envconfig:"SUMMARIZER_MODEL" split_words:"true"`
	EvaluatorModel        string  `envconfig:"EVALUATOR_MODEL" split_words:"true"`
	ClassifierTemperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" split_words:"true" default:"0"`
	DocumentTemperature   float32 `envconfig:"DOCUMENT_TEMPERATURE" split_words:"true" default:"-1"`
	SummarizerTemperature float32 `envconfig:"SUMMARIZER_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	switch c.provider() {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("%w: unsupported llm provider %q", contractx.ErrValidation, c.Provider)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) provider() Provider {
	return Provider(strings.ToLower(strings.TrimSpace(c.Provider)))
}

// modelFor resolves the model name and temperature of a role. A negative role
// temperature means "use the default".
func (c Config) modelFor(role Role) (string, float32) {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(name string, t float32) {
		if v := strings.TrimSpace(name); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch role {
	case RoleClassifier:
		override(c.ClassifierModel, c.ClassifierTemperature)
	case RoleDocument:
		override(c.DocumentModel, c.DocumentTemperature)
	case RoleSummarizer:
		override(c.SummarizerModel, c.SummarizerTemperature)
	case RoleEvaluator:
		override(c.EvaluatorModel, -1)
	}
	return modelName, temp
}

func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName, temp := c.modelFor(role)
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

func (c Config) GeminiFor(role Role) geminix.Config {
	modelName, temp := c.modelFor(role)
	base := strings.TrimSpace(c.BaseURL)
	if strings.Contains(base, "openrouter.ai") {
		base = ""
	}
	return geminix.Config{
		BaseURL:     base,
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       modelName,
		MaxTokens:   c.MaxCompletionToken,
		Temperature: temp,
	}
}

// NewChatModel builds the chat model for a role on the configured provider.
func (c Config) NewChatModel(ctx context.Context, role Role) (model.BaseChatModel, error) {
	var builder interface {
		New(ctx context.Context) (model.ToolCallingChatModel, error)
	}
	switch c.provider() {
	case ProviderGemini:
		cfg := c.GeminiFor(role)
		builder = &cfg
	default:
		cfg := c.OpenRouterFor(role)
		builder = &cfg
	}

	m, err := builder.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
	}
	return m, nil
}
