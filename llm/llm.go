// Package llm provides the model clients used for text compliance analysis
// and multimodal visual verification.
//
// Two providers are supported: any OpenAI-compatible chat completions
// server, and Anthropic through its official SDK. Both report token usage
// and a USD cost estimate computed from the Pricing table.
//
// Usage:
//
//	client, err := llm.New(llm.Config{
//	    Provider: "openai",
//	    Endpoint: "https://api.openai.com",
//	    Model:    "gpt-4o",
//	    APIKeyEnv: "OPENAI_API_KEY",
//	})
//	resp, err := client.Complete(ctx, llm.Request{System: sys, Prompt: prompt, JSON: true})
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Request is one completion call.
type Request struct {
	// Operation labels the call in the usage log ("text_analysis", "visual_verification").
	Operation string
	System    string
	Prompt    string

	// Image is an optional PNG/JPEG attached to the user message.
	Image     []byte
	ImageMIME string

	// JSON asks the provider for a JSON object response where supported.
	JSON bool

	// MaxTokens and Temperature override the client defaults when set.
	MaxTokens   int
	Temperature *float64
}

// Usage is the token accounting of one call.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Total returns input plus output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Response is a completed call.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Client completes prompts.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ErrEmptyResponse is returned when the provider answered with no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Config configures a model client.
type Config struct {
	// Provider is "openai" (default, any compatible server) or "anthropic".
	Provider string `json:"provider" yaml:"provider"`

	// Endpoint is the API base URL. Defaults per provider.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// APIKey is used as-is; APIKeyEnv names an environment variable to read
	// it from when APIKey is empty.
	APIKey    string `json:"-" yaml:"api_key"`
	APIKeyEnv string `json:"api_key_env" yaml:"api_key_env"`

	Model       string  `json:"model" yaml:"model"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Timeout per HTTP request. Default: 120s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Pricing overrides or extends DefaultPricing, keyed by model.
	Pricing map[string]Price `json:"pricing,omitempty" yaml:"pricing"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

func (c *Config) defaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Endpoint == "" {
		switch c.Provider {
		case ProviderAnthropic:
			c.Endpoint = "https://api.anthropic.com"
		default:
			c.Endpoint = "https://api.openai.com"
		}
	}
	if c.APIKey == "" && c.APIKeyEnv != "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4000
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New builds the client for cfg.Provider.
func New(cfg Config) (Client, error) {
	cfg.defaults()
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: model is required")
	}
	pricing := DefaultPricing().With(cfg.Pricing)
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg, pricing), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm: anthropic provider needs an API key")
		}
		return newAnthropicClient(cfg, pricing), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

type checkIDKey struct{}

// WithCheckID tags ctx so recorded calls can be tied to a compliance check.
func WithCheckID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, checkIDKey{}, id)
}

// CheckIDFromContext returns the check ID set by WithCheckID.
func CheckIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(checkIDKey{}).(string)
	return id
}
