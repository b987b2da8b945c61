package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicClient calls the Messages API through the official SDK. There is
// no JSON response mode; prompts ask for a bare JSON object instead.
type anthropicClient struct {
	client  anthropic.Client
	cfg     Config
	pricing Pricing
}

func newAnthropicClient(cfg Config, pricing Pricing) *anthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.Endpoint, "/") + "/"),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	}
	return &anthropicClient{
		client:  anthropic.NewClient(opts...),
		cfg:     cfg,
		pricing: pricing,
	}
}

func (c *anthropicClient) Complete(ctx context.Context, r Request) (*Response, error) {
	maxTokens := c.cfg.MaxTokens
	if r.MaxTokens > 0 {
		maxTokens = r.MaxTokens
	}
	temp := c.cfg.Temperature
	if r.Temperature != nil {
		temp = *r.Temperature
	}

	var blocks []anthropic.ContentBlockParamUnion
	if len(r.Image) > 0 {
		mime := r.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		blocks = append(blocks, anthropic.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(r.Image)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(r.Prompt))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.Model),
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		Temperature: anthropic.Float(temp),
	}
	if r.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: r.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("llm: anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, ErrEmptyResponse
	}

	u := Usage{InputTokens: int(msg.Usage.InputTokens), OutputTokens: int(msg.Usage.OutputTokens)}
	u.CostUSD = c.pricing.Cost(c.cfg.Model, u.InputTokens, u.OutputTokens)
	return &Response{Text: text.String(), Model: string(msg.Model), Usage: u}, nil
}
