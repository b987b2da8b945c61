package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// openaiClient speaks the /v1/chat/completions format. This covers OpenAI
// itself and compatible servers (vLLM, Ollama, LiteLLM).
type openaiClient struct {
	endpoint string
	apiKey   string
	cfg      Config
	pricing  Pricing
	client   *http.Client
}

func newOpenAIClient(cfg Config, pricing Pricing) *openaiClient {
	return &openaiClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		cfg:      cfg,
		pricing:  pricing,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *openaiClient) Complete(ctx context.Context, r Request) (*Response, error) {
	body := chatRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	if r.MaxTokens > 0 {
		body.MaxTokens = r.MaxTokens
	}
	if r.Temperature != nil {
		body.Temperature = *r.Temperature
	}
	if r.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if r.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: r.System})
	}
	if len(r.Image) > 0 {
		mime := r.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		body.Messages = append(body.Messages, chatMessage{Role: "user", Content: []contentPart{
			{Type: "text", Text: r.Prompt},
			{Type: "image_url", ImageURL: &imageURL{
				URL:    "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(r.Image),
				Detail: "high",
			}},
		}})
	} else {
		body.Messages = append(body.Messages, chatMessage{Role: "user", Content: r.Prompt})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	url := c.endpoint + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("llm: HTTP %d from %s: %s", resp.StatusCode, url, string(respBody))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	model := out.Model
	if model == "" {
		model = c.cfg.Model
	}
	u := Usage{InputTokens: out.Usage.PromptTokens, OutputTokens: out.Usage.CompletionTokens}
	u.CostUSD = c.pricing.Cost(c.cfg.Model, u.InputTokens, u.OutputTokens)
	return &Response{Text: out.Choices[0].Message.Content, Model: model, Usage: u}, nil
}
