// Package openai adapts the Chat Completions API using a json_schema response format.
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"hearth/internal/generation/providers"
	"hearth/internal/generation/schema"
)

const DefaultBaseURL = "https://api.openai.com"

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	HTTPClient providers.HTTPDoer
}

type Adapter struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	client    providers.HTTPDoer
}

func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = providers.NewHTTPClient(cfg.Timeout)
	}
	return &Adapter{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		client:    client,
	}
}

func (a *Adapter) Provider() providers.Provider {
	return providers.ProviderOpenAI
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaFormat `json:"json_schema"`
}

type request struct {
	Model               string         `json:"model"`
	Messages            []chatMessage  `json:"messages"`
	ResponseFormat      responseFormat `json:"response_format"`
	MaxCompletionTokens int            `json:"max_completion_tokens,omitempty"`
	Temperature         *float64       `json:"temperature,omitempty"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
			Refusal *string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

func (a *Adapter) Generate(ctx context.Context, system, user string, s *schema.Schema, opts providers.ModelOptions) providers.Result {
	p := a.Provider()
	if s == nil {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorInvalidRequest, p, "output schema is required", nil)}
	}

	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	body := request{
		Model:    a.model,
		Messages: messages,
		ResponseFormat: responseFormat{
			Type:       "json_schema",
			JSONSchema: jsonSchemaFormat{Name: "result", Schema: s.Document()},
		},
		MaxCompletionTokens: a.maxTokens,
		Temperature:         opts.Temperature,
	}
	if opts.Model != "" {
		body.Model = opts.Model
	}
	if opts.MaxTokens > 0 {
		body.MaxCompletionTokens = opts.MaxTokens
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+a.apiKey)

	raw, perr := providers.PostJSON(ctx, a.client, p, a.baseURL+"/v1/chat/completions", header, body)
	if perr != nil {
		return providers.Rejected{Err: perr}
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorBadData, p, "failed to parse response", err)}
	}
	if len(resp.Choices) == 0 {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorBadData, p, "response has no choices", nil)}
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != nil && *choice.Message.Refusal != "" {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorRefused, p, *choice.Message.Refusal, nil)}
	}
	if choice.FinishReason == "length" {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorBadData, p, "output truncated at max tokens", nil)}
	}
	if choice.Message.Content == nil {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorBadData, p, "response has no content", nil)}
	}

	usage := providers.NewTokenUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return providers.Conform(p, s, []byte(*choice.Message.Content), usage)
}

var _ providers.Adapter = (*Adapter)(nil)
