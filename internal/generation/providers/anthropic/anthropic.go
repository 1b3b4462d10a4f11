// Package anthropic adapts the Messages API. Structured output is forced by
// declaring the schema as the input of a single tool and requiring that tool.
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"hearth/internal/generation/providers"
	"hearth/internal/generation/schema"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	toolName         = "emit_result"
	defaultMaxTokens = 4096
)

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
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
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
	return providers.ProviderAnthropic
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type request struct {
	Model       string     `json:"model"`
	MaxTokens   int        `json:"max_tokens"`
	System      string     `json:"system,omitempty"`
	Messages    []message  `json:"messages"`
	Tools       []tool     `json:"tools"`
	ToolChoice  toolChoice `json:"tool_choice"`
	Temperature *float64   `json:"temperature,omitempty"`
}

type response struct {
	Content []struct {
		Type  string          `json:"type"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

func (a *Adapter) Generate(ctx context.Context, system, user string, s *schema.Schema, opts providers.ModelOptions) providers.Result {
	p := a.Provider()
	if s == nil {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorInvalidRequest, p, "output schema is required", nil)}
	}

	body := request{
		Model:     firstNonEmpty(opts.Model, a.model),
		MaxTokens: firstPositive(opts.MaxTokens, a.maxTokens),
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
		Tools: []tool{{
			Name:        toolName,
			Description: "Return the result as " + s.Name(),
			InputSchema: s.Document(),
		}},
		ToolChoice:  toolChoice{Type: "tool", Name: toolName},
		Temperature: opts.Temperature,
	}

	header := http.Header{}
	header.Set("x-api-key", a.apiKey)
	header.Set("anthropic-version", apiVersion)

	raw, perr := providers.PostJSON(ctx, a.client, p, a.baseURL+"/v1/messages", header, body)
	if perr != nil {
		return providers.Rejected{Err: perr}
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorBadData, p, "failed to parse response", err)}
	}
	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == toolName {
			usage := providers.NewTokenUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
			return providers.Conform(p, s, block.Input, usage)
		}
	}
	if resp.StopReason == "refusal" {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorRefused, p, "model refused the request", nil)}
	}
	return providers.Rejected{Err: providers.NewProviderError(providers.ErrorBadData, p, "response has no tool output (stop_reason="+resp.StopReason+")", nil)}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstPositive(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

var _ providers.Adapter = (*Adapter)(nil)
