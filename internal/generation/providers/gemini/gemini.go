// Package gemini adapts the generateContent API with a JSON response schema.
package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hearth/internal/generation/providers"
	"hearth/internal/generation/schema"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

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
	return providers.ProviderGemini
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType   string         `json:"responseMimeType"`
	ResponseJSONSchema map[string]any `json:"responseJsonSchema"`
	MaxOutputTokens    int            `json:"maxOutputTokens,omitempty"`
	Temperature        *float64       `json:"temperature,omitempty"`
}

type request struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type response struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (a *Adapter) Generate(ctx context.Context, system, user string, s *schema.Schema, opts providers.ModelOptions) providers.Result {
	p := a.Provider()
	if s == nil {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorInvalidRequest, p, "output schema is required", nil)}
	}

	model := a.model
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := a.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	body := request{
		Contents: []content{{Role: "user", Parts: []part{{Text: user}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType:   "application/json",
			ResponseJSONSchema: s.Document(),
			MaxOutputTokens:    maxTokens,
			Temperature:        opts.Temperature,
		},
	}
	if system != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	header := http.Header{}
	header.Set("x-goog-api-key", a.apiKey)
	endpoint := a.baseURL + "/v1beta/models/" + url.PathEscape(model) + ":generateContent"

	raw, perr := providers.PostJSON(ctx, a.client, p, endpoint, header, body)
	if perr != nil {
		return providers.Rejected{Err: perr}
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorBadData, p, "failed to parse response", err)}
	}
	if resp.PromptFeedback.BlockReason != "" {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorRefused, p, "prompt blocked: "+resp.PromptFeedback.BlockReason, nil)}
	}
	if len(resp.Candidates) == 0 {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorBadData, p, "response has no candidates", nil)}
	}

	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT", "BLOCKLIST":
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorRefused, p, "generation stopped: "+cand.FinishReason, nil)}
	case "MAX_TOKENS":
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorBadData, p, "output truncated at max tokens", nil)}
	}

	var text strings.Builder
	for _, pt := range cand.Content.Parts {
		text.WriteString(pt.Text)
	}
	usage := providers.NewTokenUsage(resp.UsageMetadata.PromptTokenCount, resp.UsageMetadata.CandidatesTokenCount)
	return providers.Conform(p, s, []byte(text.String()), usage)
}

var _ providers.Adapter = (*Adapter)(nil)
