// Package providers defines the contract every generation backend adapter
// implements and the closed set of backends the router can dispatch to.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"hearth/internal/generation/schema"
)

// Provider enumerates the supported generation backends. The zero value means
// "no explicit choice" and resolves to the configured default.
type Provider uint8

const (
	ProviderUnspecified Provider = iota
	ProviderAnthropic
	ProviderOpenAI
	ProviderGemini
)

// All lists every concrete provider in dispatch order.
var All = []Provider{ProviderAnthropic, ProviderOpenAI, ProviderGemini}

func (p Provider) String() string {
	switch p {
	case ProviderAnthropic:
		return "anthropic"
	case ProviderOpenAI:
		return "openai"
	case ProviderGemini:
		return "gemini"
	default:
		return "unspecified"
	}
}

// ParseProvider converts a configuration value into a Provider.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anthropic":
		return ProviderAnthropic, nil
	case "openai":
		return ProviderOpenAI, nil
	case "gemini":
		return ProviderGemini, nil
	default:
		return ProviderUnspecified, fmt.Errorf("unknown provider %q", s)
	}
}

// ModelOptions tunes a single call. Zero fields fall back to adapter defaults.
type ModelOptions struct {
	Model       string
	MaxTokens   int
	Temperature *float64
}

// TokenUsage is what the backend reports for one call.
type TokenUsage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// NewTokenUsage derives the total from its parts.
func NewTokenUsage(prompt, completion int64) TokenUsage {
	return TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}
}

// Result is the outcome of one adapter call: either Generated or Rejected.
type Result interface {
	result()
}

// Generated carries output that already conforms to the requested schema.
type Generated struct {
	Value json.RawMessage
	Usage TokenUsage
}

// Rejected carries a normalized failure. No vendor error type crosses this boundary.
type Rejected struct {
	Err *ProviderError
}

func (Generated) result() {}
func (Rejected) result()  {}

// Adapter is implemented once per Provider. Implementations are stateless and
// touch nothing beyond their network call.
type Adapter interface {
	Provider() Provider
	Generate(ctx context.Context, system, user string, s *schema.Schema, opts ModelOptions) Result
}

// Conform validates raw output against s and builds the matching Result.
func Conform(p Provider, s *schema.Schema, raw []byte, usage TokenUsage) Result {
	if err := s.Conform(raw); err != nil {
		return Rejected{Err: NewProviderError(ErrorBadData, p, "output did not match schema", err)}
	}
	return Generated{Value: json.RawMessage(raw), Usage: usage}
}
