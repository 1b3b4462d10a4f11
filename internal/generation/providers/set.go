package providers

// Set is the fixed dispatch table: one slot per Provider variant. A nil slot
// means the provider has no credentials configured.
type Set struct {
	Anthropic Adapter
	OpenAI    Adapter
	Gemini    Adapter
}

// Adapter returns the implementation for p.
func (s Set) Adapter(p Provider) (Adapter, error) {
	var a Adapter
	switch p {
	case ProviderAnthropic:
		a = s.Anthropic
	case ProviderOpenAI:
		a = s.OpenAI
	case ProviderGemini:
		a = s.Gemini
	default:
		return nil, NewProviderError(ErrorInvalidRequest, p, "unknown provider", nil)
	}
	if a == nil {
		return nil, NewProviderError(ErrorNotConfigured, p, "provider is not configured", nil)
	}
	return a, nil
}

// Configured lists the providers that have an adapter.
func (s Set) Configured() []Provider {
	var out []Provider
	for _, p := range All {
		if _, err := s.Adapter(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}
