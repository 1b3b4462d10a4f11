package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/generation/providers"
	"hearth/internal/generation/schema"
)

type budget struct {
	Category string  `json:"category" validate:"required"`
	Amount   float64 `json:"amount" validate:"gte=0"`
}

func serve(t *testing.T, status int, body string, inspect func(*testing.T, request)) *Adapter {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if inspect != nil {
			inspect(t, req)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-test", MaxTokens: 512, HTTPClient: srv.Client()})
}

func TestGenerate(t *testing.T) {
	s := schema.MustOf[budget]()

	t.Run("success", func(t *testing.T) {
		a := serve(t, http.StatusOK, `{
			"choices":[{"message":{"content":"{\"category\":\"groceries\",\"amount\":120.5}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":150,"completion_tokens":75,"total_tokens":225}
		}`, func(t *testing.T, req request) {
			assert.Equal(t, "gpt-test", req.Model)
			assert.Equal(t, 512, req.MaxCompletionTokens)
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "json_schema", req.ResponseFormat.Type)
			assert.Equal(t, "object", req.ResponseFormat.JSONSchema.Schema["type"])
		})

		res := a.Generate(context.Background(), "you budget", "split costs", s, providers.ModelOptions{})
		gen, ok := res.(providers.Generated)
		require.True(t, ok, "got %#v", res)
		assert.JSONEq(t, `{"category":"groceries","amount":120.5}`, string(gen.Value))
		assert.Equal(t, int64(225), gen.Usage.TotalTokens)
	})

	t.Run("no system prompt sends only user message", func(t *testing.T) {
		a := serve(t, http.StatusOK, `{"choices":[{"message":{"content":"{\"category\":\"x\",\"amount\":1}"}}]}`,
			func(t *testing.T, req request) {
				require.Len(t, req.Messages, 1)
				assert.Equal(t, "user", req.Messages[0].Role)
			})
		_, ok := a.Generate(context.Background(), "", "x", s, providers.ModelOptions{}).(providers.Generated)
		assert.True(t, ok)
	})

	rejections := []struct {
		name     string
		status   int
		body     string
		category providers.ErrorCategory
	}{
		{"refusal", http.StatusOK, `{"choices":[{"message":{"content":null,"refusal":"I can't help"}}]}`, providers.ErrorRefused},
		{"truncated", http.StatusOK, `{"choices":[{"message":{"content":"{\"cat"},"finish_reason":"length"}]}`, providers.ErrorBadData},
		{"no choices", http.StatusOK, `{"choices":[]}`, providers.ErrorBadData},
		{"schema mismatch", http.StatusOK, `{"choices":[{"message":{"content":"{\"amount\":-3}"}}]}`, providers.ErrorBadData},
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key"}}`, providers.ErrorAuthentication},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, providers.ErrorRateLimited},
	}
	for _, tc := range rejections {
		t.Run(tc.name, func(t *testing.T) {
			a := serve(t, tc.status, tc.body, nil)
			rej, ok := a.Generate(context.Background(), "", "x", s, providers.ModelOptions{}).(providers.Rejected)
			require.True(t, ok)
			assert.Equal(t, tc.category, rej.Err.Category)
			assert.Equal(t, providers.ProviderOpenAI, rej.Err.Provider)
		})
	}
}
