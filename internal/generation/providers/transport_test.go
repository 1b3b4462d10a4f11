package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON(t *testing.T) {
	t.Run("returns body on success and forwards headers", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "v", in["k"])
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		h := http.Header{}
		h.Set("X-Api-Key", "secret")
		raw, perr := PostJSON(context.Background(), srv.Client(), ProviderAnthropic, srv.URL, h, map[string]string{"k": "v"})
		require.Nil(t, perr)
		assert.JSONEq(t, `{"ok":true}`, string(raw))
	})

	statusCases := []struct {
		status   int
		category ErrorCategory
	}{
		{http.StatusUnauthorized, ErrorAuthentication},
		{http.StatusForbidden, ErrorAuthentication},
		{http.StatusTooManyRequests, ErrorRateLimited},
		{http.StatusBadRequest, ErrorInvalidRequest},
		{http.StatusGatewayTimeout, ErrorTimeout},
		{http.StatusInternalServerError, ErrorProviderOutage},
		{529, ErrorProviderOutage},
	}
	for _, tc := range statusCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer srv.Close()

			_, perr := PostJSON(context.Background(), srv.Client(), ProviderOpenAI, srv.URL, nil, struct{}{})
			require.NotNil(t, perr)
			assert.Equal(t, tc.category, perr.Category)
			assert.Contains(t, perr.Message, "nope")
		})
	}

	t.Run("deadline is a timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, perr := PostJSON(ctx, srv.Client(), ProviderGemini, srv.URL, nil, struct{}{})
		require.NotNil(t, perr)
		assert.Equal(t, ErrorTimeout, perr.Category)
		assert.True(t, perr.Retryable)
	})

	t.Run("unreachable host is an outage", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, perr := PostJSON(context.Background(), http.DefaultClient, ProviderGemini, url, nil, struct{}{})
		require.NotNil(t, perr)
		assert.Equal(t, ErrorProviderOutage, perr.Category)
	})
}
