package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const maxResponseBytes = 8 << 20

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns the default client used by adapters. The timeout is
// a transport safeguard; callers cancel through ctx.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// PostJSON sends body to url and returns the raw body of a 2xx response.
// Every failure is classified into a ProviderError.
func PostJSON(ctx context.Context, client HTTPDoer, p Provider, url string, header http.Header, body any) ([]byte, *ProviderError) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p, "failed to create request", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, NewProviderError(ErrorTimeout, p, "request timeout", err)
		}
		return nil, NewProviderError(ErrorProviderOutage, p, "failed to execute request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, NewProviderError(ErrorTimeout, p, "timeout reading response", err)
		}
		return nil, NewProviderError(ErrorBadData, p, "failed to read response", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	return nil, classifyStatus(p, resp.StatusCode, raw)
}

func classifyStatus(p Provider, status int, body []byte) *ProviderError {
	msg := fmt.Sprintf("status %d", status)
	if vendor := vendorMessage(body); vendor != "" {
		msg += ": " + vendor
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewProviderError(ErrorAuthentication, p, msg, nil)
	case status == http.StatusTooManyRequests:
		return NewProviderError(ErrorRateLimited, p, msg, nil)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return NewProviderError(ErrorTimeout, p, msg, nil)
	case status >= 500:
		return NewProviderError(ErrorProviderOutage, p, msg, nil)
	case status >= 400:
		return NewProviderError(ErrorInvalidRequest, p, msg, nil)
	default:
		return NewProviderError(ErrorInternal, p, msg, nil)
	}
}

// vendorMessage extracts error.message, the shape all supported vendors use.
func vendorMessage(body []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Error.Message
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
