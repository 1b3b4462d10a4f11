//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	jwttoken "hearth/internal/jwt_token"
	"hearth/internal/platform/config"
	id "hearth/pkg/domain"
)

const defaultOperatorToken = "e2e-operator-token"

// actor is a named caller with its own user id and bearer token.
type actor struct {
	userID id.UserID
	token  string
}

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	OperatorToken    string

	tokens   *jwttoken.JWTService
	server   *httptest.Server
	actors   map[string]*actor
	current  string
	tenantID string
}

// NewTestContext targets BASE_URL when set and an in-process server otherwise.
func NewTestContext() (*TestContext, error) {
	key := envOr("JWT_SIGNING_KEY", config.DevSigningKey)
	issuer := envOr("JWT_ISSUER", "hearth")

	tc := &TestContext{
		BaseURL:       os.Getenv("BASE_URL"),
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
		OperatorToken: envOr("OPERATOR_API_TOKEN", defaultOperatorToken),
		tokens:        jwttoken.NewJWTService(key, issuer, time.Hour),
		actors:        make(map[string]*actor),
	}
	if tc.BaseURL == "" {
		srv, err := startServer(key, issuer, tc.OperatorToken)
		if err != nil {
			return nil, fmt.Errorf("start in-process server: %w", err)
		}
		tc.server = srv
		tc.BaseURL = srv.URL
	}
	return tc, nil
}

// Close stops the in-process server, if any.
func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newActor registers a caller under name with a personal token.
func (tc *TestContext) newActor(name string) (*actor, error) {
	a := &actor{userID: id.UserID(uuid.New())}
	token, err := tc.tokens.GenerateAccessToken(a.userID, nil)
	if err != nil {
		return nil, err
	}
	a.token = token
	tc.actors[name] = a
	tc.current = name
	return a, nil
}

// bindTenant reissues the actor's token scoped to the scenario tenant.
func (tc *TestContext) bindTenant(a *actor) error {
	tenantID, err := id.ParseTenantID(tc.tenantID)
	if err != nil {
		return err
	}
	token, err := tc.tokens.GenerateAccessToken(a.userID, tenantID.Ref())
	if err != nil {
		return err
	}
	a.token = token
	return nil
}

// expand substitutes {tenant} in scenario paths.
func (tc *TestContext) expand(path string) string {
	return strings.ReplaceAll(path, "{tenant}", tc.tenantID)
}

// Do sends a request as the current actor and stores the response.
func (tc *TestContext) Do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+tc.expand(path), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a, ok := tc.actors[tc.current]; ok {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField walks a dotted path through the JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
		if data, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
	}
	return data, nil
}

// usageEvents decodes the events array of a /v1/usage response.
func (tc *TestContext) usageEvents() ([]map[string]any, error) {
	var body struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.Unmarshal(tc.LastResponseBody, &body); err != nil {
		return nil, fmt.Errorf("failed to parse usage response: %w", err)
	}
	return body.Events, nil
}
