//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"

	"github.com/prometheus/client_golang/prometheus"

	genHandler "hearth/internal/generation/handler"
	"hearth/internal/generation/providers"
	genRouter "hearth/internal/generation/router"
	"hearth/internal/generation/schema"
	jwttoken "hearth/internal/jwt_token"
	moduleHandler "hearth/internal/modules/handler"
	moduleService "hearth/internal/modules/service"
	"hearth/internal/modules/store/definition"
	"hearth/internal/modules/store/installation"
	"hearth/internal/platform/health"
	"hearth/internal/platform/logger"
	"hearth/internal/platform/metrics"
	tenantHandler "hearth/internal/tenant/handler"
	tenantService "hearth/internal/tenant/service"
	membershipstore "hearth/internal/tenant/store/membership"
	tenantstore "hearth/internal/tenant/store/tenant"
	httptransport "hearth/internal/transport/http"
	usageHandler "hearth/internal/usage/handler"
	"hearth/internal/usage/ledger"
	usagestore "hearth/internal/usage/store"
)

// stubAdapter answers every call with a fixed assistant reply.
type stubAdapter struct{}

func (stubAdapter) Provider() providers.Provider { return providers.ProviderAnthropic }

func (stubAdapter) Generate(_ context.Context, _, user string, s *schema.Schema, _ providers.ModelOptions) providers.Result {
	raw, err := json.Marshal(genHandler.AssistantReply{Text: "echo: " + user})
	if err != nil {
		return providers.Rejected{Err: providers.NewProviderError(providers.ErrorInternal, providers.ProviderAnthropic, "marshal", err)}
	}
	return providers.Conform(providers.ProviderAnthropic, s, raw, providers.NewTokenUsage(1200, 300))
}

// startServer assembles the same components as cmd/server on in-memory
// storage and serves them from an httptest server.
func startServer(signingKey, issuer, operatorToken string) (*httptest.Server, error) {
	ctx := context.Background()
	log := logger.Discard()
	reg := prometheus.NewRegistry()

	tenants := tenantService.NewTenantService(tenantstore.NewInMemory(), membershipstore.NewInMemory())

	usage := usagestore.NewInMemory()
	meter := ledger.New(usage, usage, ledger.WithLogger(log))

	registry := moduleService.NewRegistry(definition.NewInMemory(), installation.NewInMemory(), moduleService.WithLogger(log))
	catalog, err := genHandler.NewCatalog(genHandler.Builtin()...)
	if err != nil {
		return nil, err
	}
	for _, m := range catalog.Modules() {
		if _, err := registry.RegisterDefinition(ctx, m, m.String(), "1.0.0"); err != nil {
			return nil, fmt.Errorf("seed %s: %w", m, err)
		}
	}
	if _, err := registry.RegisterDefinition(ctx, "meals", "Meals", "1.0.0"); err != nil {
		return nil, fmt.Errorf("seed meals: %w", err)
	}

	gen, err := genRouter.New(providers.Set{Anthropic: stubAdapter{}}, providers.ProviderAnthropic, meter, genRouter.WithLogger(log))
	if err != nil {
		return nil, err
	}

	tokens := jwttoken.NewJWTService(signingKey, issuer, 0)
	modules := moduleHandler.New(registry, log)

	return httptest.NewServer(httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Sessions: jwttoken.NewSessionProvider(tokens, tenants),
		Health:   health.New("e2e"),
		Authenticated: []httptransport.Routes{
			tenantHandler.New(tenants, log),
			modules,
			usageHandler.New(meter, log),
			genHandler.New(gen, registry, catalog, log),
		},
		Operator:      modules,
		OperatorToken: operatorToken,
	})), nil
}
