package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	genHandler "hearth/internal/generation/handler"
	genMetrics "hearth/internal/generation/metrics"
	"hearth/internal/generation/providers"
	"hearth/internal/generation/providers/anthropic"
	"hearth/internal/generation/providers/gemini"
	"hearth/internal/generation/providers/openai"
	genRouter "hearth/internal/generation/router"
	jwttoken "hearth/internal/jwt_token"
	moduleHandler "hearth/internal/modules/handler"
	moduleMetrics "hearth/internal/modules/metrics"
	moduleService "hearth/internal/modules/service"
	moduleCache "hearth/internal/modules/store/cache"
	"hearth/internal/modules/store/definition"
	"hearth/internal/modules/store/installation"
	"hearth/internal/platform/config"
	"hearth/internal/platform/database"
	"hearth/internal/platform/health"
	httpMetrics "hearth/internal/platform/metrics"
	"hearth/internal/platform/redis"
	"hearth/internal/platform/tracer"
	tenantHandler "hearth/internal/tenant/handler"
	tenantService "hearth/internal/tenant/service"
	membershipstore "hearth/internal/tenant/store/membership"
	tenantstore "hearth/internal/tenant/store/tenant"
	httptransport "hearth/internal/transport/http"
	usageHandler "hearth/internal/usage/handler"
	"hearth/internal/usage/ledger"
	usageMetrics "hearth/internal/usage/metrics"
	usagestore "hearth/internal/usage/store"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/migrations"
	txcontext "hearth/pkg/platform/tx"
)

type application struct {
	handler http.Handler
	db      *database.Pool
	redis   *redis.Client
}

func (a *application) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// stores groups the persistence backends. Everything is in memory unless
// DATABASE_URL is set.
type stores struct {
	tx            txcontext.Runner
	tenants       tenantService.TenantStore
	memberships   tenantService.MembershipStore
	usage         usageStore
	definitions   moduleService.DefinitionStore
	installations moduleService.InstallationStore
}

type usageStore interface {
	usagestore.Appender
	usagestore.Reader
}

func newStores(db *sql.DB) stores {
	if db == nil {
		return stores{
			tx:            txcontext.NewInMemory(),
			tenants:       tenantstore.NewInMemory(),
			memberships:   membershipstore.NewInMemory(),
			usage:         usagestore.NewInMemory(),
			definitions:   definition.NewInMemory(),
			installations: installation.NewInMemory(),
		}
	}
	return stores{
		tx:            database.NewPostgresTx(db),
		tenants:       tenantstore.NewPostgres(db),
		memberships:   membershipstore.NewPostgres(db),
		usage:         usagestore.NewPostgres(db),
		definitions:   definition.NewPostgres(db),
		installations: installation.NewPostgres(db),
	}
}

func build(ctx context.Context, cfg *config.Server, log *slog.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*application, error) {
	app := &application{}
	healthHandler := health.New(cfg.Environment)

	pool, err := database.New(ctx, database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	var db *sql.DB
	if pool != nil {
		app.db = pool
		db = pool.DB()
		healthHandler.RegisterCheck("postgres", pool.Health)
		if err := pool.RegisterMetrics(reg); err != nil {
			app.Close()
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, db, migrations.FS); err != nil {
				app.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			log.Info("migrations applied")
		}
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_URL not set - using in-memory storage")
	}
	st := newStores(db)

	app.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		app.Close()
		return nil, err
	}
	if app.redis != nil {
		healthHandler.RegisterOptionalCheck("redis", app.redis.Health)
	}

	trace := tracer.NewOTel()

	tenants := tenantService.NewTenantService(st.tenants, st.memberships,
		tenantService.WithLogger(log),
		tenantService.WithStoreTx(st.tx),
	)

	usageLedger := ledger.New(st.usage, st.usage,
		ledger.WithLogger(log),
		ledger.WithMetrics(usageMetrics.New(reg)),
		ledger.WithTracer(trace),
	)

	registryOpts := []moduleService.Option{
		moduleService.WithLogger(log),
		moduleService.WithStoreTx(st.tx),
		moduleService.WithMetrics(moduleMetrics.New(reg)),
		moduleService.WithTracer(trace),
	}
	if app.redis != nil {
		registryOpts = append(registryOpts, moduleService.WithEnabledCache(moduleCache.NewRedis(app.redis.Client, cfg.Modules.CacheTTL)))
	}
	registry := moduleService.NewRegistry(st.definitions, st.installations, registryOpts...)

	catalog, err := genHandler.NewCatalog(genHandler.Builtin()...)
	if err != nil {
		app.Close()
		return nil, err
	}
	if err := seedDefinitions(ctx, registry, cfg.Modules.Seed, catalog.Modules(), log); err != nil {
		app.Close()
		return nil, err
	}

	adapters := newProviderSet(cfg.Gen)
	healthHandler.SetDetail("providers", providerNames(adapters.Configured()))
	defaultProvider, err := providers.ParseProvider(cfg.Gen.DefaultProvider)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("DEFAULT_PROVIDER: %w", err)
	}
	generator, err := genRouter.New(adapters, defaultProvider, usageLedger,
		genRouter.WithLogger(log),
		genRouter.WithMetrics(genMetrics.New(reg)),
		genRouter.WithTracer(trace),
		genRouter.WithCost(genRouter.PerThousandTokens(cfg.Gen.UnitsPer1KTokens)),
	)
	if err != nil {
		app.Close()
		return nil, err
	}

	// the server only validates tokens, so no TTL
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, 0)
	modules := moduleHandler.New(registry, log)

	app.handler = httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Metrics:  httpMetrics.New(reg),
		Gatherer: gatherer,
		Sessions: jwttoken.NewSessionProvider(tokens, tenants),
		Health:   healthHandler,
		Authenticated: []httptransport.Routes{
			tenantHandler.New(tenants, log),
			modules,
			usageHandler.New(usageLedger, log),
			genHandler.New(generator, registry, catalog, log),
		},
		Operator:      modules,
		OperatorToken: cfg.Modules.OperatorToken,
	})
	return app, nil
}

func newProviderSet(cfg config.GenerationConfig) providers.Set {
	client := providers.NewHTTPClient(cfg.ProviderTimeout)
	var set providers.Set
	if cfg.AnthropicAPIKey != "" {
		set.Anthropic = anthropic.New(anthropic.Config{APIKey: cfg.AnthropicAPIKey, Model: cfg.AnthropicModel, Timeout: cfg.ProviderTimeout, HTTPClient: client})
	}
	if cfg.OpenAIAPIKey != "" {
		set.OpenAI = openai.New(openai.Config{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel, Timeout: cfg.ProviderTimeout, HTTPClient: client})
	}
	if cfg.GeminiAPIKey != "" {
		set.Gemini = gemini.New(gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel, Timeout: cfg.ProviderTimeout, HTTPClient: client})
	}
	return set
}

func providerNames(ps []providers.Provider) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.String())
	}
	return out
}

// seedDefinitions registers MODULE_SEED entries plus the modules that ship
// tasks with the server. Already registered modules are left as they are.
func seedDefinitions(ctx context.Context, registry *moduleService.Registry, seed []string, builtin []id.ModuleID, log *slog.Logger) error {
	for _, raw := range seed {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		moduleID, err := id.ParseModuleID(raw)
		if err != nil {
			return fmt.Errorf("MODULE_SEED %q: %w", raw, err)
		}
		builtin = append(builtin, moduleID)
	}
	for _, moduleID := range builtin {
		_, err := registry.RegisterDefinition(ctx, moduleID, moduleID.String(), "1.0.0")
		if err != nil && !dErrors.HasCode(err, dErrors.CodeConflict) {
			return fmt.Errorf("seed module %s: %w", moduleID, err)
		}
		if err == nil {
			log.Info("module definition seeded", "module_id", moduleID)
		}
	}
	return nil
}
