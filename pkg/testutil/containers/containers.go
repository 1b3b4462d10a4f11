//go:build integration

// Package containers starts one migrated Postgres per test binary and hands
// it to every suite in the package. Ryuk removes the container on exit.
package containers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"hearth/internal/platform/database"
	"hearth/migrations"
	id "hearth/pkg/domain"
)

const postgresImage = "postgres:18-alpine"

// Children first so CASCADE has nothing left to chase.
var hearthTables = []string{
	"tenant_module_installations",
	"module_definitions",
	"usage_events",
	"tenant_memberships",
	"tenants",
}

// PostgresContainer is the shared database plus helpers for seeding rows the
// stores under test depend on.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

var shared = sync.OnceValues(startPostgres)

// Postgres returns the package-wide container, starting it on first use.
func Postgres(t testing.TB) *PostgresContainer {
	t.Helper()
	pc, err := shared()
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	return pc
}

func startPostgres() (*PostgresContainer, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("hearth_test"),
		postgres.WithUsername("hearth"),
		postgres.WithPassword("hearth_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("connection string: %w", err)
	}

	pool, err := database.New(ctx, database.Config{
		URL:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
		_ = pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &PostgresContainer{Container: container, DSN: dsn, DB: pool.DB()}, nil
}

// TruncateAll empties every hearth table between tests.
func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	for _, table := range hearthTables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

func (p *PostgresContainer) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.DB.QueryRowContext(ctx, query, args...)
}

// CreateTestTenant inserts a household with a throwaway slug.
func (p *PostgresContainer) CreateTestTenant(ctx context.Context, t testing.TB) id.TenantID {
	t.Helper()
	tenantID := id.TenantID(uuid.New())
	_, err := p.Exec(ctx, `
		INSERT INTO tenants (id, name, slug, kind, created_at, updated_at)
		VALUES ($1, 'Test Household', $2, 'household', NOW(), NOW())
	`, uuid.UUID(tenantID), "test-"+uuid.NewString())
	if err != nil {
		t.Fatalf("CreateTestTenant: %v", err)
	}
	return tenantID
}

// CreateTestModule inserts an active definition at version 1.0.0.
func (p *PostgresContainer) CreateTestModule(ctx context.Context, t testing.TB, moduleID id.ModuleID) {
	t.Helper()
	_, err := p.Exec(ctx, `
		INSERT INTO module_definitions (id, name, version, is_active, created_at, updated_at)
		VALUES ($1, $2, '1.0.0', TRUE, NOW(), NOW())
	`, string(moduleID), string(moduleID))
	if err != nil {
		t.Fatalf("CreateTestModule: %v", err)
	}
}
