package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"hearth/internal/platform/database"
	"hearth/internal/sentinel"
	"hearth/internal/tenant/models"
	id "hearth/pkg/domain"
	txcontext "hearth/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateIfSlugAvailable atomically creates the tenant; the unique index on slug resolves races.
func (s *PostgresStore) CreateIfSlugAvailable(ctx context.Context, tenant *models.Tenant) error {
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	query := `
		INSERT INTO tenants (id, name, slug, kind, billing_email, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(tenant.ID),
		tenant.Name,
		tenant.Slug,
		string(tenant.Kind),
		nullString(tenant.BillingEmail),
		tenant.Settings,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("tenant slug must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

const selectTenant = `
	SELECT id, name, slug, kind, billing_email, settings, created_at, updated_at
	FROM tenants
`

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return s.findOne(ctx, "id", uuid.UUID(tenantID))
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.findOne(ctx, "slug", slug)
}

// findOne looks a tenant up by one of its unique columns.
func (s *PostgresStore) findOne(ctx context.Context, column string, value any) (*models.Tenant, error) {
	row := txcontext.Pick(ctx, s.db).QueryRowContext(ctx, selectTenant+"WHERE "+column+" = $1", value)
	tenant, err := scanTenant(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, sentinel.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("find tenant by %s: %w", column, err)
	}
	return tenant, nil
}

type tenantRow interface {
	Scan(dest ...any) error
}

func scanTenant(row tenantRow) (*models.Tenant, error) {
	var tenant models.Tenant
	var kind string
	var billing sql.NullString
	var tenantID uuid.UUID
	if err := row.Scan(&tenantID, &tenant.Name, &tenant.Slug, &kind, &billing, &tenant.Settings, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
		return nil, err
	}
	tenant.ID = id.TenantID(tenantID)
	tenant.Kind = models.Kind(kind)
	tenant.BillingEmail = billing.String
	return &tenant, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
