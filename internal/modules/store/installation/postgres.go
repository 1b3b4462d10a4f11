package installation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"hearth/internal/modules/models"
	"hearth/internal/platform/database"
	"hearth/internal/sentinel"
	id "hearth/pkg/domain"
	txcontext "hearth/pkg/platform/tx"
)

// PostgresStore persists installations. The (tenant_id, module_id) primary
// key resolves concurrent first installs.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, inst *models.Installation) error {
	query := `
		INSERT INTO tenant_module_installations (tenant_id, module_id, enabled, settings, installed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(inst.TenantID),
		string(inst.ModuleID),
		inst.Enabled,
		inst.Settings,
		inst.InstalledAt,
		inst.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("installation exists: %w", sentinel.ErrAlreadyUsed)
		}
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("module definition missing: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("create installation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) (*models.Installation, error) {
	query := `
		SELECT tenant_id, module_id, enabled, settings, installed_at, updated_at
		FROM tenant_module_installations
		WHERE tenant_id = $1 AND module_id = $2
	`
	inst, err := scanInstallation(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(tenantID), string(moduleID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find installation: %w", err)
	}
	return inst, nil
}

// UpdateIfEnabled is a compare-and-set on the enabled flag.
func (s *PostgresStore) UpdateIfEnabled(ctx context.Context, inst *models.Installation, wasEnabled bool) error {
	q := txcontext.Pick(ctx, s.db)
	query := `
		UPDATE tenant_module_installations
		SET enabled = $3, settings = $4, updated_at = $5
		WHERE tenant_id = $1 AND module_id = $2 AND enabled = $6
	`
	res, err := q.ExecContext(ctx, query,
		uuid.UUID(inst.TenantID),
		string(inst.ModuleID),
		inst.Enabled,
		inst.Settings,
		inst.UpdatedAt,
		wasEnabled,
	)
	if err != nil {
		return fmt.Errorf("update installation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update installation: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	err = q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenant_module_installations WHERE tenant_id = $1 AND module_id = $2)`,
		uuid.UUID(inst.TenantID), string(inst.ModuleID),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check installation: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("installation changed concurrently: %w", sentinel.ErrInvalidState)
}

func (s *PostgresStore) Delete(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) error {
	query := `DELETE FROM tenant_module_installations WHERE tenant_id = $1 AND module_id = $2`
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query, uuid.UUID(tenantID), string(moduleID))
	if err != nil {
		return fmt.Errorf("delete installation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete installation: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID, includeDisabled bool) ([]*models.Installation, error) {
	query := `
		SELECT tenant_id, module_id, enabled, settings, installed_at, updated_at
		FROM tenant_module_installations
		WHERE tenant_id = $1 AND (enabled OR $2)
		ORDER BY module_id ASC
	`
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, uuid.UUID(tenantID), includeDisabled)
	if err != nil {
		return nil, fmt.Errorf("list installations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Installation, 0)
	for rows.Next() {
		inst, err := scanInstallation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installation: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installations: %w", err)
	}
	return out, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanInstallation(r row) (*models.Installation, error) {
	var inst models.Installation
	var tenantID uuid.UUID
	var moduleID string
	if err := r.Scan(&tenantID, &moduleID, &inst.Enabled, &inst.Settings, &inst.InstalledAt, &inst.UpdatedAt); err != nil {
		return nil, err
	}
	inst.TenantID = id.TenantID(tenantID)
	inst.ModuleID = id.ModuleID(moduleID)
	return &inst, nil
}
