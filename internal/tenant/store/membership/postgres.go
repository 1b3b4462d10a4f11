package membership

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

// PostgresStore persists tenant memberships in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO tenant_memberships (tenant_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(m.TenantID), uuid.UUID(m.UserID), string(m.Role), m.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("membership exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.Membership, error) {
	query := `
		SELECT tenant_id, user_id, role, created_at
		FROM tenant_memberships
		WHERE tenant_id = $1 AND user_id = $2
	`
	m, err := scanMembership(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find membership: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.Membership, error) {
	query := `
		SELECT tenant_id, user_id, role, created_at
		FROM tenant_memberships
		WHERE tenant_id = $1
		ORDER BY created_at ASC
	`
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return out, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanMembership(r row) (*models.Membership, error) {
	var m models.Membership
	var tenantID, userID uuid.UUID
	var role string
	if err := r.Scan(&tenantID, &userID, &role, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.TenantID = id.TenantID(tenantID)
	m.UserID = id.UserID(userID)
	m.Role = models.Role(role)
	return &m, nil
}
