package definition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hearth/internal/modules/models"
	"hearth/internal/platform/database"
	"hearth/internal/sentinel"
	id "hearth/pkg/domain"
	txcontext "hearth/pkg/platform/tx"
)

// PostgresStore persists module definitions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, d *models.Definition) error {
	query := `
		INSERT INTO module_definitions (id, name, version, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		string(d.ID), d.Name, d.Version, d.IsActive, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("module definition exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create module definition: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, moduleID id.ModuleID) (*models.Definition, error) {
	query := `
		SELECT id, name, version, is_active, created_at, updated_at
		FROM module_definitions
		WHERE id = $1
	`
	d, err := scanDefinition(txcontext.Pick(ctx, s.db).QueryRowContext(ctx, query, string(moduleID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find module definition: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) SetActive(ctx context.Context, moduleID id.ModuleID, active bool, now time.Time) error {
	query := `UPDATE module_definitions SET is_active = $2, updated_at = $3 WHERE id = $1`
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query, string(moduleID), active, now)
	if err != nil {
		return fmt.Errorf("update module definition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update module definition: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Definition, error) {
	query := `
		SELECT id, name, version, is_active, created_at, updated_at
		FROM module_definitions
		ORDER BY id ASC
	`
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list module definitions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Definition, 0)
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan module definition: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate module definitions: %w", err)
	}
	return out, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanDefinition(r row) (*models.Definition, error) {
	var d models.Definition
	var moduleID string
	if err := r.Scan(&moduleID, &d.Name, &d.Version, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.ID = id.ModuleID(moduleID)
	return &d, nil
}
