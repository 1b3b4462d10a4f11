package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"hearth/internal/platform/database"
	"hearth/internal/sentinel"
	"hearth/internal/usage/models"
	id "hearth/pkg/domain"
	txcontext "hearth/pkg/platform/tx"
)

// PostgresStore persists usage events. tokens_total is a generated column,
// so no statement here ever writes it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event *models.UsageEvent) error {
	if event == nil {
		return fmt.Errorf("usage event is required")
	}
	query := `
		INSERT INTO usage_events (
			id, action, tenant_id, user_id, module_id,
			tokens_input, tokens_output, units, duration_ms, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(event.ID),
		event.Action,
		nullTenant(event.TenantID),
		uuid.UUID(event.UserID),
		nullModule(event.ModuleID),
		event.TokensInput,
		event.TokensOutput,
		event.Units,
		event.DurationMs,
		event.Metadata,
		event.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("usage event %s: %w", event.ID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert usage event: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, scope models.Scope, q models.Query) ([]*models.UsageEvent, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if scope.TenantID != nil {
		where = append(where, "tenant_id = "+arg(uuid.UUID(*scope.TenantID)))
	} else {
		where = append(where, "tenant_id IS NULL")
	}
	if scope.UserID != nil {
		where = append(where, "user_id = "+arg(uuid.UUID(*scope.UserID)))
	}
	if q.Action != "" {
		where = append(where, "action = "+arg(q.Action))
	}
	if !q.Since.IsZero() {
		where = append(where, "created_at >= "+arg(q.Since))
	}
	if !q.Until.IsZero() {
		where = append(where, "created_at < "+arg(q.Until))
	}

	query := `
		SELECT id, action, tenant_id, user_id, module_id,
			tokens_input, tokens_output, units, duration_ms, metadata, created_at
		FROM usage_events
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC
		LIMIT ` + arg(q.Limit) + ` OFFSET ` + arg(q.Offset)

	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage events: %w", err)
	}
	defer rows.Close()

	out := []*models.UsageEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage events: %w", err)
	}
	return out, nil
}

func scanEvent(rows *sql.Rows) (*models.UsageEvent, error) {
	var (
		e        models.UsageEvent
		eventID  uuid.UUID
		tenantID uuid.NullUUID
		userID   uuid.UUID
		moduleID sql.NullString
	)
	if err := rows.Scan(
		&eventID,
		&e.Action,
		&tenantID,
		&userID,
		&moduleID,
		&e.TokensInput,
		&e.TokensOutput,
		&e.Units,
		&e.DurationMs,
		&e.Metadata,
		&e.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan usage event: %w", err)
	}
	e.ID = id.UsageEventID(eventID)
	e.UserID = id.UserID(userID)
	if tenantID.Valid {
		e.TenantID = id.TenantID(tenantID.UUID).Ref()
	}
	if moduleID.Valid {
		e.ModuleID = id.ModuleID(moduleID.String)
	}
	return &e, nil
}

func nullTenant(ref id.TenantRef) uuid.NullUUID {
	if ref == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*ref), Valid: true}
}

func nullModule(m id.ModuleID) sql.NullString {
	return sql.NullString{String: string(m), Valid: !m.IsNil()}
}

var (
	_ Appender = (*PostgresStore)(nil)
	_ Reader   = (*PostgresStore)(nil)
)
