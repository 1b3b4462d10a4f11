//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"hearth/internal/usage/models"
	"hearth/internal/usage/store"
	id "hearth/pkg/domain"
	"hearth/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	tenantID id.TenantID
	userID   id.UserID
	base     time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.Postgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateAll(ctx))
	s.tenantID = s.postgres.CreateTestTenant(ctx, s.T())
	s.userID = id.UserID(uuid.New())
	s.base = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) appendEvent(tenant id.TenantRef, action string, minute int) *models.UsageEvent {
	e, err := models.NewUsageEvent(id.NewUsageEventID(), models.Entry{
		Action:       action,
		TenantID:     tenant,
		UserID:       s.userID,
		ModuleID:     "meals",
		TokensInput:  120,
		TokensOutput: 30,
		Units:        1,
		DurationMs:   900,
		Metadata:     id.Settings{"provider": "anthropic"},
	}, s.base.Add(time.Duration(minute)*time.Minute))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(context.Background(), e))
	return e
}

func (s *PostgresStoreSuite) TestTotalIsDerivedByTheDatabase() {
	e := s.appendEvent(s.tenantID.Ref(), "meals:weekly:generate", 0)

	var total int64
	err := s.postgres.QueryRow(context.Background(),
		`SELECT tokens_total FROM usage_events WHERE id = $1`, uuid.UUID(e.ID)).Scan(&total)
	s.Require().NoError(err)
	s.Equal(int64(150), total)

	_, err = s.postgres.Exec(context.Background(),
		`UPDATE usage_events SET tokens_total = 1 WHERE id = $1`, uuid.UUID(e.ID))
	s.Error(err)
}

func (s *PostgresStoreSuite) TestHistoryScopes() {
	ctx := context.Background()
	s.appendEvent(s.tenantID.Ref(), "meals:weekly:generate", 0)
	s.appendEvent(s.tenantID.Ref(), "meals:daily:generate", 1)
	s.appendEvent(nil, "meals:weekly:generate", 2)

	tenantRows, err := s.store.History(ctx, models.TenantScope(s.tenantID), models.Query{Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(tenantRows, 2)
	s.Equal("meals:daily:generate", tenantRows[0].Action)
	s.Equal(s.tenantID, *tenantRows[0].TenantID)
	s.Equal("anthropic", tenantRows[0].Metadata["provider"])

	personal, err := s.store.History(ctx, models.PersonalScope(s.userID), models.Query{Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(personal, 1)
	s.Nil(personal[0].TenantID)
}

func (s *PostgresStoreSuite) TestHistoryFilters() {
	ctx := context.Background()
	for i := range 5 {
		s.appendEvent(s.tenantID.Ref(), "meals:weekly:generate", i)
	}
	s.appendEvent(s.tenantID.Ref(), "chores:rota:generate", 5)

	scope := models.TenantScope(s.tenantID)
	rows, err := s.store.History(ctx, scope, models.Query{Action: "meals:weekly:generate", Limit: 2, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal(s.base.Add(3*time.Minute), rows[0].CreatedAt.UTC())

	rows, err = s.store.History(ctx, scope, models.Query{
		Since: s.base.Add(1 * time.Minute),
		Until: s.base.Add(3 * time.Minute),
		Limit: 10,
	})
	s.Require().NoError(err)
	s.Len(rows, 2)
}
