//go:build integration

package installation_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hearth/internal/modules/models"
	"hearth/internal/modules/store/installation"
	"hearth/internal/sentinel"
	id "hearth/pkg/domain"
	"hearth/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *installation.PostgresStore
	tenantID id.TenantID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.Postgres(s.T())
	s.store = installation.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateAll(ctx))
	s.tenantID = s.postgres.CreateTestTenant(ctx, s.T())
	s.postgres.CreateTestModule(ctx, s.T(), "meals")
	s.postgres.CreateTestModule(ctx, s.T(), "chores")
}

func (s *PostgresStoreSuite) newInstallation(moduleID id.ModuleID) *models.Installation {
	inst, err := models.NewInstallation(s.tenantID, moduleID, id.Settings{"diet": "any"}, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return inst
}

// TestConcurrentCreate checks that the primary key admits exactly one install.
func (s *PostgresStoreSuite) TestConcurrentCreate() {
	ctx := context.Background()
	const goroutines = 20
	var wins, dupes atomic.Int32
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, s.newInstallation("meals"))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				dupes.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), dupes.Load())
}

func (s *PostgresStoreSuite) TestCreateForUnknownDefinition() {
	err := s.store.Create(context.Background(), s.newInstallation("garden"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCompareAndSet() {
	ctx := context.Background()
	inst := s.newInstallation("meals")
	s.Require().NoError(s.store.Create(ctx, inst))

	inst.Enabled = false
	s.Require().NoError(s.store.UpdateIfEnabled(ctx, inst, true))

	// a second disable loses the race
	err := s.store.UpdateIfEnabled(ctx, inst, true)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	missing := s.newInstallation("chores")
	s.ErrorIs(s.store.UpdateIfEnabled(ctx, missing, true), sentinel.ErrNotFound)

	got, err := s.store.Find(ctx, s.tenantID, "meals")
	s.Require().NoError(err)
	s.False(got.Enabled)
	s.Equal("any", got.Settings["diet"])
}

func (s *PostgresStoreSuite) TestListAndDelete() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newInstallation("meals")))
	chores := s.newInstallation("chores")
	s.Require().NoError(s.store.Create(ctx, chores))
	chores.Enabled = false
	s.Require().NoError(s.store.UpdateIfEnabled(ctx, chores, true))

	enabled, err := s.store.ListByTenant(ctx, s.tenantID, false)
	s.Require().NoError(err)
	s.Require().Len(enabled, 1)
	s.Equal(id.ModuleID("meals"), enabled[0].ModuleID)

	all, err := s.store.ListByTenant(ctx, s.tenantID, true)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(id.ModuleID("chores"), all[0].ModuleID)

	s.Require().NoError(s.store.Delete(ctx, s.tenantID, "chores"))
	s.ErrorIs(s.store.Delete(ctx, s.tenantID, "chores"), sentinel.ErrNotFound)
	_, err = s.store.Find(ctx, s.tenantID, "chores")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestInstallationsAreScopedByTenant() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newInstallation("meals")))
	other := s.postgres.CreateTestTenant(ctx, s.T())

	_, err := s.store.Find(ctx, other, "meals")
	s.ErrorIs(err, sentinel.ErrNotFound)
	list, err := s.store.ListByTenant(ctx, other, true)
	s.Require().NoError(err)
	s.Empty(list)
}
