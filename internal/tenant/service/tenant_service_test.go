package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"hearth/internal/tenant/models"
	membershipstore "hearth/internal/tenant/store/membership"
	tenantstore "hearth/internal/tenant/store/tenant"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

type TenantServiceSuite struct {
	suite.Suite
	svc   *TenantService
	owner id.UserID
}

func TestTenantServiceSuite(t *testing.T) {
	suite.Run(t, new(TenantServiceSuite))
}

func (s *TenantServiceSuite) SetupTest() {
	s.svc = NewTenantService(tenantstore.NewInMemory(), membershipstore.NewInMemory())
	s.owner = id.UserID(uuid.New())
}

func (s *TenantServiceSuite) create(slug string) *models.Tenant {
	t, err := s.svc.CreateTenant(context.Background(), CreateTenantCommand{
		Owner: s.owner, Name: "Household " + slug, Slug: slug, Kind: models.KindHousehold,
	})
	s.Require().NoError(err)
	return t
}

func (s *TenantServiceSuite) TestCreateTenant() {
	s.Run("creates owner membership", func() {
		t := s.create("smiths")
		sess, err := s.svc.ResolveSession(context.Background(), s.owner, t.ID.Ref())
		s.Require().NoError(err)
		s.Equal(models.RoleOwner, sess.Role())
	})

	s.Run("duplicate slug is a conflict", func() {
		_, err := s.svc.CreateTenant(context.Background(), CreateTenantCommand{
			Owner: s.owner, Name: "Other", Slug: "smiths", Kind: models.KindHousehold,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid input is a validation error", func() {
		_, err := s.svc.CreateTenant(context.Background(), CreateTenantCommand{
			Owner: s.owner, Name: "", Slug: "x", Kind: models.KindHousehold,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing owner is unauthorized", func() {
		_, err := s.svc.CreateTenant(context.Background(), CreateTenantCommand{Name: "x", Slug: "x", Kind: models.KindHousehold})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *TenantServiceSuite) TestAddMember() {
	ctx := context.Background()
	t := s.create("jones")
	ownerSess, err := s.svc.ResolveSession(ctx, s.owner, t.ID.Ref())
	s.Require().NoError(err)

	memberID := id.UserID(uuid.New())
	_, err = s.svc.AddMember(ctx, ownerSess, memberID, models.RoleMember)
	s.Require().NoError(err)

	s.Run("duplicate member is a conflict", func() {
		_, err := s.svc.AddMember(ctx, ownerSess, memberID, models.RoleAdmin)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("members cannot add members", func() {
		memberSess, err := s.svc.ResolveSession(ctx, memberID, t.ID.Ref())
		s.Require().NoError(err)
		_, err = s.svc.AddMember(ctx, memberSess, id.UserID(uuid.New()), models.RoleMember)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("second owner is rejected", func() {
		_, err := s.svc.AddMember(ctx, ownerSess, id.UserID(uuid.New()), models.RoleOwner)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("find membership", func() {
		m, err := s.svc.FindMembership(ctx, t.ID, memberID)
		s.Require().NoError(err)
		s.Equal(models.RoleMember, m.Role)

		_, err = s.svc.FindMembership(ctx, t.ID, id.UserID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("outsider cannot resolve into tenant", func() {
		_, err := s.svc.ResolveSession(ctx, id.UserID(uuid.New()), t.ID.Ref())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *TenantServiceSuite) TestGetTenant() {
	ctx := context.Background()
	t := s.create("lees")
	sess, err := s.svc.ResolveSession(ctx, s.owner, t.ID.Ref())
	s.Require().NoError(err)

	got, err := s.svc.GetTenant(ctx, sess, t.ID)
	s.Require().NoError(err)
	s.Equal("lees", got.Slug)

	_, err = s.svc.GetTenant(ctx, sess, id.TenantID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
