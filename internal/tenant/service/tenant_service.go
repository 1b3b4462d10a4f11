package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hearth/internal/sentinel"
	"hearth/internal/session"
	"hearth/internal/tenant/models"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	txcontext "hearth/pkg/platform/tx"
)

type TenantStore interface {
	CreateIfSlugAvailable(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

type MembershipStore interface {
	Create(ctx context.Context, m *models.Membership) error
	Find(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.Membership, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.Membership, error)
}

// CreateTenantCommand carries the inputs for account/organization creation.
type CreateTenantCommand struct {
	Owner        id.UserID
	Name         string
	Slug         string
	Kind         models.Kind
	BillingEmail string
}

// TenantService orchestrates tenant creation and membership management.
type TenantService struct {
	tenants     TenantStore
	memberships MembershipStore
	logger      *slog.Logger
	tx          txcontext.Runner
	now         func() time.Time
}

func NewTenantService(tenants TenantStore, memberships MembershipStore, opts ...Option) *TenantService {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = txcontext.NewInMemory()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &TenantService{
		tenants:     tenants,
		memberships: memberships,
		logger:      cfg.logger,
		tx:          cfg.tx,
		now:         cfg.now,
	}
}

// CreateTenant creates the tenant and the creator's owner membership atomically.
func (s *TenantService) CreateTenant(ctx context.Context, cmd CreateTenantCommand) (*models.Tenant, error) {
	if cmd.Owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "owner is required")
	}

	var tenant *models.Tenant
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := s.now()
		t, err := models.NewTenant(id.TenantID(uuid.New()), cmd.Name, cmd.Slug, cmd.Kind, cmd.BillingEmail, now)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, err.Error())
		}

		if err := s.tenants.CreateIfSlugAvailable(txCtx, t); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "tenant slug must be unique")
			}
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to create tenant")
		}

		owner, err := models.NewMembership(t.ID, cmd.Owner, models.RoleOwner, now)
		if err != nil {
			return err
		}
		if err := s.memberships.Create(txCtx, owner); err != nil {
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to create owner membership")
		}
		tenant = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tenant created",
		"tenant_id", tenant.ID,
		"kind", tenant.Kind,
	)
	return tenant, nil
}

// GetTenant loads a tenant the caller belongs to.
func (s *TenantService) GetTenant(ctx context.Context, sess *session.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if err := sess.RequireMember(tenantID); err != nil {
		return nil, err
	}
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}
	return tenant, nil
}

// AddMember records an accepted invite. Only owners and admins may add members,
// and nobody can mint a second owner.
func (s *TenantService) AddMember(ctx context.Context, sess *session.Context, userID id.UserID, role models.Role) (*models.Membership, error) {
	tenantID, ok := sess.TenantID()
	if !ok {
		return nil, dErrors.New(dErrors.CodeForbidden, "personal accounts have no members")
	}
	if err := sess.RequireManager(tenantID); err != nil {
		return nil, err
	}
	if role == models.RoleOwner {
		return nil, dErrors.New(dErrors.CodeValidation, "a tenant has exactly one owner")
	}

	m, err := models.NewMembership(tenantID, userID, role, s.now())
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if err := s.memberships.Create(ctx, m); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "user is already a member")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to add member")
	}

	s.logger.InfoContext(ctx, "tenant member added",
		"tenant_id", tenantID,
		"user_id", userID,
		"role", role,
	)
	return m, nil
}

// ResolveSession assembles a session context for userID acting in tenantID.
// A nil tenantID yields a personal context.
func (s *TenantService) ResolveSession(ctx context.Context, userID id.UserID, tenantID id.TenantRef) (*session.Context, error) {
	if userID.IsNil() {
		return nil, session.ErrUnauthenticated
	}
	if tenantID == nil {
		return session.Personal(userID), nil
	}
	tenant, err := s.tenants.FindByID(ctx, *tenantID)
	if err != nil {
		return nil, wrapTenantErr(err, "failed to load tenant")
	}
	m, err := s.memberships.Find(ctx, tenant.ID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "caller is not a member of this tenant")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load membership")
	}
	return &session.Context{UserID: userID, Tenant: tenant, Membership: m}, nil
}

// FindMembership returns the membership of userID in tenantID.
func (s *TenantService) FindMembership(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.Membership, error) {
	m, err := s.memberships.Find(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "membership not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load membership")
	}
	return m, nil
}

func wrapTenantErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
