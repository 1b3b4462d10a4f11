package testutil

import (
	"time"

	"github.com/google/uuid"

	"hearth/internal/session"
	tenantmodels "hearth/internal/tenant/models"
	usagemodels "hearth/internal/usage/models"
	id "hearth/pkg/domain"
)

// TestIDs provides pre-generated IDs for deterministic test data.
var TestIDs = struct {
	UserID1   id.UserID
	UserID2   id.UserID
	TenantID1 id.TenantID
	TenantID2 id.TenantID
}{
	UserID1:   id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	UserID2:   id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	TenantID1: id.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	TenantID2: id.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000002")),
}

// TenantBuilder provides a fluent interface for building test tenants.
type TenantBuilder struct {
	tenant *tenantmodels.Tenant
}

func NewTenantBuilder() *TenantBuilder {
	now := time.Now()
	return &TenantBuilder{
		tenant: &tenantmodels.Tenant{
			ID:        id.TenantID(uuid.New()),
			Name:      "Test Household",
			Slug:      "test-household",
			Kind:      tenantmodels.KindHousehold,
			Settings:  id.Settings{},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (b *TenantBuilder) WithID(tenantID id.TenantID) *TenantBuilder {
	b.tenant.ID = tenantID
	return b
}

func (b *TenantBuilder) WithSlug(slug string) *TenantBuilder {
	b.tenant.Slug = slug
	return b
}

func (b *TenantBuilder) WithKind(kind tenantmodels.Kind) *TenantBuilder {
	b.tenant.Kind = kind
	return b
}

func (b *TenantBuilder) Build() *tenantmodels.Tenant {
	return b.tenant
}

// SessionBuilder builds caller contexts. Without a tenant it yields a personal actor.
type SessionBuilder struct {
	userID id.UserID
	tenant *tenantmodels.Tenant
	role   tenantmodels.Role
}

func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{userID: TestIDs.UserID1, role: tenantmodels.RoleMember}
}

func (b *SessionBuilder) WithUserID(userID id.UserID) *SessionBuilder {
	b.userID = userID
	return b
}

func (b *SessionBuilder) InTenant(tenant *tenantmodels.Tenant, role tenantmodels.Role) *SessionBuilder {
	b.tenant = tenant
	b.role = role
	return b
}

func (b *SessionBuilder) Build() *session.Context {
	if b.tenant == nil {
		return session.Personal(b.userID)
	}
	return &session.Context{
		UserID: b.userID,
		Tenant: b.tenant,
		Membership: &tenantmodels.Membership{
			TenantID:  b.tenant.ID,
			UserID:    b.userID,
			Role:      b.role,
			CreatedAt: b.tenant.CreatedAt,
		},
	}
}

// EntryBuilder builds ledger entries with a valid action and identity.
type EntryBuilder struct {
	entry usagemodels.Entry
}

func NewEntryBuilder() *EntryBuilder {
	return &EntryBuilder{entry: usagemodels.Entry{
		Action:       "meals:weekly:generate",
		UserID:       TestIDs.UserID1,
		ModuleID:     "meals",
		TokensInput:  100,
		TokensOutput: 50,
		Units:        1,
		DurationMs:   1200,
	}}
}

func (b *EntryBuilder) WithTenant(tenantID id.TenantID) *EntryBuilder {
	b.entry.TenantID = tenantID.Ref()
	return b
}

func (b *EntryBuilder) WithUserID(userID id.UserID) *EntryBuilder {
	b.entry.UserID = userID
	return b
}

func (b *EntryBuilder) WithAction(action string) *EntryBuilder {
	b.entry.Action = action
	return b
}

func (b *EntryBuilder) WithTokens(input, output int64) *EntryBuilder {
	b.entry.TokensInput = input
	b.entry.TokensOutput = output
	return b
}

func (b *EntryBuilder) Build() usagemodels.Entry {
	return b.entry
}
