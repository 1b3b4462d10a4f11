package models

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

const maxNameLength = 128

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type Tenant struct {
	ID           id.TenantID `json:"id"`
	Name         string      `json:"name"`
	Slug         string      `json:"slug"`
	Kind         Kind        `json:"kind"`
	BillingEmail string      `json:"billing_email,omitempty"`
	Settings     id.Settings `json:"settings"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func NewTenant(tenantID id.TenantID, name, slug string, kind Kind, billingEmail string, now time.Time) (*Tenant, error) {
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name cannot be empty")
	}
	if len(name) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name must be 128 characters or less")
	}
	if !slugPattern.MatchString(slug) || len(slug) > 64 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant slug must be lowercase letters, digits and dashes")
	}
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant kind must be household or organization")
	}
	if billingEmail != "" {
		if _, err := mail.ParseAddress(billingEmail); err != nil {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "billing contact must be an email address")
		}
	}
	return &Tenant{
		ID:           tenantID,
		Name:         name,
		Slug:         slug,
		Kind:         kind,
		BillingEmail: billingEmail,
		Settings:     id.Settings{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Membership binds a user to a tenant with a role.
type Membership struct {
	TenantID  id.TenantID `json:"tenant_id"`
	UserID    id.UserID   `json:"user_id"`
	Role      Role        `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewMembership(tenantID id.TenantID, userID id.UserID, role Role, now time.Time) (*Membership, error) {
	if tenantID.IsNil() || userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "membership requires tenant and user")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "membership role must be owner, admin or member")
	}
	return &Membership{TenantID: tenantID, UserID: userID, Role: role, CreatedAt: now}, nil
}
