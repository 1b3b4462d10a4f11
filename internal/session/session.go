// Package session defines the per-request caller context handed explicitly to
// every core operation. The core never resolves sessions itself; a Provider
// collaborator does that at the transport edge.
package session

import (
	"context"

	"hearth/internal/tenant/models"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

// Context identifies the caller of a core operation.
// Tenant and Membership are nil for a personal actor.
type Context struct {
	UserID     id.UserID
	Tenant     *models.Tenant
	Membership *models.Membership
}

// Provider resolves the caller for the current request from a bearer credential.
// Implementations return a CodeUnauthorized domain error when the caller is anonymous.
type Provider interface {
	Resolve(ctx context.Context, credential string) (*Context, error)
}

// ErrUnauthenticated is returned by providers when no valid caller can be established.
var ErrUnauthenticated = dErrors.New(dErrors.CodeUnauthorized, "authentication required")

// Personal builds a context for a user acting outside any tenant.
func Personal(userID id.UserID) *Context {
	return &Context{UserID: userID}
}

// TenantRef returns the caller's tenant, or nil for a personal actor.
func (c *Context) TenantRef() id.TenantRef {
	if c == nil || c.Tenant == nil {
		return nil
	}
	return c.Tenant.ID.Ref()
}

// TenantID returns the caller's tenant ID and whether one is present.
func (c *Context) TenantID() (id.TenantID, bool) {
	if c == nil || c.Tenant == nil {
		return id.TenantID{}, false
	}
	return c.Tenant.ID, true
}

// Role returns the caller's role in their tenant, or "" when there is none.
func (c *Context) Role() models.Role {
	if c == nil || c.Membership == nil {
		return ""
	}
	return c.Membership.Role
}

// RequireMember checks that the caller is an authenticated member of tenantID.
func (c *Context) RequireMember(tenantID id.TenantID) error {
	if c == nil || c.UserID.IsNil() {
		return ErrUnauthenticated
	}
	if c.Tenant == nil || c.Membership == nil ||
		c.Tenant.ID != tenantID || c.Membership.TenantID != tenantID || c.Membership.UserID != c.UserID {
		return dErrors.New(dErrors.CodeForbidden, "caller is not a member of this tenant")
	}
	return nil
}

// RequireManager checks that the caller is an owner or admin of tenantID.
func (c *Context) RequireManager(tenantID id.TenantID) error {
	if err := c.RequireMember(tenantID); err != nil {
		return err
	}
	if !c.Membership.Role.CanManage() {
		return dErrors.New(dErrors.CodeForbidden, "owner or admin role required")
	}
	return nil
}
