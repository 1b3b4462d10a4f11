package jwttoken

import (
	"context"

	"hearth/internal/session"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

// SessionResolver loads the tenant and membership behind a verified identity.
type SessionResolver interface {
	ResolveSession(ctx context.Context, userID id.UserID, tenantID id.TenantRef) (*session.Context, error)
}

// SessionProvider implements session.Provider on top of bearer JWTs.
type SessionProvider struct {
	tokens   *JWTService
	resolver SessionResolver
}

func NewSessionProvider(tokens *JWTService, resolver SessionResolver) *SessionProvider {
	return &SessionProvider{tokens: tokens, resolver: resolver}
}

var _ session.Provider = (*SessionProvider)(nil)

func (p *SessionProvider) Resolve(ctx context.Context, credential string) (*session.Context, error) {
	claims, err := p.tokens.ValidateToken(credential)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(claims.Subject)
	if err != nil || userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	var tenant id.TenantRef
	if claims.TenantID != "" {
		tenantID, err := id.ParseTenantID(claims.TenantID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token tenant")
		}
		tenant = tenantID.Ref()
	}

	sess, err := p.resolver.ResolveSession(ctx, userID, tenant)
	if err != nil {
		// an unknown tenant looks the same as one the caller does not belong to
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "caller is not a member of this tenant")
		}
		return nil, err
	}
	return sess, nil
}
