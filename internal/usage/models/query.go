package models

import (
	"time"

	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Scope selects whose events a read may return. With a tenant, only that
// tenant's events match, optionally narrowed to one user. Without a tenant,
// only the user's personal (tenant-less) events match.
type Scope struct {
	TenantID id.TenantRef
	UserID   *id.UserID
}

func TenantScope(tenantID id.TenantID) Scope {
	return Scope{TenantID: tenantID.Ref()}
}

func PersonalScope(userID id.UserID) Scope {
	return Scope{UserID: &userID}
}

// Validate rejects an empty scope: there is no unscoped read.
func (s Scope) Validate() error {
	if s.TenantID == nil && s.UserID == nil {
		return dErrors.New(dErrors.CodeValidation, "usage query requires a tenant or user scope")
	}
	if s.TenantID != nil && s.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "tenant id is required")
	}
	if s.UserID != nil && s.UserID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	return nil
}

// Matches applies the scope rules to a single event.
func (s Scope) Matches(e *UsageEvent) bool {
	if s.TenantID != nil {
		if e.TenantID == nil || *e.TenantID != *s.TenantID {
			return false
		}
		return s.UserID == nil || e.UserID == *s.UserID
	}
	return s.UserID != nil && e.TenantID == nil && e.UserID == *s.UserID
}

// Query narrows a history read. Since is inclusive, Until exclusive.
type Query struct {
	Action string
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

// Normalize applies the default limit and validates bounds.
func (q Query) Normalize() (Query, error) {
	if q.Action != "" {
		if err := ValidateAction(q.Action); err != nil {
			return q, err
		}
	}
	if q.Limit < 0 || q.Offset < 0 {
		return q, dErrors.New(dErrors.CodeValidation, "limit and offset must be >= 0")
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if !q.Since.IsZero() && !q.Until.IsZero() && !q.Since.Before(q.Until) {
		return q, dErrors.New(dErrors.CodeValidation, "since must be before until")
	}
	return q, nil
}

// Matches applies the action and time filters to a single event.
func (q Query) Matches(e *UsageEvent) bool {
	if q.Action != "" && e.Action != q.Action {
		return false
	}
	if !q.Since.IsZero() && e.CreatedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !e.CreatedAt.Before(q.Until) {
		return false
	}
	return true
}
