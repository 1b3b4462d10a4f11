// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"regexp"

	"github.com/google/uuid"

	dErrors "hearth/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing UserID where TenantID is expected.
type (
	UserID       uuid.UUID
	TenantID     uuid.UUID
	UsageEventID uuid.UUID
)

// ModuleID is the stable slug of an installable feature package (e.g., "recipes").
// It doubles as the first segment of ledger action strings, so it shares their alphabet.
type ModuleID string

var moduleIDPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseUsageEventID(s string) (UsageEventID, error) {
	id, err := parseUUID(s, "usage event ID")
	return UsageEventID(id), err
}

func ParseModuleID(s string) (ModuleID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "module ID cannot be empty")
	}
	if len(s) > 64 || !moduleIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid module ID format")
	}
	return ModuleID(s), nil
}

// NewUsageEventID generates a fresh ledger row identifier.
func NewUsageEventID() UsageEventID {
	return UsageEventID(uuid.New())
}

// String methods - for logging and debugging.

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id TenantID) String() string     { return uuid.UUID(id).String() }
func (id UsageEventID) String() string { return uuid.UUID(id).String() }
func (id ModuleID) String() string     { return string(id) }

// MarshalText renders ids as canonical UUID strings in JSON and log output.

func (id UserID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id TenantID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id UsageEventID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TenantID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UsageEventID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id UsageEventID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ModuleID) IsNil() bool     { return id == "" }

// TenantRef is a nullable tenant reference. A personal actor has no tenant,
// so every downstream record carries a TenantRef rather than a TenantID.
type TenantRef = *TenantID

// Ref returns a tenant reference for the given ID.
func (id TenantID) Ref() TenantRef {
	return &id
}

// SameTenant reports whether two nullable tenant references point at the same tenant.
// Two personal (nil) references are considered equal.
func SameTenant(a, b TenantRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// parseUUID is the shared validation logic.
// Nil UUIDs are allowed here; use IsNil() at the service layer for business validation.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+label+" format")
	}
	return id, nil
}
