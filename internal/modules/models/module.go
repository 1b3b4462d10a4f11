package models

import (
	"strings"
	"time"

	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

// Registry errors surfaced to callers verbatim.
var (
	ErrNotActive        = dErrors.New(dErrors.CodeConflict, "module is not active")
	ErrAlreadyInstalled = dErrors.New(dErrors.CodeConflict, "module already installed")
	ErrAlreadyDisabled  = dErrors.New(dErrors.CodeConflict, "module already disabled")
	ErrNotInstalled     = dErrors.New(dErrors.CodeNotFound, "module not installed")
	ErrModuleNotFound   = dErrors.New(dErrors.CodeNotFound, "module not found")
)

// Definition describes an installable module. IsActive is a global kill
// switch: inactive modules cannot be newly installed, existing installations
// are left alone.
type Definition struct {
	ID        id.ModuleID `json:"id"`
	Name      string      `json:"name"`
	Version   string      `json:"version"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func NewDefinition(moduleID id.ModuleID, name, version string, now time.Time) (*Definition, error) {
	if _, err := id.ParseModuleID(moduleID.String()); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid module id")
	}
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "module name cannot be empty")
	}
	if version == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "module version cannot be empty")
	}
	return &Definition{
		ID:        moduleID,
		Name:      name,
		Version:   version,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// State is the lifecycle position of a module within one tenant.
type State string

const (
	StateUninstalled State = "uninstalled"
	StateEnabled     State = "enabled"
	StateDisabled    State = "disabled"
)

// Installation is the unique (tenant, module) row.
type Installation struct {
	TenantID    id.TenantID `json:"tenant_id"`
	ModuleID    id.ModuleID `json:"module_id"`
	Enabled     bool        `json:"enabled"`
	Settings    id.Settings `json:"settings"`
	InstalledAt time.Time   `json:"installed_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewInstallation creates an enabled installation.
func NewInstallation(tenantID id.TenantID, moduleID id.ModuleID, settings id.Settings, now time.Time) (*Installation, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "installation requires a tenant")
	}
	if moduleID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "installation requires a module")
	}
	return &Installation{
		TenantID:    tenantID,
		ModuleID:    moduleID,
		Enabled:     true,
		Settings:    settings.Clone(),
		InstalledAt: now,
		UpdatedAt:   now,
	}, nil
}

func (i *Installation) State() State {
	if i == nil {
		return StateUninstalled
	}
	if i.Enabled {
		return StateEnabled
	}
	return StateDisabled
}

// Reinstall moves a disabled installation back to enabled. Settings are
// replaced wholesale, never merged.
func (i *Installation) Reinstall(settings id.Settings, now time.Time) error {
	if i.Enabled {
		return ErrAlreadyInstalled
	}
	i.Enabled = true
	i.Settings = settings.Clone()
	i.UpdatedAt = now
	return nil
}

// Disable keeps the row and its settings but turns the module off.
func (i *Installation) Disable(now time.Time) error {
	if !i.Enabled {
		return ErrAlreadyDisabled
	}
	i.Enabled = false
	i.UpdatedAt = now
	return nil
}

func (i *Installation) Clone() *Installation {
	out := *i
	out.Settings = i.Settings.Clone()
	return &out
}
