package installation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"hearth/internal/modules/models"
	"hearth/internal/sentinel"
	id "hearth/pkg/domain"
)

type key struct {
	tenant id.TenantID
	module id.ModuleID
}

// InMemory stores installations keyed by (tenant, module).
type InMemory struct {
	mu   sync.RWMutex
	rows map[key]*models.Installation
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[key]*models.Installation)}
}

// Create inserts a new installation; an existing (tenant, module) row yields ErrAlreadyUsed.
func (s *InMemory) Create(_ context.Context, inst *models.Installation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{inst.TenantID, inst.ModuleID}
	if _, exists := s.rows[k]; exists {
		return fmt.Errorf("installation exists: %w", sentinel.ErrAlreadyUsed)
	}
	s.rows[k] = inst.Clone()
	return nil
}

func (s *InMemory) Find(_ context.Context, tenantID id.TenantID, moduleID id.ModuleID) (*models.Installation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.rows[key{tenantID, moduleID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return inst.Clone(), nil
}

// UpdateIfEnabled overwrites the row only when its stored enabled flag still
// equals wasEnabled.
func (s *InMemory) UpdateIfEnabled(_ context.Context, inst *models.Installation, wasEnabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{inst.TenantID, inst.ModuleID}
	current, ok := s.rows[k]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Enabled != wasEnabled {
		return fmt.Errorf("installation changed concurrently: %w", sentinel.ErrInvalidState)
	}
	s.rows[k] = inst.Clone()
	return nil
}

func (s *InMemory) Delete(_ context.Context, tenantID id.TenantID, moduleID id.ModuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{tenantID, moduleID}
	if _, ok := s.rows[k]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.rows, k)
	return nil
}

// ListByTenant returns the tenant's installations ordered by module id.
func (s *InMemory) ListByTenant(_ context.Context, tenantID id.TenantID, includeDisabled bool) ([]*models.Installation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Installation, 0)
	for k, inst := range s.rows {
		if k.tenant != tenantID {
			continue
		}
		if !inst.Enabled && !includeDisabled {
			continue
		}
		out = append(out, inst.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleID < out[j].ModuleID })
	return out, nil
}
