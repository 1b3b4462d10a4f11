package tenant

import (
	"context"
	"fmt"
	"sync"

	"hearth/internal/sentinel"
	"hearth/internal/tenant/models"
	id "hearth/pkg/domain"
)

// ErrNotFound is returned when a tenant is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores tenants in memory for development and tests.
type InMemory struct {
	mu      sync.RWMutex
	tenants map[id.TenantID]*models.Tenant
	slugIdx map[string]id.TenantID
}

// NewInMemory creates an in-memory tenant store.
func NewInMemory() *InMemory {
	return &InMemory{
		tenants: make(map[id.TenantID]*models.Tenant),
		slugIdx: make(map[string]id.TenantID),
	}
}

// CreateIfSlugAvailable atomically creates the tenant if the slug is not already taken.
func (s *InMemory) CreateIfSlugAvailable(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.slugIdx[t.Slug]; exists {
		return fmt.Errorf("tenant slug must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	stored := *t
	stored.Settings = t.Settings.Clone()
	s.tenants[t.ID] = &stored
	s.slugIdx[t.Slug] = t.ID
	return nil
}

// FindByID retrieves a tenant by its ID.
func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[tenantID]; ok {
		return copyTenant(t), nil
	}
	return nil, ErrNotFound
}

// FindBySlug retrieves a tenant by slug.
func (s *InMemory) FindBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tid, ok := s.slugIdx[slug]; ok {
		return copyTenant(s.tenants[tid]), nil
	}
	return nil, ErrNotFound
}

func copyTenant(t *models.Tenant) *models.Tenant {
	out := *t
	out.Settings = t.Settings.Clone()
	return &out
}
