package membership

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"hearth/internal/sentinel"
	"hearth/internal/tenant/models"
	id "hearth/pkg/domain"
)

type key struct {
	tenant id.TenantID
	user   id.UserID
}

// InMemory stores memberships keyed by (tenant, user).
type InMemory struct {
	mu      sync.RWMutex
	members map[key]models.Membership
}

func NewInMemory() *InMemory {
	return &InMemory{members: make(map[key]models.Membership)}
}

// Create inserts a membership; a second row for the same (tenant, user) is rejected.
func (s *InMemory) Create(_ context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{m.TenantID, m.UserID}
	if _, exists := s.members[k]; exists {
		return fmt.Errorf("membership exists: %w", sentinel.ErrAlreadyUsed)
	}
	s.members[k] = *m
	return nil
}

// Find returns the membership of user in tenant.
func (s *InMemory) Find(_ context.Context, tenantID id.TenantID, userID id.UserID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[key{tenantID, userID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &m, nil
}

// ListByTenant returns the tenant's memberships, oldest first.
func (s *InMemory) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Membership, 0)
	for k, m := range s.members {
		if k.tenant != tenantID {
			continue
		}
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
