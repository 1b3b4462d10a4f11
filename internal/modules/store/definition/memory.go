package definition

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"hearth/internal/modules/models"
	"hearth/internal/sentinel"
	id "hearth/pkg/domain"
)

// InMemory stores module definitions in memory for development and tests.
type InMemory struct {
	mu   sync.RWMutex
	defs map[id.ModuleID]*models.Definition
}

func NewInMemory() *InMemory {
	return &InMemory{defs: make(map[id.ModuleID]*models.Definition)}
}

func (s *InMemory) Create(_ context.Context, d *models.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.defs[d.ID]; exists {
		return fmt.Errorf("module definition exists: %w", sentinel.ErrAlreadyUsed)
	}
	stored := *d
	s.defs[d.ID] = &stored
	return nil
}

func (s *InMemory) FindByID(_ context.Context, moduleID id.ModuleID) (*models.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.defs[moduleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (s *InMemory) SetActive(_ context.Context, moduleID id.ModuleID, active bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.defs[moduleID]
	if !ok {
		return sentinel.ErrNotFound
	}
	d.IsActive = active
	d.UpdatedAt = now
	return nil
}

// List returns all definitions ordered by id.
func (s *InMemory) List(_ context.Context) ([]*models.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Definition, 0, len(s.defs))
	for _, d := range s.defs {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
