package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"hearth/internal/sentinel"
	"hearth/internal/usage/models"
	id "hearth/pkg/domain"
)

// InMemory is an append-only slice guarded by a RWMutex.
type InMemory struct {
	mu     sync.RWMutex
	events []*models.UsageEvent
	ids    map[id.UsageEventID]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{ids: make(map[id.UsageEventID]struct{})}
}

func (s *InMemory) Append(_ context.Context, event *models.UsageEvent) error {
	if event == nil {
		return fmt.Errorf("usage event is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[event.ID]; ok {
		return fmt.Errorf("usage event %s: %w", event.ID, sentinel.ErrAlreadyUsed)
	}
	s.ids[event.ID] = struct{}{}
	s.events = append(s.events, event.Clone())
	return nil
}

func (s *InMemory) History(_ context.Context, scope models.Scope, q models.Query) ([]*models.UsageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.UsageEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if scope.Matches(e) && q.Matches(e) {
			matched = append(matched, e)
		}
	}
	// Newest first; equal timestamps keep reverse insertion order.
	slices.SortStableFunc(matched, func(a, b *models.UsageEvent) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if q.Offset >= len(matched) {
		return []*models.UsageEvent{}, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	out := make([]*models.UsageEvent, len(matched))
	for i, e := range matched {
		out[i] = e.Clone()
	}
	return out, nil
}

var (
	_ Appender = (*InMemory)(nil)
	_ Reader   = (*InMemory)(nil)
)
