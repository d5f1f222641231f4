package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"schoolcal/internal/model"
)

// Memory keeps events in a map. It backs tests and the "memory" driver.
type Memory struct {
	mu     sync.RWMutex
	events map[string]model.Event
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{events: map[string]model.Event{}, now: time.Now}
}

func (m *Memory) List(_ context.Context) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.events == nil {
		return nil, ErrNotInitialized
	}
	out := make([]model.Event, 0, len(m.events))
	for _, e := range m.events {
		e.YearTags = slices.Clone(e.YearTags)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.events == nil {
		return model.Event{}, ErrNotInitialized
	}
	e, ok := m.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	e.YearTags = slices.Clone(e.YearTags)
	return e, nil
}

func (m *Memory) Put(_ context.Context, e model.Event) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events == nil {
		return model.Event{}, ErrNotInitialized
	}
	stored, err := stamp(e, m.now())
	if err != nil {
		return model.Event{}, err
	}
	m.events[stored.ID] = stored
	return stored, nil
}

// Delete of an unknown id is a no-op.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events == nil {
		return ErrNotInitialized
	}
	delete(m.events, id)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events == nil {
		return ErrNotInitialized
	}
	clear(m.events)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
	return nil
}
