package eventRepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"smartcalendar/models"
)

// MemoryEventRepo keeps events in process memory. Used when STORE_DRIVER=memory and in tests.
type MemoryEventRepo struct {
	mu     sync.RWMutex
	events []models.Event
}

// NewMemoryEventRepo returns an empty in-memory store seeded with events.
func NewMemoryEventRepo(seed ...models.Event) *MemoryEventRepo {
	r := &MemoryEventRepo{}
	for _, e := range seed {
		r.events = append(r.events, prepareNew(e))
	}
	return r
}

func (r *MemoryEventRepo) ListMatching(_ context.Context, filter models.EventFilter) ([]models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Event{}
	for _, e := range r.events {
		if Matches(e, filter) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out, nil
}

func (r *MemoryEventRepo) GetByID(_ context.Context, id string) (*models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		e := r.events[i]
		return &e, nil
	}
	return nil, ErrEventNotFound
}

func (r *MemoryEventRepo) Create(_ context.Context, event models.Event) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event = prepareNew(event)
	r.events = append(r.events, event)
	return &event, nil
}

func (r *MemoryEventRepo) Update(_ context.Context, id string, changes models.EventChanges) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrEventNotFound
	}
	e := &r.events[i]
	if changes.ClientName != nil {
		e.ClientName = *changes.ClientName
	}
	if changes.Service != nil {
		e.Service = *changes.Service
	}
	if changes.DateTime != nil {
		e.DateTime = *changes.DateTime
	}
	if changes.Duration != nil {
		e.Duration = *changes.Duration
	}
	if changes.Notes != nil {
		e.Notes = *changes.Notes
	}
	updated := *e
	return &updated, nil
}

func (r *MemoryEventRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return false, nil
	}
	r.events = append(r.events[:i], r.events[i+1:]...)
	return true, nil
}

// Len returns the number of stored events.
func (r *MemoryEventRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

func (r *MemoryEventRepo) indexOf(id string) int {
	for i, e := range r.events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Matches applies filter to a single event the same way the Mongo query does.
func Matches(e models.Event, filter models.EventFilter) bool {
	if filter.ClientName != "" && !containsFold(e.ClientName, filter.ClientName) {
		return false
	}
	if filter.Service != "" && !containsFold(e.Service, filter.Service) {
		return false
	}
	if filter.From != nil && e.DateTime.Before(*filter.From) {
		return false
	}
	if filter.To != nil && e.DateTime.After(*filter.To) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
