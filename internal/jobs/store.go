package jobs

import (
	"context"
	"sync"
	"time"
)

// Store persists jobs. Implementations must be safe for concurrent use.
type Store interface {
	// Create stores a new job. It fails with ErrExists if the ID is taken.
	Create(ctx context.Context, j *Job) error

	// Get returns a copy of the job or ErrNotFound.
	Get(ctx context.Context, id string) (*Job, error)

	// Update applies mutate to the stored job and returns the result.
	Update(ctx context.Context, id string, mutate func(*Job)) (*Job, error)

	// Delete removes a job. Deleting an unknown job is not an error.
	Delete(ctx context.Context, id string) error

	// Expire schedules the job's removal after d.
	Expire(ctx context.Context, id string, d time.Duration) error

	// Close releases the store's resources.
	Close() error
}

// MemoryStore keeps jobs in process memory. Expiry timers belong to the
// store and are stopped by Close.
type MemoryStore struct {
	mu     sync.Mutex
	jobs   map[string]*Job
	timers map[string]*time.Timer
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:   make(map[string]*Job),
		timers: make(map[string]*time.Timer),
	}
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, j *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.ID]; ok {
		return ErrExists
	}
	m.jobs[j.ID] = j.Clone()
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j.Clone(), nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, id string, mutate func(*Job)) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	mutate(j)
	return j.Clone(), nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
	return nil
}

// Expire implements Store. A later call replaces the earlier timer.
func (m *MemoryStore) Expire(_ context.Context, id string, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return ErrNotFound
	}
	if t, ok := m.timers[id]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// Only the current timer may remove the job.
		if m.timers[id] == t {
			m.removeLocked(id)
		}
	})
	m.timers[id] = t
	return nil
}

// Close stops every pending expiry timer. Jobs stay readable.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	return nil
}

// Len reports the number of stored jobs.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

func (m *MemoryStore) removeLocked(id string) {
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	delete(m.jobs, id)
}
