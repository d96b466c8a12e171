package featureflags

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps flags for the life of the process. Admin changes
// are lost on restart and each instance holds its own values.
type MemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]Flag
}

// NewMemoryRepository returns a repository holding only overrides. Keys it
// lacks are answered by the service defaults.
func NewMemoryRepository(overrides ...*Flag) *MemoryRepository {
	r := &MemoryRepository{flags: make(map[string]Flag, len(overrides))}
	for _, f := range overrides {
		r.flags[f.Key] = *f
	}
	return r
}

// GetAllFlags returns copies of every stored flag.
func (r *MemoryRepository) GetAllFlags(_ context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Flag, len(r.flags))
	for key, f := range r.flags {
		out[key] = &f
	}
	return out, nil
}

// SetFlags stores every flag under one lock.
func (r *MemoryRepository) SetFlags(_ context.Context, flags []*Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, f := range flags {
		at := f.UpdatedAt
		if at.IsZero() {
			at = now
		}
		r.flags[f.Key] = Flag{Key: f.Key, Value: f.Value, UpdatedAt: at}
	}
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
