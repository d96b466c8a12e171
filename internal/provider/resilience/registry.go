package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Condition summarises a provider for the status endpoints.
type Condition string

const (
	ConditionHealthy   Condition = "healthy"
	ConditionDegraded  Condition = "degraded"
	ConditionUnhealthy Condition = "unhealthy"
)

// Health is a point-in-time view of one provider.
type Health struct {
	Name   string
	State  gobreaker.State
	Counts gobreaker.Counts

	// Trips counts how often the breaker has opened since start.
	Trips int

	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Condition maps the breaker state: closed is healthy, half-open degraded
// and open unhealthy.
func (h Health) Condition() Condition {
	switch h.State {
	case gobreaker.StateOpen:
		return ConditionUnhealthy
	case gobreaker.StateHalfOpen:
		return ConditionDegraded
	default:
		return ConditionHealthy
	}
}

// Registry tracks the providers the process talks to.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*entry
}

type entry struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*entry)}
}

// Register adds client under its name, replacing any earlier client.
func (r *Registry) Register(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[client.Name()] = &entry{client: client}
}

// Record stores the outcome of one call. A nil err is a success. Unknown
// names are ignored.
func (r *Registry) Record(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.providers[name]
	if !ok {
		return
	}
	now := time.Now()
	if err == nil {
		e.lastSuccessAt = &now
		return
	}
	e.lastFailureAt = &now
	e.lastError = err.Error()
}

// Health returns the view of one provider.
func (r *Registry) Health(name string) (Health, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.providers[name]
	if !ok {
		return Health{}, false
	}
	return e.health(name), true
}

// All returns every provider ordered by name.
func (r *Registry) All() []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Health, 0, len(r.providers))
	for name, e := range r.providers {
		all = append(all, e.health(name))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

func (e *entry) health(name string) Health {
	return Health{
		Name:          name,
		State:         e.client.State(),
		Counts:        e.client.Counts(),
		Trips:         e.client.Trips(),
		LastSuccessAt: e.lastSuccessAt,
		LastFailureAt: e.lastFailureAt,
		LastError:     e.lastError,
	}
}
