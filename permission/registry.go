package permission

import (
	"errors"
	"sync"
)

// Registry assigns each permission tag a stable position. Positions give the
// permission list of a role a deterministic order.
type Registry struct {
	mu      sync.RWMutex
	indexOf map[string]int
	names   []string
	frozen  bool
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{
		indexOf: make(map[string]int),
	}
}

// Register adds a permission tag and returns its position. Must be called before
// [Registry.Freeze].
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, errors.New("registry frozen")
	}

	if name == "" {
		return -1, errors.New("permission name cannot be empty")
	}

	if _, exists := r.indexOf[name]; exists {
		return -1, errors.New("permission already registered")
	}

	next := len(r.names)
	r.indexOf[name] = next
	r.names = append(r.names, name)

	return next, nil
}

// Index returns the position of the named permission, or false if not registered.
func (r *Registry) Index(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.indexOf[name]
	return idx, ok
}

// Names returns all registered tags in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
