package permission

import (
	"errors"
	"slices"
	"sync"
)

type roleBinding struct {
	permissions []string
	superuser   bool
}

// RoleManager binds roles to permission sets.
//
// RoleManager instances are configured during initialization, frozen, and then
// treated as immutable.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]roleBinding
	frozen bool
}

// NewRoleManager creates a [RoleManager] that validates tags against registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]roleBinding),
	}
}

// RegisterRole binds roleName to permissionNames. Every tag must already be in the
// registry. A superuser role satisfies every check regardless of its explicit list.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string, superuser bool) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}

	if roleName == "" {
		return errors.New("role name empty")
	}

	if _, exists := rm.roles[roleName]; exists {
		return errors.New("role already registered")
	}

	seen := make(map[string]struct{}, len(permissionNames))
	perms := make([]string, 0, len(permissionNames))
	for _, perm := range permissionNames {
		if _, ok := rm.registry.Index(perm); !ok {
			return errors.New("permission not registered: " + perm)
		}
		if _, dup := seen[perm]; dup {
			continue
		}
		seen[perm] = struct{}{}
		perms = append(perms, perm)
	}

	slices.SortFunc(perms, func(a, b string) int {
		ia, _ := rm.registry.Index(a)
		ib, _ := rm.registry.Index(b)
		return ia - ib
	})

	rm.roles[roleName] = roleBinding{permissions: perms, superuser: superuser}
	return nil
}

// Permissions returns a copy of the permission list bound to roleName, in registry
// order, or false when the role is unknown.
func (rm *RoleManager) Permissions(roleName string) ([]string, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	binding, ok := rm.roles[roleName]
	if !ok {
		return nil, false
	}
	out := make([]string, len(binding.permissions))
	copy(out, binding.permissions)
	return out, true
}

// Has reports whether roleName is registered.
func (rm *RoleManager) Has(roleName string) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	_, ok := rm.roles[roleName]
	return ok
}

// IsSuperuser reports whether roleName was registered as a superuser.
func (rm *RoleManager) IsSuperuser(roleName string) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.roles[roleName].superuser
}

// Freeze prevents further role registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of registered roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
