package permission

import "slices"

// Satisfies reports whether a holder of role with the granted tags meets the
// requirement: role must be one of roles (when any are given) and every tag in
// required must be granted. A superuser always satisfies.
func Satisfies(role string, superuser bool, granted []string, roles []string, required []string) bool {
	if superuser {
		return true
	}
	if len(roles) > 0 && !slices.Contains(roles, role) {
		return false
	}
	for _, perm := range required {
		if !slices.Contains(granted, perm) {
			return false
		}
	}
	return true
}
