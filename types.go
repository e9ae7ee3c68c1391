package siteguard

import (
	"slices"
	"time"
)

// Role is one of the closed set of account roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEmployer  Role = "employer"
	RoleCandidate Role = "candidate"
	RoleGuest     Role = "guest"
)

// Permission is a permission tag of the form resource:action.
type Permission string

const (
	PermJobsView           Permission = "jobs:view"
	PermJobsCreate         Permission = "jobs:create"
	PermJobsEdit           Permission = "jobs:edit"
	PermJobsDelete         Permission = "jobs:delete"
	PermApplicationsView   Permission = "applications:view"
	PermApplicationsCreate Permission = "applications:create"
	PermCompanyManage      Permission = "company:manage"
	PermProfileEdit        Permission = "profile:edit"
	PermUsersManage        Permission = "users:manage"
	PermAnalyticsView      Permission = "analytics:view"
)

// AllPermissions returns every built-in permission in registry order.
func AllPermissions() []Permission {
	return []Permission{
		PermJobsView,
		PermJobsCreate,
		PermJobsEdit,
		PermJobsDelete,
		PermApplicationsView,
		PermApplicationsCreate,
		PermCompanyManage,
		PermProfileEdit,
		PermUsersManage,
		PermAnalyticsView,
	}
}

// RoleDefinition is the static grant of one role. A superuser role passes every role
// and permission check, including permissions it was never granted.
type RoleDefinition struct {
	Permissions []Permission
	Superuser   bool
}

// DefaultRoles returns the built-in role map.
func DefaultRoles() map[Role]RoleDefinition {
	return map[Role]RoleDefinition{
		RoleAdmin: {
			Permissions: AllPermissions(),
			Superuser:   true,
		},
		RoleEmployer: {
			Permissions: []Permission{
				PermJobsView,
				PermJobsCreate,
				PermJobsEdit,
				PermJobsDelete,
				PermApplicationsView,
				PermCompanyManage,
			},
		},
		RoleCandidate: {
			Permissions: []Permission{
				PermJobsView,
				PermApplicationsCreate,
				PermApplicationsView,
				PermProfileEdit,
			},
		},
		RoleGuest: {
			Permissions: []Permission{PermJobsView},
		},
	}
}

// Identity is what the login flow hands over once credentials are verified.
type Identity struct {
	ID        string
	Email     string
	Role      Role
	CompanyID *string
}

// Session is the verified content of a session cookie.
type Session struct {
	UserID      string
	Email       string
	Role        Role
	CompanyID   *string
	Permissions []Permission
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// HasPermission reports whether perm was granted at issuance. It does not apply the
// superuser bypass; use [Engine.Authorize] for access decisions.
func (s *Session) HasPermission(perm Permission) bool {
	return s != nil && slices.Contains(s.Permissions, perm)
}

// Requirement describes what a protected operation needs from the caller.
type Requirement struct {
	// Authenticated requires a valid session even when no role or permission is listed.
	Authenticated bool
	// Roles lists acceptable roles. Any one matches.
	Roles []Role
	// Permissions lists tags that must all be held.
	Permissions []Permission
}

// IsZero reports whether r places no requirement on the caller.
func (r Requirement) IsZero() bool {
	return !r.Authenticated && len(r.Roles) == 0 && len(r.Permissions) == 0
}

const (
	// ReasonShortWindow tags a rejection by the burst window.
	ReasonShortWindow = "15min_limit"
	// ReasonDailyWindow tags a rejection by the daily cap.
	ReasonDailyWindow = "daily_limit"
)

// RateLimitResult is the verdict of [Engine.CheckLimit].
type RateLimitResult struct {
	Success   bool
	Limit     int
	Remaining int
	Reset     time.Time
	// Reason is ReasonShortWindow or ReasonDailyWindow when Success is false.
	Reason string
	// Degraded is set when the shared store could not answer.
	Degraded bool
}

// RetryAfter returns the time until Reset, rounded up to whole seconds and never
// negative.
func (r RateLimitResult) RetryAfter(now time.Time) time.Duration {
	d := r.Reset.Sub(now)
	if d <= 0 {
		return 0
	}
	return ((d + time.Second - 1) / time.Second) * time.Second
}
