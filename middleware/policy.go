package middleware

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/MrEthical07/siteguard"
)

// MatchKind selects how a [Rule] path is compared with the request path.
type MatchKind int

const (
	MatchExact MatchKind = iota
	// MatchPattern compares segment by segment. A segment written as {name} matches
	// any single non-empty segment.
	MatchPattern
	// MatchPrefix matches the path itself and anything below it.
	MatchPrefix
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchPattern:
		return "pattern"
	case MatchPrefix:
		return "prefix"
	default:
		return fmt.Sprintf("MatchKind(%d)", int(k))
	}
}

// Policy is what a route requires.
type Policy struct {
	Authenticated bool
	Roles         []siteguard.Role
	Permissions   []siteguard.Permission
	// SkipCSRF exempts mutating requests on the route from CSRF validation.
	SkipCSRF bool
	// RateLimit counts requests on the route against the caller IP.
	RateLimit bool
}

// Requirement converts the authorization part of p.
func (p Policy) Requirement() siteguard.Requirement {
	return siteguard.Requirement{
		Authenticated: p.Authenticated,
		Roles:         p.Roles,
		Permissions:   p.Permissions,
	}
}

// Rule binds a Policy to a path and an optional method set.
type Rule struct {
	// Methods restricts the rule. Empty matches every method.
	Methods []string
	Path    string
	Match   MatchKind
	Policy  Policy
}

type compiledRule struct {
	Rule
	segments []string
}

func (r compiledRule) allows(method string) bool {
	return len(r.Methods) == 0 || slices.Contains(r.Methods, method)
}

// PolicyTable resolves the policy of a request.
type PolicyTable struct {
	fallback Policy
	rules    []Rule
	exact    map[string][]compiledRule
	patterns []compiledRule
	prefixes []compiledRule
}

var errEmptyPath = errors.New("rule path must start with /")

// NewPolicyTable compiles rules. fallback applies to requests no rule matches.
func NewPolicyTable(fallback Policy, rules ...Rule) (*PolicyTable, error) {
	t := &PolicyTable{
		fallback: fallback,
		exact:    make(map[string][]compiledRule),
	}

	for i, rule := range rules {
		if !strings.HasPrefix(rule.Path, "/") {
			return nil, fmt.Errorf("rule %d (%q): %w", i, rule.Path, errEmptyPath)
		}
		methods := make([]string, len(rule.Methods))
		for j, m := range rule.Methods {
			methods[j] = strings.ToUpper(strings.TrimSpace(m))
		}
		rule.Methods = methods
		t.rules = append(t.rules, rule)

		cr := compiledRule{Rule: rule}
		switch rule.Match {
		case MatchExact:
			t.exact[rule.Path] = append(t.exact[rule.Path], cr)
		case MatchPattern:
			cr.segments = splitPath(rule.Path)
			t.patterns = append(t.patterns, cr)
		case MatchPrefix:
			cr.Path = strings.TrimSuffix(rule.Path, "/")
			t.prefixes = append(t.prefixes, cr)
		default:
			return nil, fmt.Errorf("rule %d (%q): unknown match kind %d", i, rule.Path, rule.Match)
		}
	}

	// Longest prefix first; ties keep declaration order.
	sort.SliceStable(t.prefixes, func(a, b int) bool {
		return len(t.prefixes[a].Path) > len(t.prefixes[b].Path)
	})

	return t, nil
}

// Lookup returns the policy for method and path, and whether a rule matched.
func (t *PolicyTable) Lookup(method, path string) (Policy, bool) {
	if t == nil {
		return Policy{}, false
	}

	for _, r := range t.exact[path] {
		if r.allows(method) {
			return r.Policy, true
		}
	}

	segments := splitPath(path)
	for _, r := range t.patterns {
		if r.allows(method) && matchSegments(r.segments, segments) {
			return r.Policy, true
		}
	}

	for _, r := range t.prefixes {
		if r.allows(method) && hasPathPrefix(path, r.Path) {
			return r.Policy, true
		}
	}

	return t.fallback, false
}

// Vocabulary reports which roles and permissions exist. [*siteguard.Engine]
// implements it.
type Vocabulary interface {
	HasRole(role siteguard.Role) bool
	HasPermission(perm siteguard.Permission) bool
}

var (
	ErrUnknownRole       = errors.New("unknown role")
	ErrUnknownPermission = errors.New("unknown permission")
)

// Validate checks every role and permission the table names against vocab. A
// misspelled name would otherwise deny every request on its route.
func (t *PolicyTable) Validate(vocab Vocabulary) error {
	if t == nil || vocab == nil {
		return nil
	}

	var errs []error
	check := func(where string, p Policy) {
		for _, r := range p.Roles {
			if !vocab.HasRole(r) {
				errs = append(errs, fmt.Errorf("%s: %w %q", where, ErrUnknownRole, r))
			}
		}
		for _, perm := range p.Permissions {
			if !vocab.HasPermission(perm) {
				errs = append(errs, fmt.Errorf("%s: %w %q", where, ErrUnknownPermission, perm))
			}
		}
	}

	check("default", t.fallback)
	for i, r := range t.rules {
		check(fmt.Sprintf("rule %d (%q)", i, r.Path), r.Policy)
	}
	return errors.Join(errs...)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, seg := range pattern {
		if isWildcard(seg) {
			if path[i] == "" {
				return false
			}
			continue
		}
		if seg != path[i] {
			return false
		}
	}
	return true
}

func isWildcard(seg string) bool {
	return len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}'
}

func hasPathPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
