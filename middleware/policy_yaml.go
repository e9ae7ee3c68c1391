package middleware

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MrEthical07/siteguard"
	"gopkg.in/yaml.v3"
)

type policyFile struct {
	Default policyEntry  `yaml:"default"`
	Rules   []policyRule `yaml:"rules"`
}

type policyEntry struct {
	Authenticated bool     `yaml:"authenticated,omitempty"`
	Roles         []string `yaml:"roles,omitempty"`
	Permissions   []string `yaml:"permissions,omitempty"`
	SkipCSRF      bool     `yaml:"skip_csrf,omitempty"`
	RateLimit     bool     `yaml:"rate_limit,omitempty"`
}

type policyRule struct {
	Path        string   `yaml:"path"`
	Match       string   `yaml:"match,omitempty"`
	Methods     []string `yaml:"methods,omitempty"`
	policyEntry `yaml:",inline"`
}

// LoadPolicyFile reads a YAML route policy file. See [LoadPolicyTable].
func LoadPolicyFile(path string, vocab Vocabulary) (*PolicyTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return LoadPolicyTable(bytes.NewReader(data), vocab)
}

// LoadPolicyTable decodes a YAML route policy document:
//
//	default:
//	  rate_limit: false
//	rules:
//	  - path: /api/admin
//	    match: prefix
//	    roles: [admin]
//	  - path: /api/jobs/{id}
//	    match: pattern
//	    methods: [PUT, DELETE]
//	    permissions: [jobs:edit]
//
// match defaults to exact. Unknown keys are rejected, and so are role and
// permission names vocab does not know (see [PolicyTable.Validate]). A nil vocab
// skips the name check.
func LoadPolicyTable(r io.Reader, vocab Vocabulary) (*PolicyTable, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file policyFile
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, pr := range file.Rules {
		kind, err := parseMatchKind(pr.Match)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, pr.Path, err)
		}
		rules = append(rules, Rule{
			Methods: pr.Methods,
			Path:    pr.Path,
			Match:   kind,
			Policy:  pr.policyEntry.policy(),
		})
	}

	table, err := NewPolicyTable(file.Default.policy(), rules...)
	if err != nil {
		return nil, err
	}
	if err := table.Validate(vocab); err != nil {
		return nil, fmt.Errorf("invalid policy file: %w", err)
	}
	return table, nil
}

func (e policyEntry) policy() Policy {
	p := Policy{
		Authenticated: e.Authenticated,
		SkipCSRF:      e.SkipCSRF,
		RateLimit:     e.RateLimit,
	}
	for _, r := range e.Roles {
		p.Roles = append(p.Roles, siteguard.Role(r))
	}
	for _, perm := range e.Permissions {
		p.Permissions = append(p.Permissions, siteguard.Permission(perm))
	}
	return p
}

func parseMatchKind(s string) (MatchKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return MatchExact, nil
	case "pattern":
		return MatchPattern, nil
	case "prefix":
		return MatchPrefix, nil
	default:
		return 0, fmt.Errorf("unknown match %q", s)
	}
}
