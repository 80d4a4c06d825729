// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package guard

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/Skets-max/Project-473/internal/auth"
)

type compiledResource struct {
	role    auth.Role
	pattern string
	glob    glob.Glob
}

// Table is a compiled policy. It is immutable and safe for concurrent use.
type Table struct {
	loginPath string
	resources []compiledResource
}

// NewTable compiles a policy. Every pattern must be valid glob syntax and
// every rule must name a known role.
func NewTable(p Policy) (*Table, error) {
	if err := p.checkVersion(); err != nil {
		return nil, err
	}
	t := &Table{loginPath: p.LoginPath}
	if t.loginPath == "" {
		t.loginPath = DefaultLoginPath
	}

	for _, rule := range p.Rules {
		if !rule.Role.Valid() {
			return nil, oops.Code("POLICY_INVALID_ROLE").With("role", string(rule.Role)).Errorf("unknown role %q", rule.Role)
		}
		for _, pattern := range rule.Resources {
			g, err := glob.Compile(pattern, '/')
			if err != nil {
				return nil, oops.Code("POLICY_INVALID_PATTERN").
					With("role", string(rule.Role)).
					With("pattern", pattern).
					Wrap(err)
			}
			t.resources = append(t.resources, compiledResource{role: rule.Role, pattern: pattern, glob: g})
		}
	}
	return t, nil
}

// MustDefaultTable compiles DefaultPolicy. It panics only on a programming error.
func MustDefaultTable() *Table {
	t, err := NewTable(DefaultPolicy())
	if err != nil {
		panic("invalid default guard policy: " + err.Error())
	}
	return t
}

// LoginPath is where denied requests are redirected.
func (t *Table) LoginPath() string { return t.loginPath }

// Owner returns the role that owns path. The first matching rule wins.
// ok is false for public paths.
func (t *Table) Owner(path string) (role auth.Role, ok bool) {
	for _, r := range t.resources {
		if r.glob.Match(path) {
			return r.role, true
		}
	}
	return "", false
}

// Authorize decides whether sc may access path. Paths no rule covers are public.
func (t *Table) Authorize(sc *auth.SessionContext, path string) Decision {
	role, ok := t.Owner(path)
	if !ok {
		return allow(ReasonPublic)
	}
	return check(sc, role, t.loginPath)
}
