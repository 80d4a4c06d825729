// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package guard

import (
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/Skets-max/Project-473/internal/auth"
)

// SupportedPolicyVersions is the range of policy file versions this build reads.
const SupportedPolicyVersions = "^1.0.0"

// Policy is the on-disk authorization table.
type Policy struct {
	Version   string `yaml:"version" json:"version" jsonschema:"required,description=Policy format version (semver)"`
	LoginPath string `yaml:"login_path,omitempty" json:"login_path,omitempty" jsonschema:"description=Where denied requests are redirected,pattern=^/"`
	Rules     []Rule `yaml:"rules" json:"rules" jsonschema:"required,minItems=1"`
}

// Rule grants one role a set of resources, given as glob patterns over
// request paths. "*" stays within a path segment and "**" crosses them.
type Rule struct {
	Role      auth.Role `yaml:"role" json:"role" jsonschema:"required,enum=admin,enum=security,enum=member"`
	Resources []string  `yaml:"resources" json:"resources" jsonschema:"required,minItems=1"`
}

// DefaultPolicy keeps each role's dashboard and API area to that role.
func DefaultPolicy() Policy {
	return Policy{
		Version:   "1.0.0",
		LoginPath: DefaultLoginPath,
		Rules: []Rule{
			{Role: auth.RoleAdmin, Resources: []string{"/admin/dashboard", "/admin/dashboard/**", "/api/admin/**"}},
			{Role: auth.RoleSecurity, Resources: []string{"/security/dashboard", "/security/dashboard/**", "/api/security/**"}},
			{Role: auth.RoleMember, Resources: []string{"/member/dashboard", "/member/dashboard/**", "/api/member/**"}},
		},
	}
}

// ParsePolicy schema-validates and decodes a YAML policy, then checks its version.
func ParsePolicy(data []byte) (Policy, error) {
	if err := ValidateSchema(data); err != nil {
		return Policy{}, oops.Code("POLICY_INVALID").Wrap(err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, oops.Code("POLICY_INVALID").With("operation", "decode policy").Wrap(err)
	}
	if err := p.checkVersion(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// LoadPolicy reads a policy file. An empty path returns DefaultPolicy.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return Policy{}, oops.Code("POLICY_READ_FAILED").With("path", path).Wrap(err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return Policy{}, oops.With("path", path).Wrap(err)
	}
	return p, nil
}

func (p Policy) checkVersion() error {
	v, err := semver.StrictNewVersion(p.Version)
	if err != nil {
		return oops.Code("POLICY_BAD_VERSION").With("version", p.Version).Wrap(err)
	}
	constraint, err := semver.NewConstraint(SupportedPolicyVersions)
	if err != nil {
		return oops.Code("POLICY_BAD_VERSION").Wrap(err)
	}
	if !constraint.Check(v) {
		return oops.Code("POLICY_UNSUPPORTED_VERSION").
			With("version", p.Version).
			With("supported", SupportedPolicyVersions).
			Errorf("policy version %s is not supported", p.Version)
	}
	return nil
}
