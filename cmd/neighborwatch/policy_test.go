// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPolicy(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewPolicyCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const patrolPolicy = `version: "1.2.0"
login_path: /signin
rules:
  - role: security
    resources: ["/patrol/**"]
  - role: member
    resources: ["/member/dashboard"]
`

func TestPolicyValidate(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writePolicy(t, patrolPolicy)
		out, err := runPolicy(t, "validate", path)
		require.NoError(t, err)
		assert.Contains(t, out, "valid (version 1.2.0, 2 rules)")
	})

	t.Run("unknown role fails the schema", func(t *testing.T) {
		path := writePolicy(t, "version: \"1.0.0\"\nrules:\n  - role: janitor\n    resources: [\"/x\"]\n")
		_, err := runPolicy(t, "validate", path)
		assert.Error(t, err)
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := writePolicy(t, "version: \"2.0.0\"\nrules:\n  - role: member\n    resources: [\"/x\"]\n")
		_, err := runPolicy(t, "validate", path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := runPolicy(t, "validate", filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestPolicySchema(t *testing.T) {
	out, err := runPolicy(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"rules"`)
	assert.Contains(t, out, `"login_path"`)
}

func TestPolicyCheck(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"anonymous on dashboard", []string{"check", "/member/dashboard"}, "deny (no_session), redirect to /login"},
		{"member on own dashboard", []string{"check", "--role", "member", "/member/dashboard"}, "allow (allowed)"},
		{"member on admin dashboard", []string{"check", "--role", "member", "/admin/dashboard"}, "deny (role_mismatch)"},
		{"unverified member", []string{"check", "--role", "member", "--unverified", "/member/dashboard"}, "deny (unverified)"},
		{"public path", []string{"check", "/login"}, "allow (public)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runPolicy(t, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}

	t.Run("custom file", func(t *testing.T) {
		path := writePolicy(t, patrolPolicy)
		out, err := runPolicy(t, "check", "--file", path, "/patrol/north/log")
		require.NoError(t, err)
		assert.Contains(t, out, "redirect to /signin")
	})
}
