// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

// Command gen-schema writes the JSON Schema of the authorization policy file.
// With --check it instead fails when the committed schema is stale.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/Skets-max/Project-473/internal/guard"
)

func main() {
	out := pflag.StringP("out", "o", filepath.Join("schemas", "policy.schema.json"), "schema output path")
	check := pflag.Bool("check", false, "compare against the existing file instead of writing it")
	pflag.Parse()

	if err := run(*out, *check); err != nil {
		fmt.Fprintln(os.Stderr, "gen-schema:", err)
		os.Exit(1)
	}
}

func run(outPath string, check bool) error {
	schema, err := guard.GenerateSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}

	if check {
		existing, err := os.ReadFile(outPath) //nolint:gosec // path from the command line
		if err != nil {
			return fmt.Errorf("read %s: %w", outPath, err)
		}
		if !bytes.Equal(bytes.TrimSpace(existing), bytes.TrimSpace(schema)) {
			return fmt.Errorf("%s is out of date; run gen-schema", outPath)
		}
		fmt.Printf("%s is up to date\n", outPath)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(outPath, schema, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Printf("Generated %s\n", outPath)
	return nil
}
