// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package main

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// passwordPrompter returns a reader that prompts on cmd's output. Input
// comes from the terminal without echo when stdin is one, and otherwise
// one line at a time from cmd's input so scripts can pipe passwords in.
func passwordPrompter(cmd *cobra.Command) func(prompt string) (string, error) {
	return func(prompt string) (string, error) {
		cmd.Print(prompt)
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			b, err := term.ReadPassword(int(f.Fd()))
			cmd.Println()
			if err != nil {
				return "", oops.Code("PROMPT_FAILED").Wrap(err)
			}
			return string(b), nil
		}
		return readLine(in)
	}
}

// readLine reads up to and excluding the next newline. It reads a byte at a
// time so later prompts on the same reader see the remaining input.
func readLine(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			if sb.Len() == 0 {
				return "", oops.Code("PROMPT_NO_INPUT").Errorf("no input")
			}
			break
		}
		if err != nil {
			return "", oops.Code("PROMPT_FAILED").Wrap(err)
		}
	}
	return strings.TrimSuffix(sb.String(), "\r"), nil
}
