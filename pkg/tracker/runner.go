// Package tracker is the remote side of the store adapter: GitHub issues and
// the optional Projects v2 board, reached through the gh CLI. Authentication
// and transport are left to gh.
package tracker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a gh command and returns its stdout.
// Production code uses ExecRunner; tests inject a scripted fake.
type Runner interface {
	Run(ctx context.Context, stdin []byte, args ...string) ([]byte, error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct {
	// Bin is the gh executable; empty means "gh" from PATH.
	Bin string
}

// Run executes gh with args, feeding stdin when non-nil.
func (r *ExecRunner) Run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	bin := r.Bin
	if bin == "" {
		bin = "gh"
	}
	cmd := exec.CommandContext(ctx, bin, args...) //nolint:gosec // args are built by this package
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

// CommandError is a failed gh invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	cmd := "gh"
	if len(e.Args) > 0 {
		cmd += " " + e.Args[0]
	}
	if len(e.Args) > 1 {
		cmd += " " + e.Args[1]
	}
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", cmd, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", cmd, e.Stderr, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
