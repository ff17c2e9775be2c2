package protocol

import (
	"fmt"
	"strings"
)

// ConfigError is an invalid configuration. It is fatal and raised before any
// I/O against the board or the tracker.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	return "invalid configuration:\n- " + strings.Join(e.Problems, "\n- ")
}

// InvalidStatusError lists task statuses outside the allowed set.
type InvalidStatusError struct {
	Invalid []string
	Allowed []string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("tasks file contains invalid statuses: %s. allowed statuses: %s",
		strings.Join(e.Invalid, ", "), strings.Join(e.Allowed, ", "))
}

// NotFoundError is a missing task or a missing remote record for a linked task.
type NotFoundError struct {
	Kind string // "task" or "issue"
	ID   string
	Hint string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %s not found", e.Kind, e.ID)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

// UnlinkedError is raised when an operation needs a remote link the task
// does not have, or has in an unrecognized format.
type UnlinkedError struct {
	TaskID     string
	ExternalID string
}

func (e *UnlinkedError) Error() string {
	if e.ExternalID == "" {
		return fmt.Sprintf("task %s is not linked (externalId is null)", e.TaskID)
	}
	return fmt.Sprintf("task %s externalId %q is not a recognized issue reference", e.TaskID, e.ExternalID)
}

// NoBaselineError is a push on a linked task that was never pulled.
type NoBaselineError struct {
	TaskID string
}

func (e *NoBaselineError) Error() string {
	return fmt.Sprintf("task %s has no sync baseline. Run %q before push", e.TaskID, CLIName+" pull")
}

// ContentConflictError is raised when the remote body and the local detail
// both changed since the baseline.
type ContentConflictError struct {
	TaskID       string
	IssueNumber  int
	ArtifactPath string
}

func (e *ContentConflictError) Error() string {
	return fmt.Sprintf("task %s (issue #%d) has concurrent detail edits. Reconcile: %s, then run %q",
		e.TaskID, e.IssueNumber, e.ArtifactPath, CLIName+" reconcile "+e.TaskID+" --accept <local|remote>")
}

// StaleError is raised when the remote changed since the baseline and the
// local detail did not.
type StaleError struct {
	TaskID      string
	IssueNumber int
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("task %s is outdated remotely (issue #%d changed since last pull). Run %q before push",
		e.TaskID, e.IssueNumber, CLIName+" pull")
}

// ConfirmationRequiredError is the bootstrap confirmation gate.
type ConfirmationRequiredError struct {
	Operation string
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("%s requires --confirm by config policy", e.Operation)
}

// AggregateError collects per-task failures of an operation that otherwise
// completed. Writes for tasks not listed were committed.
type AggregateError struct {
	Op       string
	Failures []error
	Hint     string
}

func (e *AggregateError) Error() string {
	lines := make([]string, 0, len(e.Failures)+1)
	for _, f := range e.Failures {
		lines = append(lines, f.Error())
	}
	if e.Hint != "" {
		lines = append(lines, e.Hint)
	}
	return fmt.Sprintf("%s skipped %d task(s):\n%s", e.Op, len(e.Failures), strings.Join(lines, "\n"))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error { return e.Failures }
