package status_test

import (
	"errors"
	"strings"
	"testing"

	"kanbansync/pkg/protocol"
	"kanbansync/pkg/status"
)

func defaultMap() map[string]string {
	return map[string]string{
		"backlog": "Backlog",
		"doing":   "Doing",
		"review":  "Review",
		"done":    "Done",
		"paused":  "Paused",
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Doing ", "doing"},
		{"DONE", "done"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := status.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultsWhenUnset(t *testing.T) {
	tax, err := status.New(status.Spec{StatusMap: defaultMap()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(tax.Allowed(), ","); got != "backlog,doing,review,done,paused" {
		t.Errorf("unexpected allowed statuses %q", got)
	}
	if got := strings.Join(tax.Completion(), ","); got != "done" {
		t.Errorf("unexpected completion statuses %q", got)
	}
	if tax.DefaultImport() != "backlog" {
		t.Errorf("expected default import backlog, got %q", tax.DefaultImport())
	}
}

func TestListsAreNormalizedAndDeduplicated(t *testing.T) {
	spec := status.Spec{
		Allowed:    []string{" Inbox", "inbox", "BUILD", "", "released"},
		Completion: []string{"Released", "released"},
		StatusMap:  map[string]string{"inbox": "Inbox", "Build": "Build", "released": "Released"},
	}
	tax, err := status.New(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(tax.Allowed(), ","); got != "inbox,build,released" {
		t.Errorf("unexpected allowed %q", got)
	}
	if got := strings.Join(tax.Completion(), ","); got != "released" {
		t.Errorf("unexpected completion %q", got)
	}
	if !tax.IsCompletion(" RELEASED ") {
		t.Error("expected RELEASED to be a completion status")
	}
}

func TestValidate_MissingStatusMapKey(t *testing.T) {
	err := status.Validate(status.Spec{
		Allowed:   []string{"a", "b", "c"},
		StatusMap: map[string]string{"a": "A", "b": "B"},
	})
	var cfgErr *protocol.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if !strings.Contains(err.Error(), "status_map is missing allowed statuses: c") {
		t.Errorf("error does not name the missing status: %v", err)
	}
}

func TestValidate_CompletionOutsideAllowed(t *testing.T) {
	err := status.Validate(status.Spec{
		Allowed:    []string{"a", "b", "c"},
		Completion: []string{"d"},
		StatusMap:  map[string]string{"a": "A", "b": "B", "c": "C"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "completion_statuses must be a subset") || !strings.Contains(err.Error(), "d") {
		t.Errorf("error does not name d: %v", err)
	}
}

func TestValidate_DefaultImportOutsideAllowed(t *testing.T) {
	err := status.Validate(status.Spec{StatusMap: defaultMap(), DefaultImport: "Triage"})
	if err == nil || !strings.Contains(err.Error(), "triage") {
		t.Fatalf("expected error naming triage, got %v", err)
	}
}

func TestValidate_EmptyAllowed(t *testing.T) {
	err := status.Validate(status.Spec{Allowed: []string{}, StatusMap: defaultMap()})
	if err == nil || !strings.Contains(err.Error(), "at least one") {
		t.Fatalf("expected empty allowed list to fail, got %v", err)
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	err := status.Validate(status.Spec{
		Allowed:       []string{"a", "b"},
		Completion:    []string{"z"},
		StatusMap:     map[string]string{"a": "A"},
		DefaultImport: "q",
	})
	var cfgErr *protocol.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if len(cfgErr.Problems) != 3 {
		t.Errorf("expected 3 problems, got %d: %v", len(cfgErr.Problems), cfgErr.Problems)
	}
}

func TestValidateTasks(t *testing.T) {
	tax, err := status.New(status.Spec{StatusMap: defaultMap()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tasks := []*protocol.Task{
		{ID: "T-001", Status: "doing"},
		{ID: "T-002", Status: "Design"},
		{ID: "T-003", Status: "design"},
		{ID: "T-004", Status: "qa"},
	}
	err = tax.ValidateTasks(tasks)
	var invErr *protocol.InvalidStatusError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvalidStatusError, got %v", err)
	}
	if got := strings.Join(invErr.Invalid, ","); got != "design,qa" {
		t.Errorf("expected each invalid value once, got %q", got)
	}

	if err := tax.ValidateTasks(tasks[:1]); err != nil {
		t.Errorf("expected valid tasks to pass, got %v", err)
	}
}

func TestNormalizeCompletion(t *testing.T) {
	tax, err := status.New(status.Spec{StatusMap: defaultMap()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name      string
		status    string
		completed string
		want      string
	}{
		{"done without date gets fallback", "done", "", "2026-03-01"},
		{"done keeps existing date", "done", "2026-01-01", "2026-01-01"},
		{"doing clears date", "doing", "2026-01-01", ""},
		{"backlog stays empty", "backlog", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &protocol.Task{Status: tt.status, Completed: tt.completed}
			tax.NormalizeCompletion(task, "2026-03-01")
			if task.Completed != tt.want {
				t.Errorf("completed = %q, want %q", task.Completed, tt.want)
			}
			if (task.Completed != "") != tax.IsCompletion(task.Status) {
				t.Error("completed must be set iff status is a completion status")
			}
		})
	}
}

func TestStatusMapLookups(t *testing.T) {
	tax, err := status.New(status.Spec{StatusMap: defaultMap()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name, ok := tax.RemoteName("Review"); !ok || name != "Review" {
		t.Errorf("RemoteName(Review) = %q, %v", name, ok)
	}
	if local, ok := tax.LocalFor("Paused"); !ok || local != "paused" {
		t.Errorf("LocalFor(Paused) = %q, %v", local, ok)
	}
	if _, ok := tax.LocalFor("Unknown"); ok {
		t.Error("expected unknown board option to have no local status")
	}
	if tax.FirstCompletion() != "done" {
		t.Errorf("expected first completion done, got %q", tax.FirstCompletion())
	}
}
