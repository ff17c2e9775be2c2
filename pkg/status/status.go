// Package status defines the local lifecycle states a task may be in, which
// of them count as complete, and how they map to remote board options.
package status

import (
	"fmt"
	"slices"
	"strings"

	"kanbansync/pkg/protocol"
)

// Default workflow used when the config does not name one.
//
//nolint:gochecknoglobals // read-only defaults
var (
	DefaultAllowed    = []string{"backlog", "doing", "review", "done", "paused"}
	DefaultCompletion = []string{"done"}
)

// Taxonomy is the validated status configuration of a run.
type Taxonomy struct {
	allowed       []string
	completion    []string
	statusMap     map[string]string
	remoteToLocal map[string]string
	defaultImport string
}

// Spec is the raw, unvalidated status configuration.
// A nil Allowed or Completion falls back to the defaults; an empty non-nil
// list is kept as given and rejected by Validate.
type Spec struct {
	Allowed       []string
	Completion    []string
	StatusMap     map[string]string
	DefaultImport string
}

// Normalize trims and lowercases a status value.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := Normalize(v)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// AllowedStatuses returns the normalized, deduplicated allowed statuses of spec.
func (s Spec) AllowedStatuses() []string {
	if s.Allowed == nil {
		return slices.Clone(DefaultAllowed)
	}
	return normalizeList(s.Allowed)
}

// CompletionStatuses returns the normalized, deduplicated completion statuses.
func (s Spec) CompletionStatuses() []string {
	if s.Completion == nil {
		return slices.Clone(DefaultCompletion)
	}
	return normalizeList(s.Completion)
}

// NormalizedMap returns the status map with normalized local keys. Entries
// with an empty key are dropped.
func (s Spec) NormalizedMap() map[string]string {
	out := make(map[string]string, len(s.StatusMap))
	for local, remote := range s.StatusMap {
		key := Normalize(local)
		if key == "" {
			continue
		}
		out[key] = remote
	}
	return out
}

// Validate checks the status invariants: the status map covers every allowed
// status, completion statuses are allowed, and the bootstrap default is
// allowed. All problems are reported together.
func Validate(spec Spec) error {
	allowed := spec.AllowedStatuses()
	completion := spec.CompletionStatuses()
	statusMap := spec.NormalizedMap()

	var problems []string
	if len(allowed) == 0 {
		problems = append(problems, "allowed_statuses must include at least one status")
	}

	var missing []string
	for _, st := range allowed {
		if _, ok := statusMap[st]; !ok {
			missing = append(missing, st)
		}
	}
	if len(missing) > 0 {
		problems = append(problems, "status_map is missing allowed statuses: "+strings.Join(missing, ", "))
	}

	var invalid []string
	for _, st := range completion {
		if !slices.Contains(allowed, st) {
			invalid = append(invalid, st)
		}
	}
	if len(invalid) > 0 {
		problems = append(problems,
			"completion_statuses must be a subset of allowed_statuses. Invalid values: "+strings.Join(invalid, ", "))
	}

	if d := Normalize(spec.DefaultImport); d != "" && !slices.Contains(allowed, d) {
		problems = append(problems, "bootstrap.default_status_for_imported_issues is not in allowed_statuses: "+d)
	}

	if len(problems) > 0 {
		return &protocol.ConfigError{Problems: problems}
	}
	return nil
}

// New validates spec and returns the resulting Taxonomy.
func New(spec Spec) (*Taxonomy, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}
	statusMap := spec.NormalizedMap()
	allowed := spec.AllowedStatuses()

	// Inverse lookup; on duplicate remote names the first allowed status wins.
	remoteToLocal := make(map[string]string, len(statusMap))
	for _, local := range allowed {
		remote := statusMap[local]
		if _, dup := remoteToLocal[remote]; !dup {
			remoteToLocal[remote] = local
		}
	}

	defaultImport := Normalize(spec.DefaultImport)
	if defaultImport == "" {
		defaultImport = allowed[0]
	}

	return &Taxonomy{
		allowed:       allowed,
		completion:    spec.CompletionStatuses(),
		statusMap:     statusMap,
		remoteToLocal: remoteToLocal,
		defaultImport: defaultImport,
	}, nil
}

// Allowed returns the allowed statuses in configured order.
func (t *Taxonomy) Allowed() []string { return slices.Clone(t.allowed) }

// Completion returns the completion statuses in configured order.
func (t *Taxonomy) Completion() []string { return slices.Clone(t.completion) }

// IsAllowed reports whether s (normalized) is an allowed status.
func (t *Taxonomy) IsAllowed(s string) bool { return slices.Contains(t.allowed, Normalize(s)) }

// IsCompletion reports whether s (normalized) is a completion status.
func (t *Taxonomy) IsCompletion(s string) bool { return slices.Contains(t.completion, Normalize(s)) }

// FirstCompletion returns the first completion status, or "" when none is configured.
func (t *Taxonomy) FirstCompletion() string {
	if len(t.completion) == 0 {
		return ""
	}
	return t.completion[0]
}

// DefaultImport is the status given to imported issues with no other signal.
func (t *Taxonomy) DefaultImport() string { return t.defaultImport }

// RemoteName returns the board option name mapped to a local status.
func (t *Taxonomy) RemoteName(local string) (string, bool) {
	name, ok := t.statusMap[Normalize(local)]
	return name, ok
}

// LocalFor returns the local status mapped to a board option name.
func (t *Taxonomy) LocalFor(remoteName string) (string, bool) {
	local, ok := t.remoteToLocal[remoteName]
	return local, ok
}

// ValidateTasks fails when any task status is outside the allowed set,
// listing every offending value once.
func (t *Taxonomy) ValidateTasks(tasks []*protocol.Task) error {
	var invalid []string
	for _, task := range tasks {
		st := Normalize(task.Status)
		if !slices.Contains(t.allowed, st) && !slices.Contains(invalid, st) {
			invalid = append(invalid, st)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	return &protocol.InvalidStatusError{Invalid: invalid, Allowed: t.Allowed()}
}

// NormalizeCompletion enforces "completed is set iff status is a completion
// status": a completed task keeps its date or receives fallback, any other
// task has its date cleared.
func (t *Taxonomy) NormalizeCompletion(task *protocol.Task, fallback string) {
	if t.IsCompletion(task.Status) {
		if task.Completed == "" {
			task.Completed = fallback
		}
		return
	}
	task.Completed = ""
}

// String describes the taxonomy for logs.
func (t *Taxonomy) String() string {
	return fmt.Sprintf("allowed=%v completion=%v", t.allowed, t.completion)
}
