// Package conflict manages conflict artifacts: human-resolvable documents
// showing the base, local, and remote text of a task whose detail and issue
// body were edited concurrently.
package conflict

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kanbansync/pkg/fileutil"
	"kanbansync/pkg/protocol"
)

// DetailHeading separates the generated metadata of an issue body from the
// detail document it carries.
const DetailHeading = "## Detail"

const emptyPlaceholder = "(empty)"

// Artifact is the input of one conflict document.
type Artifact struct {
	Task  *protocol.Task
	Issue *protocol.Issue
	Base  protocol.BaselineEntry
	Local string
}

// Dir is the conflict artifact directory, <stateDir>/conflicts.
type Dir struct {
	path  string
	runID string
	now   func() time.Time
}

// NewDir returns the artifact directory under stateDir. runID is stamped
// into written artifacts when set.
func NewDir(stateDir, runID string) *Dir {
	return &Dir{
		path:  filepath.Join(stateDir, protocol.ConflictsDir),
		runID: runID,
		now:   time.Now,
	}
}

// Root returns the directory path.
func (d *Dir) Root() string { return d.path }

// Path returns the artifact path for a task id.
func (d *Dir) Path(taskID string) string {
	return filepath.Join(d.path, taskID+protocol.ConflictSuffix)
}

// Write renders the artifact for a and writes it, replacing any previous
// artifact for the same task.
func (d *Dir) Write(a Artifact) (string, error) {
	path := d.Path(a.Task.ID)
	content := Render(a, d.now(), d.runID)
	if err := fileutil.AtomicWrite(path, []byte(content), 0o644); err != nil { //nolint:gosec // artifacts are meant to be read by the operator
		return "", fmt.Errorf("write conflict artifact for %s: %w", a.Task.ID, err)
	}
	return path, nil
}

// Exists reports whether an artifact is pending for taskID.
func (d *Dir) Exists(taskID string) bool {
	_, err := os.Stat(d.Path(taskID))
	return err == nil
}

// Remove deletes the artifact for taskID. A missing artifact is not an error.
func (d *Dir) Remove(taskID string) (bool, error) {
	err := os.Remove(d.Path(taskID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("remove conflict artifact for %s: %w", taskID, err)
	}
}

// List yields pending artifact paths in lexical order. A missing or
// unreadable directory yields nothing.
func (d *Dir) List() iter.Seq[string] {
	return func(yield func(string) bool) {
		entries, err := os.ReadDir(d.path)
		if err != nil {
			return
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), protocol.ConflictSuffix) {
				continue
			}
			if !yield(filepath.Join(d.path, e.Name())) {
				return
			}
		}
	}
}

// TaskID returns the task id an artifact path belongs to.
func TaskID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), protocol.ConflictSuffix)
}

// Render builds the artifact document.
func Render(a Artifact, generatedAt time.Time, runID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Reconcile %s\n\n", a.Task.ID)
	fmt.Fprintf(&b, "- task: %s\n", a.Task.Title)
	fmt.Fprintf(&b, "- issue: #%d\n", a.Issue.Number)
	if a.Issue.URL != "" {
		fmt.Fprintf(&b, "- issueUrl: %s\n", a.Issue.URL)
	}
	fmt.Fprintf(&b, "- generatedAt: %s\n", generatedAt.UTC().Format(time.RFC3339))
	if runID != "" {
		fmt.Fprintf(&b, "- runId: %s\n", runID)
	}

	writeBlock(&b, "BASE (at last pull)", a.Base.LocalDetail)
	writeBlock(&b, "LOCAL (current detail file)", a.Local)
	writeBlock(&b, "REMOTE (current issue body)", a.Issue.Body)

	b.WriteString("\n## Resolution\n\n")
	fmt.Fprintf(&b, "- Keep local version: %s reconcile %s --accept local\n", protocol.CLIName, a.Task.ID)
	fmt.Fprintf(&b, "- Keep remote version: %s reconcile %s --accept remote\n", protocol.CLIName, a.Task.ID)
	fmt.Fprintf(&b, "- Then run: %s push\n", protocol.CLIName)
	return b.String()
}

func writeBlock(b *strings.Builder, heading, text string) {
	if text == "" {
		text = emptyPlaceholder
	}
	fence := fenceFor(text)
	fmt.Fprintf(b, "\n## %s\n\n%smd\n%s", heading, fence, text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(fence + "\n")
}

// fenceFor returns a backtick fence longer than any backtick run in text.
func fenceFor(text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

// ExtractRemoteDetail returns the detail document carried by an issue body:
// the trimmed text after the "## Detail" heading, or the whole body when the
// heading is absent.
func ExtractRemoteDetail(body string) string {
	if body == "" {
		return ""
	}
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	marker := "\n" + DetailHeading + "\n"
	idx := strings.Index(normalized, marker)
	if idx < 0 {
		return body
	}
	return strings.TrimSpace(normalized[idx+len(marker):])
}
