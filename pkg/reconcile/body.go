package reconcile

import (
	"fmt"
	"strings"

	"kanbansync/pkg/board"
	"kanbansync/pkg/conflict"
	"kanbansync/pkg/protocol"
)

const emptyDetailNote = "(empty detail file)"

// IssueBody renders the issue body of t: a provenance line, a metadata list,
// and the detail document under the "## Detail" heading.
func IssueBody(t *protocol.Task, detail, sourceName, today string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Synced from %s on %s.\n\n", sourceName, today)
	b.WriteString("## Task Metadata\n")
	fmt.Fprintf(&b, "- id: %s\n", t.ID)
	fmt.Fprintf(&b, "- status: %s\n", t.Status)
	if t.Priority != "" {
		fmt.Fprintf(&b, "- priority: %s\n", t.Priority)
	}
	if t.Workload != "" {
		fmt.Fprintf(&b, "- workload: %s\n", t.Workload)
	}
	if t.DependsOn != nil {
		fmt.Fprintf(&b, "- dependsOn: %s\n", board.FormatList(t.DependsOn))
	}
	if t.Start != "" {
		fmt.Fprintf(&b, "- start: %s\n", t.Start)
	}
	if t.Due != "" {
		fmt.Fprintf(&b, "- due: %s\n", t.Due)
	}
	completed := t.Completed
	if completed == "" {
		completed = "null"
	}
	fmt.Fprintf(&b, "- completed: %s\n", completed)
	if t.Detail == "" {
		return b.String()
	}
	fmt.Fprintf(&b, "- detail: %s\n", t.Detail)

	text := strings.TrimSpace(detail)
	if text == "" {
		text = emptyDetailNote
	}
	fmt.Fprintf(&b, "\n%s\n\n%s\n", conflict.DetailHeading, text)
	return b.String()
}

// remoteDetail extracts the detail document carried by an issue body.
func remoteDetail(body string) string {
	d := conflict.ExtractRemoteDetail(body)
	if d == emptyDetailNote {
		return ""
	}
	return d
}
