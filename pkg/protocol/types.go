// Package protocol defines the shared data model of kanbansync: local tasks and
// boards, remote issues and board items, synchronization baselines, and the
// typed errors raised across package boundaries.
package protocol

import (
	"fmt"
	"regexp"
	"strconv"
)

// Field is a metadata key/value pair kept verbatim for keys the board parser
// does not recognize.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Task is one entity on the local board.
//
// Empty strings mean "absent" (serialized as null for Completed and
// ExternalID). Nil slices are omitted on write; empty non-nil slices are
// written as "[]".
type Task struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Status          string   `json:"status"`
	Priority        string   `json:"priority,omitempty"`
	Workload        string   `json:"workload,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Touch           []string `json:"touch,omitempty"`
	DependsOn       []string `json:"depends_on,omitempty"`
	Milestone       string   `json:"milestone,omitempty"`
	Start           string   `json:"start,omitempty"`
	Due             string   `json:"due,omitempty"`
	Completed       string   `json:"completed,omitempty"`
	ExternalID      string   `json:"external_id,omitempty"`
	ExternalLinks   []string `json:"external_links,omitempty"`
	Updated         string   `json:"updated,omitempty"`
	Detail          string   `json:"detail,omitempty"`
	DefaultExpanded *bool    `json:"default_expanded,omitempty"`
	Extra           []Field  `json:"extra,omitempty"`
}

// Linked reports whether the task carries an external reference at all.
// A linked task may still carry a reference the tracker does not understand;
// see IssueNumber.
func (t *Task) Linked() bool { return t.ExternalID != "" }

// IssueNumber returns the remote issue number referenced by ExternalID.
// ok is false for unlinked tasks and for references in an unknown format.
func (t *Task) IssueNumber() (n int, ok bool) {
	return ParseExternalID(t.ExternalID)
}

// Section is an unrecognized "## " block of the board document, kept verbatim.
type Section struct {
	Heading string   `json:"heading"`
	Lines   []string `json:"lines"`
}

// Board is the whole local document: an ordered task list plus opaque blocks
// that are preserved on rewrite but never interpreted.
type Board struct {
	Title      string    `json:"title"`
	Preamble   []string  `json:"preamble,omitempty"`
	Components []string  `json:"components,omitempty"`
	Tasks      []*Task   `json:"tasks"`
	Sections   []Section `json:"sections,omitempty"`
	Notes      []string  `json:"notes,omitempty"`
}

// Find returns the task with the given id, or nil.
func (b *Board) Find(id string) *Task {
	for _, t := range b.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// TaskIDs returns the ids of all tasks in board order.
func (b *Board) TaskIDs() []string {
	ids := make([]string, 0, len(b.Tasks))
	for _, t := range b.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

// Issue state values.
const (
	IssueOpen   = "open"
	IssueClosed = "closed"
)

// Issue is a remote tracker record.
type Issue struct {
	Number    int      `json:"number"`
	NodeID    string   `json:"node_id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	State     string   `json:"state"`
	Labels    []string `json:"labels"`
	Milestone string   `json:"milestone,omitempty"`
	URL       string   `json:"url"`
	ClosedAt  string   `json:"closed_at,omitempty"`
	UpdatedAt string   `json:"updated_at"`
}

// Closed reports whether the issue is in the closed state.
func (i *Issue) Closed() bool { return i.State == IssueClosed }

// ClosedDate returns the YYYY-MM-DD part of ClosedAt, or "".
func (i *Issue) ClosedDate() string {
	if len(i.ClosedAt) < 10 {
		return ""
	}
	return i.ClosedAt[:10]
}

// IssueInput holds the fields used to create an issue.
type IssueInput struct {
	Title     string
	Body      string
	Labels    []string
	Milestone string
}

// IssuePatch is a partial issue update. A nil field is left unchanged on the
// remote; it is never cleared.
type IssuePatch struct {
	Title     *string
	Body      *string
	State     *string
	Labels    *[]string
	Milestone *string
}

// BoardStatus ties a remote issue to its board item and the name of the
// item's current status option.
type BoardStatus struct {
	IssueNumber int    `json:"issue_number"`
	ItemID      string `json:"item_id"`
	StatusName  string `json:"status_name"`
}

// BoardDates carries the date fields of a board item. Empty means unset.
type BoardDates struct {
	IssueNumber int    `json:"issue_number"`
	ItemID      string `json:"item_id"`
	Start       string `json:"start,omitempty"`
	Due         string `json:"due,omitempty"`
	Completed   string `json:"completed,omitempty"`
}

// DateField names a board date field.
type DateField string

// Board date fields.
const (
	DateStart     DateField = "start"
	DateDue       DateField = "due"
	DateCompleted DateField = "completed"
)

// BaselineEntry is the last agreed snapshot of one linked task, used as the
// merge ancestor when deciding whether a push is safe.
type BaselineEntry struct {
	TaskID          string `json:"task_id"`
	ExternalID      string `json:"external_id"`
	IssueNumber     int    `json:"issue_number"`
	RemoteUpdatedAt string `json:"remote_updated_at"`
	RemoteBodyHash  string `json:"remote_body_hash"`
	RemoteBody      string `json:"remote_body"`
	LocalDetailHash string `json:"local_detail_hash"`
	LocalDetail     string `json:"local_detail"`
	BaselinedAt     string `json:"baselined_at"`
}

//nolint:gochecknoglobals // compiled once
var externalIDPattern = regexp.MustCompile(`^` + regexp.QuoteMeta(ExternalIDPrefix) + `(\d+)$`)

// ExternalID formats the external reference for an issue number.
func ExternalID(number int) string {
	return fmt.Sprintf("%s%d", ExternalIDPrefix, number)
}

// ParseExternalID extracts the issue number from an external reference.
func ParseExternalID(ref string) (int, bool) {
	m := externalIDPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
