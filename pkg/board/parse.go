// Package board reads and writes the local task board: a markdown document
// with one "### " block per task and key/value metadata lines, plus
// per-task detail documents.
package board

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"kanbansync/pkg/protocol"
	"kanbansync/pkg/status"
)

// Well-known section headings.
const (
	headingComponents = "Components"
	headingTasks      = "Tasks"
	headingNotes      = "Notes"
	defaultTitle      = "Tasks"
)

//nolint:gochecknoglobals // compiled once
var (
	metaLine = regexp.MustCompile(`^\s*-\s+([A-Za-z][A-Za-z0-9_]*):\s*(.*)$`)
	seqID    = regexp.MustCompile(`^` + protocol.TaskIDPrefix + `(\d+)$`)
)

type region int

const (
	regionPreamble region = iota
	regionComponents
	regionTasks
	regionSection
	regionNotes
)

// Parser turns board documents into protocol.Board values.
type Parser struct {
	// SectionStatuses are the statuses recognized as legacy "## <status>"
	// headings. Tasks under such a heading without a status key take it.
	SectionStatuses []string
	// DefaultStatus applies to tasks with no status key outside a legacy section.
	DefaultStatus string
}

// NewParser returns a Parser for the given allowed statuses. The first
// allowed status is the default.
func NewParser(allowed []string) *Parser {
	p := &Parser{SectionStatuses: slices.Clone(status.DefaultAllowed)}
	for _, s := range allowed {
		if n := status.Normalize(s); n != "" && !slices.Contains(p.SectionStatuses, n) {
			p.SectionStatuses = append(p.SectionStatuses, n)
		}
	}
	if len(allowed) > 0 {
		p.DefaultStatus = status.Normalize(allowed[0])
	} else {
		p.DefaultStatus = status.DefaultAllowed[0]
	}
	return p
}

// Parse reads a board document. It never fails: lines it does not
// understand inside a task block are skipped, and unknown sections are
// kept verbatim. Tasks without an id get the next free sequence id.
func (p *Parser) Parse(content string) *protocol.Board {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	b := &protocol.Board{Title: defaultTitle}
	tasksLayout := hasTasksHeading(content)
	var (
		where     = regionPreamble
		titleSeen bool
		inFence   bool
		legacy    string
		current   *protocol.Task
		section   *protocol.Section
	)

	flushTask := func() {
		if current == nil {
			return
		}
		if current.Status == "" {
			current.Status = legacy
			if current.Status == "" {
				current.Status = p.DefaultStatus
			}
		}
		b.Tasks = append(b.Tasks, current)
		current = nil
	}
	flushSection := func() {
		if section == nil {
			return
		}
		section.Lines = trimBlank(section.Lines)
		b.Sections = append(b.Sections, *section)
		section = nil
	}
	enter := func(r region) {
		flushTask()
		flushSection()
		where = r
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") && where != regionTasks {
			inFence = !inFence
		}

		if !inFence && !titleSeen && where == regionPreamble && strings.HasPrefix(trimmed, "# ") {
			b.Title = strings.TrimSpace(trimmed[2:])
			titleSeen = true
			continue
		}

		if !inFence && strings.HasPrefix(trimmed, "## ") {
			name := strings.TrimSpace(trimmed[3:])
			switch {
			case name == headingComponents:
				enter(regionComponents)
				continue
			case name == headingTasks:
				enter(regionTasks)
				legacy = ""
				continue
			case name == headingNotes || name == "Notas":
				enter(regionNotes)
				continue
			case tasksLayout && (where == regionComponents || where == regionNotes):
				// sub-headings of a passthrough block stay in it
			case slices.Contains(p.SectionStatuses, status.Normalize(name)):
				enter(regionTasks)
				legacy = status.Normalize(name)
				continue
			case where == regionComponents || where == regionNotes:
			default:
				enter(regionSection)
				section = &protocol.Section{Heading: name}
				continue
			}
		}

		switch where {
		case regionPreamble:
			b.Preamble = append(b.Preamble, line)
		case regionComponents:
			b.Components = append(b.Components, line)
		case regionNotes:
			b.Notes = append(b.Notes, line)
		case regionSection:
			section.Lines = append(section.Lines, line)
		case regionTasks:
			if strings.HasPrefix(trimmed, "### ") {
				flushTask()
				current = &protocol.Task{Title: strings.TrimSpace(trimmed[4:])}
				continue
			}
			if current == nil {
				continue
			}
			if m := metaLine.FindStringSubmatch(line); m != nil {
				applyField(current, m[1], strings.TrimSpace(m[2]))
			}
		}
	}
	flushTask()
	flushSection()

	b.Preamble = trimBlank(b.Preamble)
	b.Components = trimBlank(b.Components)
	b.Notes = trimBlank(b.Notes)

	for _, t := range b.Tasks {
		if t.ID == "" {
			t.ID = NextTaskID(b)
		}
	}
	return b
}

// hasTasksHeading reports whether content uses the "## Tasks" layout. In
// that layout status-named headings inside Components or Notes are plain
// sub-headings; only legacy boards group tasks under "## <status>".
func hasTasksHeading(content string) bool {
	inFence := false
	for line := range strings.SplitSeq(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if !inFence && trimmed == "## "+headingTasks {
			return true
		}
	}
	return false
}

// applyField sets one metadata key on t. Unknown keys, and known keys whose
// value cannot be represented, are kept in t.Extra.
func applyField(t *protocol.Task, key, value string) {
	switch key {
	case "id":
		t.ID = value
	case "status":
		t.Status = status.Normalize(value)
	case "priority":
		t.Priority = value
	case "workload":
		t.Workload = value
	case "tags":
		t.Tags = ParseList(value)
	case "touch":
		t.Touch = ParseList(value)
	case "dependsOn":
		t.DependsOn = ParseList(value)
	case "milestone":
		t.Milestone = value
	case "start":
		t.Start = value
	case "due":
		t.Due = value
	case "completed":
		t.Completed = nullable(value)
	case "externalId":
		t.ExternalID = nullable(value)
	case "externalLinks":
		t.ExternalLinks = ParseList(value)
	case "updated":
		t.Updated = value
	case "detail":
		t.Detail = value
	case "defaultExpanded":
		v, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			setExtra(t, key, value)
			return
		}
		t.DefaultExpanded = &v
	default:
		setExtra(t, key, value)
	}
}

func setExtra(t *protocol.Task, key, value string) {
	for i := range t.Extra {
		if t.Extra[i].Key == key {
			t.Extra[i].Value = value
			return
		}
	}
	t.Extra = append(t.Extra, protocol.Field{Key: key, Value: value})
}

func nullable(v string) string {
	if v == "null" {
		return ""
	}
	return v
}

// ParseList decodes "[a, b]" lists. A bare value is split on commas.
// "[]" yields an empty, non-nil slice.
func ParseList(value string) []string {
	v := strings.TrimSpace(value)
	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	out := []string{}
	if v == "" {
		return out
	}
	for part := range strings.SplitSeq(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FormatList is the inverse of ParseList.
func FormatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

// NextTaskID returns the next unused T-NNN id on b.
func NextTaskID(b *protocol.Board) string {
	highest := 0
	for _, t := range b.Tasks {
		m := seqID.FindStringSubmatch(t.ID)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			highest = max(highest, n)
		}
	}
	return protocol.TaskIDPrefix + padID(highest+1)
}

func padID(n int) string {
	return fmt.Sprintf("%03d", n)
}

func trimBlank(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if start == end {
		return nil
	}
	return lines[start:end]
}
