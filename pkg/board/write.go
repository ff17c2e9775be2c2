package board

import (
	"strconv"
	"strings"

	"kanbansync/pkg/protocol"
)

// Serialize renders b in canonical form. Keys are written in a fixed order,
// so serializing an unchanged board twice yields identical bytes.
func Serialize(b *protocol.Board) string {
	var out []string
	title := b.Title
	if title == "" {
		title = defaultTitle
	}
	out = append(out, "# "+title, "")

	if len(b.Preamble) > 0 {
		out = append(out, b.Preamble...)
		out = append(out, "")
	}

	if len(b.Components) > 0 {
		out = append(out, "## "+headingComponents, "")
		out = append(out, b.Components...)
		out = append(out, "")
	}

	out = append(out, "## "+headingTasks, "")
	for _, t := range b.Tasks {
		out = append(out, "### "+t.Title, "")
		out = append(out, taskLines(t)...)
		out = append(out, "")
	}

	for _, s := range b.Sections {
		out = append(out, "## "+s.Heading, "")
		if len(s.Lines) > 0 {
			out = append(out, s.Lines...)
			out = append(out, "")
		}
	}

	out = append(out, "## "+headingNotes, "")
	out = append(out, b.Notes...)

	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
}

func taskLines(t *protocol.Task) []string {
	var lines []string
	add := func(key, value string) {
		lines = append(lines, "  - "+key+": "+value)
	}
	addString := func(key, value string) {
		if value != "" {
			add(key, value)
		}
	}
	addList := func(key string, items []string) {
		if items != nil {
			add(key, FormatList(items))
		}
	}

	add("id", t.ID)
	add("status", t.Status)
	addString("priority", t.Priority)
	addString("workload", t.Workload)
	addList("tags", t.Tags)
	addList("touch", t.Touch)
	addList("dependsOn", t.DependsOn)
	addString("milestone", t.Milestone)
	addString("start", t.Start)
	addString("due", t.Due)
	add("completed", orNull(t.Completed))
	add("externalId", orNull(t.ExternalID))
	addList("externalLinks", t.ExternalLinks)
	addString("updated", t.Updated)
	addString("detail", t.Detail)
	if t.DefaultExpanded != nil {
		add("defaultExpanded", strconv.FormatBool(*t.DefaultExpanded))
	}
	for _, f := range t.Extra {
		add(f.Key, f.Value)
	}
	return lines
}

func orNull(v string) string {
	if v == "" {
		return "null"
	}
	return v
}
