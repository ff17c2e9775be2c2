package reconcile

import (
	"slices"
	"strings"

	"kanbansync/pkg/protocol"
)

//nolint:gochecknoglobals // fixed vocabularies
var (
	priorities = []string{"high", "medium", "low"}
	workloads  = []string{"Easy", "Normal", "Hard", "Extreme"}
)

// TaskLabels encodes priority, workload and tags as remote labels.
func TaskLabels(t *protocol.Task) []string {
	labels := []string{}
	add := func(l string) {
		if !slices.Contains(labels, l) {
			labels = append(labels, l)
		}
	}
	if t.Priority != "" {
		add(protocol.LabelPriority + strings.ToLower(t.Priority))
	}
	if t.Workload != "" {
		add(protocol.LabelWorkload + strings.ToLower(t.Workload))
	}
	for _, tag := range t.Tags {
		add(protocol.LabelTag + tag)
	}
	return labels
}

// ApplyLabels decodes remote labels into priority, workload and tags,
// replacing the task's values. Labels without a known prefix are ignored.
func ApplyLabels(t *protocol.Task, labels []string) {
	var priority, workload string
	var tags []string
	for _, l := range labels {
		switch {
		case strings.HasPrefix(l, protocol.LabelPriority):
			v := strings.ToLower(strings.TrimPrefix(l, protocol.LabelPriority))
			if slices.Contains(priorities, v) {
				priority = v
			}
		case strings.HasPrefix(l, protocol.LabelWorkload):
			v := strings.TrimPrefix(l, protocol.LabelWorkload)
			for _, w := range workloads {
				if strings.EqualFold(w, v) {
					workload = w
				}
			}
		case strings.HasPrefix(l, protocol.LabelTag):
			if v := strings.TrimPrefix(l, protocol.LabelTag); v != "" && !slices.Contains(tags, v) {
				tags = append(tags, v)
			}
		}
	}
	t.Priority = priority
	t.Workload = workload
	switch {
	case len(tags) > 0:
		t.Tags = tags
	case t.Tags != nil:
		t.Tags = []string{}
	}
}
