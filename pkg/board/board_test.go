package board

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"kanbansync/pkg/protocol"
)

const canonical = `# Roadmap

Some intro text.

## Components

- api: backend
- web: frontend

## Tasks

### Build login

  - id: T-001
  - status: doing
  - priority: high
  - workload: Hard
  - tags: [auth, web]
  - dependsOn: []
  - milestone: v1
  - completed: null
  - externalId: github:issue:12
  - updated: 2026-01-02
  - detail: ./tasks/T-001.md
  - defaultExpanded: false
  - owner: sam

### Ship it

  - id: T-002
  - status: done
  - completed: 2026-01-05
  - externalId: null

## Decisions

Use Postgres.

## Notes

Remember the release checklist.

` + "```md\n## Tasks\n```\n"

func TestRoundTripIsByteIdentical(t *testing.T) {
	p := NewParser(nil)
	b := p.Parse(canonical)

	got := Serialize(b)
	if got != canonical {
		t.Fatalf("round trip mismatch\n--- got ---\n%s\n--- want ---\n%s", got, canonical)
	}
	if again := Serialize(p.Parse(got)); again != got {
		t.Fatal("second round trip changed the document")
	}
}

func TestParseFields(t *testing.T) {
	b := NewParser(nil).Parse(canonical)

	if b.Title != "Roadmap" {
		t.Errorf("Title = %q", b.Title)
	}
	if len(b.Tasks) != 2 {
		t.Fatalf("len(Tasks) = %d, want 2", len(b.Tasks))
	}
	task := b.Tasks[0]
	if task.ID != "T-001" || task.Status != "doing" || task.Priority != "high" {
		t.Errorf("task = %+v", task)
	}
	if !slices.Equal(task.Tags, []string{"auth", "web"}) {
		t.Errorf("Tags = %v", task.Tags)
	}
	if task.DependsOn == nil || len(task.DependsOn) != 0 {
		t.Errorf("DependsOn = %#v, want empty non-nil", task.DependsOn)
	}
	if n, ok := task.IssueNumber(); !ok || n != 12 {
		t.Errorf("IssueNumber = %d, %v", n, ok)
	}
	if task.DefaultExpanded == nil || *task.DefaultExpanded {
		t.Errorf("DefaultExpanded = %v", task.DefaultExpanded)
	}
	if len(task.Extra) != 1 || task.Extra[0] != (protocol.Field{Key: "owner", Value: "sam"}) {
		t.Errorf("Extra = %v", task.Extra)
	}
	if b.Tasks[1].ExternalID != "" || b.Tasks[1].Completed != "2026-01-05" {
		t.Errorf("second task = %+v", b.Tasks[1])
	}
	if len(b.Sections) != 1 || b.Sections[0].Heading != "Decisions" {
		t.Errorf("Sections = %+v", b.Sections)
	}
	if !slices.Contains(b.Notes, "## Tasks") {
		t.Errorf("fenced heading in notes not preserved: %q", b.Notes)
	}
}

func TestParseLegacySections(t *testing.T) {
	doc := "# Board\r\n\r\n## Doing\r\n\r\n### A\r\n\r\n  - id: T-004\r\n\r\n## Done\r\n\r\n### B\r\n\r\n  - id: T-007\r\n\r\n### C\r\n\r\n  - status: doing\r\n"
	b := NewParser(nil).Parse(doc)

	want := []struct{ id, status string }{
		{"T-004", "doing"},
		{"T-007", "done"},
		{"T-008", "doing"},
	}
	if len(b.Tasks) != len(want) {
		t.Fatalf("len(Tasks) = %d, want %d", len(b.Tasks), len(want))
	}
	for i, w := range want {
		if b.Tasks[i].ID != w.id || b.Tasks[i].Status != w.status {
			t.Errorf("task %d = %s/%s, want %s/%s", i, b.Tasks[i].ID, b.Tasks[i].Status, w.id, w.status)
		}
	}
	if !strings.Contains(Serialize(b), "## Tasks\n\n### A\n") {
		t.Errorf("legacy sections should be rewritten under ## Tasks:\n%s", Serialize(b))
	}
}

func TestStatusHeadingsInPassthroughBlocks(t *testing.T) {
	doc := "# Board\n\n## Components\n\n## Review\n\n- api: reviewed\n\n## Tasks\n\n### A\n\n  - id: T-001\n  - status: doing\n\n## Notes\n\n## Done\n\n- shipped v1\n"
	p := NewParser(nil)
	b := p.Parse(doc)

	if len(b.Tasks) != 1 {
		t.Fatalf("len(Tasks) = %d, want 1", len(b.Tasks))
	}
	if !slices.Contains(b.Components, "## Review") || !slices.Contains(b.Notes, "- shipped v1") {
		t.Errorf("Components = %q, Notes = %q", b.Components, b.Notes)
	}
	out := Serialize(b)
	for _, want := range []string{"## Review\n\n- api: reviewed", "## Done\n\n- shipped v1"} {
		if !strings.Contains(out, want) {
			t.Errorf("serialized board lost %q:\n%s", want, out)
		}
	}

	// Without a "## Tasks" heading the board is legacy and status headings
	// still group tasks, even right after Components.
	legacy := "# Board\n\n## Components\n\n- api: backend\n\n## Done\n\n### B\n\n  - id: T-002\n"
	lb := p.Parse(legacy)
	if len(lb.Tasks) != 1 || lb.Tasks[0].Status != "done" {
		t.Fatalf("legacy tasks = %+v", lb.Tasks)
	}
}

func TestParseCustomWorkflowDefault(t *testing.T) {
	doc := "# T\n\n## Design\n\n### Sketch\n\n  - id: T-001\n\n## Tasks\n\n### Plain\n\n  - id: T-002\n"
	b := NewParser([]string{"todo", "design", "done"}).Parse(doc)

	if b.Tasks[0].Status != "design" {
		t.Errorf("legacy custom section status = %q, want design", b.Tasks[0].Status)
	}
	if b.Tasks[1].Status != "todo" {
		t.Errorf("default status = %q, want todo", b.Tasks[1].Status)
	}
}

func TestParseToleratesMalformedLines(t *testing.T) {
	doc := "# T\n\n## Tasks\n\n### A\n\nfree text under a task\n  - id: T-001\n  -broken line\n  - status: review\n  - defaultExpanded: maybe\n"
	b := NewParser(nil).Parse(doc)

	if len(b.Tasks) != 1 {
		t.Fatalf("len(Tasks) = %d", len(b.Tasks))
	}
	task := b.Tasks[0]
	if task.ID != "T-001" || task.Status != "review" {
		t.Errorf("task = %+v", task)
	}
	if task.DefaultExpanded != nil {
		t.Error("unparseable defaultExpanded should not be set")
	}
	if len(task.Extra) != 1 || task.Extra[0].Value != "maybe" {
		t.Errorf("Extra = %v", task.Extra)
	}
}

func TestNextTaskID(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"empty", nil, "T-001"},
		{"sequential", []string{"T-001", "T-002"}, "T-003"},
		{"gap and foreign ids", []string{"T-009", "X-100", "T-abc"}, "T-010"},
		{"wide", []string{"T-1200"}, "T-1201"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &protocol.Board{}
			for _, id := range tt.ids {
				b.Tasks = append(b.Tasks, &protocol.Task{ID: id})
			}
			if got := NextTaskID(b); got != tt.want {
				t.Errorf("NextTaskID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"[]", []string{}},
		{"[a, b ,c]", []string{"a", "b", "c"}},
		{"a, b", []string{"a", "b"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		if got := ParseList(tt.in); !slices.Equal(got, tt.want) || got == nil {
			t.Errorf("ParseList(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestStoreLoadSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TASKS.md")
	s := NewStore(path, nil)

	_, err := s.Load()
	var nf *protocol.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Load missing file err = %v, want NotFoundError", err)
	}

	if err := os.WriteFile(path, []byte(canonical), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(b); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != canonical {
		t.Error("Save of an unchanged board changed the file")
	}
}

func TestStoreDetail(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "TASKS.md"), nil)
	task := &protocol.Task{ID: "T-003", Detail: DefaultDetailPath("T-003")}

	got, err := s.ReadDetail(task)
	if err != nil || got != "" {
		t.Fatalf("ReadDetail missing = %q, %v", got, err)
	}

	created, err := s.EnsureDetailFile(task)
	if err != nil || !created {
		t.Fatalf("EnsureDetailFile = %v, %v", created, err)
	}
	got, err = s.ReadDetail(task)
	if err != nil {
		t.Fatal(err)
	}
	if got != DetailStub("T-003") {
		t.Errorf("stub = %q", got)
	}

	if err := s.WriteDetail(task, "edited\n"); err != nil {
		t.Fatal(err)
	}
	created, err = s.EnsureDetailFile(task)
	if err != nil || created {
		t.Fatalf("EnsureDetailFile on existing = %v, %v", created, err)
	}
	got, _ = s.ReadDetail(task)
	if got != "edited\n" {
		t.Errorf("existing detail overwritten: %q", got)
	}
	if want := filepath.Join(dir, "tasks", "T-003.md"); s.DetailPath(task) != want {
		t.Errorf("DetailPath = %q, want %q", s.DetailPath(task), want)
	}

	noDetail := &protocol.Task{ID: "T-004"}
	if err := s.WriteDetail(noDetail, "x"); err == nil {
		t.Error("WriteDetail without a detail path should fail")
	}
}
