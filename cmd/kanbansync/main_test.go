package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"kanbansync/pkg/protocol"
)

// ghFake answers the gh api calls issued by the tracker client from an
// in-memory issue list.
type ghFake struct {
	issues map[int]map[string]any
	calls  [][]string
}

func newGHFake() *ghFake { return &ghFake{issues: map[int]map[string]any{}} }

func (f *ghFake) Run(_ context.Context, stdin []byte, args ...string) ([]byte, error) {
	f.calls = append(f.calls, slices.Clone(args))
	if len(args) < 3 || args[0] != "api" {
		return nil, fmt.Errorf("unexpected gh call: %v", args)
	}

	switch {
	case args[1] == "--paginate" && strings.Contains(args[2], "/issues?"):
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, n := range slices.Sorted(maps.Keys(f.issues)) {
			if err := enc.Encode(f.issues[n]); err != nil {
				return nil, err
			}
		}
		return buf.Bytes(), nil

	case args[1] == "-X" && args[2] == "POST":
		var in map[string]any
		if err := json.Unmarshal(stdin, &in); err != nil {
			return nil, err
		}
		n := len(f.issues) + 1
		issue := map[string]any{
			"number":     n,
			"node_id":    fmt.Sprintf("I_%d", n),
			"title":      in["title"],
			"body":       in["body"],
			"state":      "open",
			"labels":     labelObjects(in["labels"]),
			"html_url":   fmt.Sprintf("https://github.com/acme/app/issues/%d", n),
			"updated_at": "2026-03-10T12:00:00Z",
		}
		f.issues[n] = issue
		return json.Marshal(issue)

	case args[1] == "-X" && args[2] == "PATCH":
		n, err := strconv.Atoi(args[3][strings.LastIndex(args[3], "/")+1:])
		if err != nil {
			return nil, err
		}
		issue, ok := f.issues[n]
		if !ok {
			return nil, fmt.Errorf("issue %d not found", n)
		}
		var in map[string]any
		if err := json.Unmarshal(stdin, &in); err != nil {
			return nil, err
		}
		for _, k := range []string{"title", "body", "state"} {
			if v, ok := in[k]; ok {
				issue[k] = v
			}
		}
		if v, ok := in["labels"]; ok {
			issue["labels"] = labelObjects(v)
		}
		issue["updated_at"] = fmt.Sprintf("2026-03-10T13:%02d:00Z", len(f.calls))
		return json.Marshal(issue)
	}
	return nil, fmt.Errorf("unexpected gh call: %v", args)
}

func labelObjects(v any) []map[string]any {
	out := []map[string]any{}
	names, _ := v.([]any)
	for _, n := range names {
		out = append(out, map[string]any{"name": n})
	}
	return out
}

const testConfig = `owner: acme
repo: app
tasks_file: ./TASKS.md
status_map:
  backlog: Backlog
  doing: In Progress
  review: Review
  done: Done
  paused: Paused
`

const testTasks = `# Tasks

## Tasks

### Build login

  - id: T-001
  - status: doing
  - priority: high
  - completed: null
  - externalId: null

## Notes
`

// workspace writes a config and tasks file into a temp dir and returns the
// config path.
func workspace(t *testing.T, extraConfig string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "kanbansync.yaml")
	if err := os.WriteFile(cfg, []byte(testConfig+extraConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "TASKS.md"), []byte(testTasks), 0o600); err != nil {
		t.Fatal(err)
	}
	return cfg
}

// execute runs the root command and returns stdout and stderr.
func execute(t *testing.T, gh *ghFake, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmdWithRunner(gh)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"status", "pull", "push", "bootstrap", "reconcile", "conflicts"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing subcommand %q in %v", want, names)
		}
	}
}

func TestRootCmd_Version(t *testing.T) {
	out, _, err := execute(t, newGHFake(), "--version")
	if err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !strings.HasPrefix(out, "kanbansync ") {
		t.Errorf("version output = %q", out)
	}
}

func TestMissingConfig(t *testing.T) {
	_, _, err := execute(t, newGHFake(), "status", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config not found") {
		t.Fatalf("err = %v, want config not found", err)
	}
}

func TestInvalidConfigFailsBeforeRemoteCalls(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "kanbansync.yaml")
	if err := os.WriteFile(cfg, []byte("owner: acme\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	gh := newGHFake()
	_, _, err := execute(t, gh, "push", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "owner and repo are required") {
		t.Fatalf("err = %v", err)
	}
	if len(gh.calls) != 0 {
		t.Errorf("gh was called %d times", len(gh.calls))
	}
}

func TestPushThenStatus(t *testing.T) {
	cfg := workspace(t, "")
	gh := newGHFake()

	out, _, err := execute(t, gh, "push", "--config", cfg)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if !strings.Contains(out, "Push: 1 created, 0 updated") {
		t.Errorf("push output = %q", out)
	}

	tasks, err := os.ReadFile(filepath.Join(filepath.Dir(cfg), "TASKS.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(tasks), "  - externalId: github:issue:1\n") {
		t.Errorf("tasks file not linked:\n%s", tasks)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(cfg), protocol.StateDir, protocol.StateFile)); err != nil {
		t.Errorf("baseline sidecar: %v", err)
	}

	out, _, err = execute(t, gh, "status", "--json", "--config", cfg)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var rep struct {
		LinkedTasks int `json:"linked_tasks"`
		Content     []struct {
			TaskID string `json:"task_id"`
			State  string `json:"state"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("status output is not JSON: %v\n%s", err, out)
	}
	if rep.LinkedTasks != 1 || len(rep.Content) != 1 || rep.Content[0].State != "clean" {
		t.Errorf("status = %+v", rep)
	}
}

func TestPushDryRunDoesNotCallWrites(t *testing.T) {
	cfg := workspace(t, "")
	gh := newGHFake()

	out, _, err := execute(t, gh, "push", "--dry-run", "--config", cfg)
	if err != nil {
		t.Fatalf("push --dry-run: %v", err)
	}
	if !strings.Contains(out, "[dry-run] Push: 1 created") {
		t.Errorf("output = %q", out)
	}
	for _, c := range gh.calls {
		if slices.Contains(c, "-X") {
			t.Errorf("dry run issued write call %v", c)
		}
	}
}

func TestPushWithSQLiteBaseline(t *testing.T) {
	cfg := workspace(t, "baseline:\n  backend: sqlite\n")
	gh := newGHFake()

	if _, _, err := execute(t, gh, "push", "--config", cfg); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(cfg), protocol.StateDir, protocol.StateDBFile)); err != nil {
		t.Fatalf("state db: %v", err)
	}

	// The second push finds the baseline in SQLite and leaves the body alone.
	out, _, err := execute(t, gh, "push", "--json", "--config", cfg)
	if err != nil {
		t.Fatalf("second push: %v", err)
	}
	var res struct {
		BodySkipped []string `json:"body_skipped"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("push output is not JSON: %v", err)
	}
	if !slices.Equal(res.BodySkipped, []string{"T-001"}) {
		t.Errorf("body_skipped = %v", res.BodySkipped)
	}
}

func TestPushWithoutBaselineExitsWithError(t *testing.T) {
	cfg := workspace(t, "")
	gh := newGHFake()
	if _, _, err := execute(t, gh, "push", "--config", cfg); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(filepath.Dir(cfg), protocol.StateDir, protocol.StateFile)); err != nil {
		t.Fatal(err)
	}

	out, _, err := execute(t, gh, "push", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "has no sync baseline") {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "1 skipped") {
		t.Errorf("output = %q", out)
	}
}

func TestBootstrapRequiresDirection(t *testing.T) {
	cfg := workspace(t, "")
	if _, _, err := execute(t, newGHFake(), "bootstrap", "--config", cfg); err == nil {
		t.Fatal("bootstrap without --from should fail")
	}
	_, _, err := execute(t, newGHFake(), "bootstrap", "--from", "jira", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "invalid bootstrap direction") {
		t.Fatalf("err = %v", err)
	}
}

func TestBootstrapConfirmGate(t *testing.T) {
	cfg := workspace(t, "bootstrap:\n  require_confirm_flag: true\n")
	gh := newGHFake()

	_, _, err := execute(t, gh, "bootstrap", "--from", "github", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "--confirm") {
		t.Fatalf("err = %v", err)
	}
	out, _, err := execute(t, gh, "bootstrap", "--from", "github", "--confirm", "--config", cfg)
	if err != nil {
		t.Fatalf("bootstrap --confirm: %v", err)
	}
	if !strings.Contains(out, "Bootstrap from remote: 0 imported") {
		t.Errorf("output = %q", out)
	}
}

func TestConflictsCmd_Empty(t *testing.T) {
	cfg := workspace(t, "")
	out, _, err := execute(t, newGHFake(), "conflicts", "--config", cfg)
	if err != nil {
		t.Fatalf("conflicts: %v", err)
	}
	if strings.TrimSpace(out) != "No pending conflicts" {
		t.Errorf("output = %q", out)
	}
}

func TestReconcileList(t *testing.T) {
	cfg := workspace(t, "")
	out, _, err := execute(t, newGHFake(), "reconcile", "--list", "--config", cfg)
	if err != nil {
		t.Fatalf("reconcile --list: %v", err)
	}
	if strings.TrimSpace(out) != "No pending conflicts" {
		t.Errorf("output = %q", out)
	}

	dir := filepath.Join(filepath.Dir(cfg), protocol.StateDir, protocol.ConflictsDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	artifact := filepath.Join(dir, "T-001"+protocol.ConflictSuffix)
	if err := os.WriteFile(artifact, []byte("# conflict\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, _, err = execute(t, newGHFake(), "reconcile", "--list", "--json", "--config", cfg)
	if err != nil {
		t.Fatalf("reconcile --list --json: %v", err)
	}
	var got struct {
		Conflicts []string `json:"conflicts"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got.Conflicts) != 1 || got.Conflicts[0] != artifact {
		t.Errorf("conflicts = %v, want [%s]", got.Conflicts, artifact)
	}

	if _, _, err := execute(t, newGHFake(), "reconcile", "--list", "T-001", "--config", cfg); err == nil {
		t.Error("reconcile --list with a task id should fail")
	}
	_, _, err = execute(t, newGHFake(), "reconcile", "--list", "--accept", "local", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "--accept") {
		t.Errorf("err = %v", err)
	}
}

func TestReconcileUnknownTask(t *testing.T) {
	cfg := workspace(t, "")
	_, _, err := execute(t, newGHFake(), "reconcile", "T-404", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "task T-404 not found") {
		t.Fatalf("err = %v", err)
	}
	_, _, err = execute(t, newGHFake(), "reconcile", "T-001", "--accept", "both", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "invalid --accept") {
		t.Fatalf("err = %v", err)
	}
}

func TestLogsGoToStderr(t *testing.T) {
	cfg := workspace(t, "logging:\n  format: json\n")
	out, errOut, err := execute(t, newGHFake(), "pull", "--log-level", "debug", "--config", cfg)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if !strings.Contains(out, "Pull: 0 linked") {
		t.Errorf("stdout = %q", out)
	}
	if !strings.Contains(errOut, `"run_id":`) || !strings.Contains(errOut, `"level":"DEBUG"`) {
		t.Errorf("stderr = %q", errOut)
	}
}
