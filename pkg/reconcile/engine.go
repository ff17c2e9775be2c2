// Package reconcile is the synchronization engine between the local task
// board and the remote issue tracker.
//
// Two passes are kept separate. The status pass (status, pull, bootstrap)
// treats the remote as authoritative and never conflict-checks. The content
// pass (push) compares issue body and local detail against a per-task
// baseline and refuses to overwrite concurrent edits.
package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"kanbansync/pkg/baseline"
	"kanbansync/pkg/conflict"
	"kanbansync/pkg/protocol"
	"kanbansync/pkg/status"
)

// LocalStore is the local document store.
type LocalStore interface {
	Load() (*protocol.Board, error)
	Save(b *protocol.Board) error
	ReadDetail(t *protocol.Task) (string, error)
	WriteDetail(t *protocol.Task, content string) error
	EnsureDetailFile(t *protocol.Task) (bool, error)
}

// Tracker is the remote issue tracker.
type Tracker interface {
	ListIssues(ctx context.Context) ([]protocol.Issue, error)
	CreateIssue(ctx context.Context, in protocol.IssueInput) (*protocol.Issue, error)
	UpdateIssue(ctx context.Context, number int, patch protocol.IssuePatch) (*protocol.Issue, error)
}

// ProjectBoard is the optional remote kanban board.
type ProjectBoard interface {
	BoardStatuses(ctx context.Context) ([]protocol.BoardStatus, error)
	BoardDates(ctx context.Context) ([]protocol.BoardDates, error)
	StatusOptionIDs(ctx context.Context) (map[string]string, error)
	AddToBoard(ctx context.Context, issueNodeID string) (string, error)
	SetBoardStatus(ctx context.Context, itemID, optionID string) error
	SetBoardDate(ctx context.Context, itemID string, field protocol.DateField, date string) error
	ClearBoardDate(ctx context.Context, itemID string, field protocol.DateField) error
	DateEnabled(field protocol.DateField) bool
}

// Deps are the collaborators of an Engine. Board may be nil.
type Deps struct {
	Local     LocalStore
	Remote    Tracker
	Board     ProjectBoard
	Baselines baseline.Store
	Conflicts *conflict.Dir
	Logger    *slog.Logger
	Now       func() time.Time
}

// Options configure an Engine.
type Options struct {
	Taxonomy *status.Taxonomy
	// BoardStatus enables reading and writing the board status field.
	BoardStatus bool
	// BoardDates enables reading and writing the board date fields.
	BoardDates bool
	// CreateMissingDetailFiles writes stub detail documents during bootstrap.
	CreateMissingDetailFiles bool
	// RequireConfirm makes a non-dry-run bootstrap require RunOptions.Confirm.
	RequireConfirm bool
	// SourceName is the tasks file name quoted in generated issue bodies.
	SourceName string
}

// RunOptions are the per-invocation flags.
type RunOptions struct {
	DryRun  bool
	Force   bool
	Confirm bool
}

// Engine runs synchronization operations. It is not safe for concurrent use.
type Engine struct {
	local     LocalStore
	remote    Tracker
	board     ProjectBoard
	baselines baseline.Store
	conflicts *conflict.Dir
	logger    *slog.Logger
	now       func() time.Time
	opts      Options
	tax       *status.Taxonomy
}

// New returns an Engine.
func New(deps Deps, opts Options) (*Engine, error) {
	var missing []string
	if deps.Local == nil {
		missing = append(missing, "local store")
	}
	if deps.Remote == nil {
		missing = append(missing, "tracker")
	}
	if deps.Baselines == nil {
		missing = append(missing, "baseline store")
	}
	if deps.Conflicts == nil {
		missing = append(missing, "conflict directory")
	}
	if opts.Taxonomy == nil {
		missing = append(missing, "status taxonomy")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("reconcile: missing dependencies: %v", missing)
	}
	if deps.Board == nil {
		opts.BoardStatus = false
		opts.BoardDates = false
	}
	if opts.SourceName == "" {
		opts.SourceName = "TASKS.md"
	}
	e := &Engine{
		local:     deps.Local,
		remote:    deps.Remote,
		board:     deps.Board,
		baselines: deps.Baselines,
		conflicts: deps.Conflicts,
		logger:    deps.Logger,
		now:       deps.Now,
		opts:      opts,
		tax:       opts.Taxonomy,
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

func (e *Engine) today() string {
	return e.now().UTC().Format(protocol.DateLayout)
}

// linkState is the outcome of resolving a task's external reference.
type linkState int

const (
	linkNone linkState = iota
	linkInvalid
	linkMissing
	linkOK
)

// snapshot is the state of one run, read once at the start.
type snapshot struct {
	board     *protocol.Board
	issues    map[int]*protocol.Issue
	order     []int
	statuses  map[int]protocol.BoardStatus
	dates     map[int]protocol.BoardDates
	baselines baseline.Map
}

func (e *Engine) load(ctx context.Context) (*snapshot, error) {
	b, err := e.local.Load()
	if err != nil {
		return nil, err
	}
	if err := e.tax.ValidateTasks(b.Tasks); err != nil {
		return nil, err
	}

	issues, err := e.remote.ListIssues(ctx)
	if err != nil {
		return nil, err
	}
	s := &snapshot{
		board:    b,
		issues:   make(map[int]*protocol.Issue, len(issues)),
		statuses: map[int]protocol.BoardStatus{},
		dates:    map[int]protocol.BoardDates{},
	}
	for i := range issues {
		s.issues[issues[i].Number] = &issues[i]
		s.order = append(s.order, issues[i].Number)
	}
	slices.Sort(s.order)

	if e.opts.BoardStatus {
		rows, err := e.board.BoardStatuses(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			s.statuses[r.IssueNumber] = r
		}
	}
	if e.opts.BoardDates {
		rows, err := e.board.BoardDates(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			s.dates[r.IssueNumber] = r
		}
	}

	s.baselines, err = e.baselines.Load(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("snapshot loaded",
		"tasks", len(b.Tasks), "issues", len(issues),
		"board_items", len(s.statuses), "baselines", len(s.baselines))
	return s, nil
}

// resolve looks up the remote issue of t.
func (s *snapshot) resolve(t *protocol.Task) (int, *protocol.Issue, linkState) {
	if !t.Linked() {
		return 0, nil, linkNone
	}
	n, ok := t.IssueNumber()
	if !ok {
		return 0, nil, linkInvalid
	}
	issue, ok := s.issues[n]
	if !ok {
		return n, nil, linkMissing
	}
	return n, issue, linkOK
}

// boardStatus returns the board status option name of an issue, or "".
func (s *snapshot) boardStatus(n int) string {
	return s.statuses[n].StatusName
}

// itemID returns the board item id of an issue, or "".
func (s *snapshot) itemID(n int) string {
	if r, ok := s.statuses[n]; ok && r.ItemID != "" {
		return r.ItemID
	}
	return s.dates[n].ItemID
}

// baselineFor returns the baseline entry of t, if any.
func (s *snapshot) baselineFor(t *protocol.Task) (protocol.BaselineEntry, bool) {
	e, ok := s.baselines[t.ExternalID]
	return e, ok
}

// linkedTask returns the task linked to issue n, or nil.
func (s *snapshot) linkedTask(n int) *protocol.Task {
	for _, t := range s.board.Tasks {
		if m, ok := t.IssueNumber(); ok && m == n {
			return t
		}
	}
	return nil
}

func (e *Engine) saveState(ctx context.Context, s *snapshot) error {
	if err := e.local.Save(s.board); err != nil {
		return err
	}
	if err := e.baselines.Save(ctx, s.baselines); err != nil {
		return fmt.Errorf("save baselines: %w", err)
	}
	return nil
}

// readDetail reads the local detail of t, wrapping errors with the task id.
func (e *Engine) readDetail(t *protocol.Task) (string, error) {
	d, err := e.local.ReadDetail(t)
	if err != nil {
		return "", fmt.Errorf("task %s: %w", t.ID, err)
	}
	return d, nil
}
