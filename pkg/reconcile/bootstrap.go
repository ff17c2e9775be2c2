package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"kanbansync/pkg/baseline"
	"kanbansync/pkg/board"
	"kanbansync/pkg/protocol"
)

// Direction is the seeding direction of a bootstrap.
type Direction string

// Bootstrap directions.
const (
	FromLocal  Direction = "local"
	FromRemote Direction = "remote"
)

// ParseDirection parses a --from value. "github" is accepted for remote.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "local":
		return FromLocal, nil
	case "remote", "github":
		return FromRemote, nil
	default:
		return "", fmt.Errorf("invalid bootstrap direction %q: use local or remote", s)
	}
}

// Bootstrap seeds one side from the other. From local it is a push followed
// by optional stub detail files; from remote it imports every issue not yet
// linked as a new task and refreshes linked tasks the way pull does.
func (e *Engine) Bootstrap(ctx context.Context, dir Direction, opts RunOptions) (*BootstrapResult, error) {
	if e.opts.RequireConfirm && !opts.DryRun && !opts.Confirm {
		return nil, &protocol.ConfirmationRequiredError{Operation: "bootstrap"}
	}
	switch dir {
	case FromLocal:
		return e.bootstrapLocal(ctx, opts)
	case FromRemote:
		return e.bootstrapRemote(ctx, opts)
	default:
		return nil, fmt.Errorf("invalid bootstrap direction %q", dir)
	}
}

func (e *Engine) bootstrapLocal(ctx context.Context, opts RunOptions) (*BootstrapResult, error) {
	push, err := e.Push(ctx, opts)
	res := &BootstrapResult{Direction: FromLocal, DryRun: opts.DryRun, Push: push}
	var agg *protocol.AggregateError
	if err != nil && !errors.As(err, &agg) {
		return res, err
	}
	if opts.DryRun || !e.opts.CreateMissingDetailFiles {
		return res, err
	}

	b, lerr := e.local.Load()
	if lerr != nil {
		return res, errors.Join(err, lerr)
	}
	created, derr := e.ensureDetailFiles(b.Tasks)
	res.DetailFiles = created
	return res, errors.Join(err, derr)
}

func (e *Engine) bootstrapRemote(ctx context.Context, opts RunOptions) (*BootstrapResult, error) {
	s, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	res := &BootstrapResult{Direction: FromRemote, DryRun: opts.DryRun, CreatedLocal: []TaskRef{}, UpdatedLocal: []TaskRef{}}
	today := e.today()

	for _, n := range s.order {
		issue := s.issues[n]
		t := s.linkedTask(n)
		if t != nil {
			before := *t
			t.Status = RemoteLocalStatus(e.tax, t, issue, s.boardStatus(n))
			e.applyRemote(t, issue, s.dates[n])
			if t.Title == "" {
				t.Title = issue.Title
			}
			if taskChanged(&before, t) || before.Title != t.Title {
				t.Updated = today
			}
			res.UpdatedLocal = append(res.UpdatedLocal, TaskRef{TaskID: t.ID, IssueNumber: n})
		} else {
			id := board.NextTaskID(s.board)
			t = &protocol.Task{
				ID:         id,
				Title:      issue.Title,
				Status:     importStatus(e.tax, issue, s.boardStatus(n)),
				ExternalID: protocol.ExternalID(n),
				Updated:    today,
				Detail:     board.DefaultDetailPath(id),
			}
			e.applyRemote(t, issue, s.dates[n])
			s.board.Tasks = append(s.board.Tasks, t)
			res.CreatedLocal = append(res.CreatedLocal, TaskRef{TaskID: id, IssueNumber: n})
		}
	}

	e.logger.Info("bootstrap from remote computed",
		"created", len(res.CreatedLocal), "updated", len(res.UpdatedLocal), "dry_run", opts.DryRun)
	if opts.DryRun {
		return res, nil
	}

	if e.opts.CreateMissingDetailFiles {
		created, err := e.ensureDetailFiles(s.board.Tasks)
		res.DetailFiles = created
		if err != nil {
			return res, err
		}
	}

	// Baselines are taken after stub creation so an immediate push sees
	// neither side as changed.
	for _, ref := range slices.Concat(res.CreatedLocal, res.UpdatedLocal) {
		t := s.board.Find(ref.TaskID)
		detail, err := e.readDetail(t)
		if err != nil {
			return res, err
		}
		s.baselines[t.ExternalID] = baseline.NewEntry(t, s.issues[ref.IssueNumber], detail, e.now())
	}

	if err := e.saveState(ctx, s); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) ensureDetailFiles(tasks []*protocol.Task) ([]string, error) {
	var created []string
	for _, t := range tasks {
		ok, err := e.local.EnsureDetailFile(t)
		if err != nil {
			return created, err
		}
		if ok {
			created = append(created, t.ID)
		}
	}
	return created, nil
}
