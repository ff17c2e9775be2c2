package reconcile

import (
	"context"
	"errors"
	"fmt"

	"kanbansync/pkg/baseline"
	"kanbansync/pkg/conflict"
	"kanbansync/pkg/protocol"
)

const (
	pushHint = `Push blocked for the tasks above to avoid data loss. Run "` + protocol.CLIName +
		` pull" or "` + protocol.CLIName + ` reconcile <id>", then push again. Use --force to override.`
	forcePushHint = "Some tasks failed even with --force. Resolve the errors above, then push again."
)

// pushRun is the state of one push.
type pushRun struct {
	e         *Engine
	s         *snapshot
	opts      RunOptions
	res       *PushResult
	mutated   bool
	optionIDs map[string]string
}

// Push writes local tasks to the remote. Unlinked tasks get a new issue;
// linked tasks are updated only when their content is safe to write. Tasks
// that cannot be written are skipped and reported together in an
// *protocol.AggregateError after everything else is committed.
func (e *Engine) Push(ctx context.Context, opts RunOptions) (*PushResult, error) {
	s, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	p := &pushRun{
		e:    e,
		s:    s,
		opts: opts,
		res: &PushResult{
			DryRun:      opts.DryRun,
			Created:     []TaskRef{},
			Updated:     []TaskRef{},
			BodySkipped: []string{},
			Skipped:     []Skip{},
			Conflicts:   []string{},
			Actions:     []string{},
		},
	}

	var failures []error
	var interrupted error
	for _, t := range s.board.Tasks {
		if err := ctx.Err(); err != nil {
			interrupted = err
			break
		}
		if err := p.task(ctx, t); err != nil {
			failures = append(failures, err)
			p.res.Skipped = append(p.res.Skipped, Skip{TaskID: t.ID, Reason: err.Error()})
			e.logger.Warn("push skipped task", "task", t.ID, "error", err)
		}
	}

	if !opts.DryRun && p.mutated {
		if err := e.saveState(ctx, s); err != nil {
			return p.res, err
		}
	}
	e.logger.Info("push finished",
		"created", len(p.res.Created), "updated", len(p.res.Updated),
		"skipped", len(failures), "dry_run", opts.DryRun)

	if interrupted != nil {
		return p.res, fmt.Errorf("push interrupted: %w", interrupted)
	}
	if len(failures) > 0 {
		hint := pushHint
		if opts.Force {
			hint = forcePushHint
		}
		return p.res, &protocol.AggregateError{Op: "push", Failures: failures, Hint: hint}
	}
	return p.res, nil
}

func (p *pushRun) action(format string, args ...any) {
	prefix := ""
	if p.opts.DryRun {
		prefix = "[dry-run] "
	}
	p.res.Actions = append(p.res.Actions, prefix+fmt.Sprintf(format, args...))
}

func (p *pushRun) task(ctx context.Context, t *protocol.Task) error {
	n, issue, state := p.s.resolve(t)
	switch state {
	case linkInvalid:
		return &protocol.UnlinkedError{TaskID: t.ID, ExternalID: t.ExternalID}
	case linkMissing:
		return &protocol.NotFoundError{
			Kind: "issue", ID: fmt.Sprintf("#%d", n),
			Hint: fmt.Sprintf("Task %s links to it; fix or clear its externalId", t.ID),
		}
	}

	detail, err := p.e.readDetail(t)
	if err != nil {
		return err
	}
	if state == linkNone {
		return p.create(ctx, t, detail)
	}

	writeBody := true
	if !p.opts.Force {
		entry, ok := p.s.baselineFor(t)
		if !ok {
			return &protocol.NoBaselineError{TaskID: t.ID}
		}
		switch Classify(issue, &entry, detail) {
		case ContentConflict:
			return p.conflict(t, issue, entry, detail)
		case ContentRemoteAhead:
			return &protocol.StaleError{TaskID: t.ID, IssueNumber: n}
		case ContentClean:
			writeBody = false
		}
	}
	return p.update(ctx, t, n, detail, writeBody)
}

func (p *pushRun) conflict(t *protocol.Task, issue *protocol.Issue, entry protocol.BaselineEntry, detail string) error {
	path, err := p.e.conflicts.Write(conflict.Artifact{Task: t, Issue: issue, Base: entry, Local: detail})
	if err != nil {
		return err
	}
	p.res.Conflicts = append(p.res.Conflicts, path)
	return &protocol.ContentConflictError{TaskID: t.ID, IssueNumber: issue.Number, ArtifactPath: path}
}

func (p *pushRun) create(ctx context.Context, t *protocol.Task, detail string) error {
	e := p.e
	today := e.today()
	e.tax.NormalizeCompletion(t, today)
	in := protocol.IssueInput{
		Title:     t.Title,
		Body:      IssueBody(t, detail, e.opts.SourceName, today),
		Labels:    TaskLabels(t),
		Milestone: t.Milestone,
	}
	if p.opts.DryRun {
		p.res.Created = append(p.res.Created, TaskRef{TaskID: t.ID})
		p.action("create issue for %s (%s)", t.ID, t.Title)
		return nil
	}

	issue, err := e.remote.CreateIssue(ctx, in)
	if err != nil {
		return fmt.Errorf("task %s: %w", t.ID, err)
	}
	t.ExternalID = protocol.ExternalID(issue.Number)
	t.Updated = today
	p.mutated = true
	p.s.issues[issue.Number] = issue
	p.res.Created = append(p.res.Created, TaskRef{TaskID: t.ID, IssueNumber: issue.Number})
	p.action("created issue #%d for %s", issue.Number, t.ID)

	p.s.baselines[t.ExternalID] = baseline.NewEntry(t, issue, detail, e.now())

	if e.tax.IsCompletion(t.Status) {
		closed := protocol.IssueClosed
		updated, err := e.remote.UpdateIssue(ctx, issue.Number, protocol.IssuePatch{State: &closed})
		if err != nil {
			return fmt.Errorf("task %s: close issue #%d: %w", t.ID, issue.Number, err)
		}
		issue = updated
		p.s.issues[issue.Number] = issue
		p.s.baselines[t.ExternalID] = baseline.NewEntry(t, issue, detail, e.now())
	}
	return p.syncBoard(ctx, t, issue)
}

func (p *pushRun) update(ctx context.Context, t *protocol.Task, n int, detail string, writeBody bool) error {
	e := p.e
	today := e.today()
	e.tax.NormalizeCompletion(t, today)

	state := protocol.IssueOpen
	if e.tax.IsCompletion(t.Status) {
		state = protocol.IssueClosed
	}
	labels := TaskLabels(t)
	patch := protocol.IssuePatch{Title: &t.Title, State: &state, Labels: &labels}
	if t.Milestone != "" {
		patch.Milestone = &t.Milestone
	}
	if writeBody {
		body := IssueBody(t, detail, e.opts.SourceName, today)
		patch.Body = &body
	} else {
		p.res.BodySkipped = append(p.res.BodySkipped, t.ID)
	}

	if p.opts.DryRun {
		p.res.Updated = append(p.res.Updated, TaskRef{TaskID: t.ID, IssueNumber: n})
		p.action("update issue #%d from %s", n, t.ID)
		if !writeBody {
			p.action("skip body update for %s (detail unchanged since last pull)", t.ID)
		}
		return p.syncBoard(ctx, t, p.s.issues[n])
	}

	issue, err := e.remote.UpdateIssue(ctx, n, patch)
	if err != nil {
		return fmt.Errorf("task %s: %w", t.ID, err)
	}
	p.s.issues[n] = issue
	p.s.baselines[t.ExternalID] = baseline.NewEntry(t, issue, detail, e.now())
	t.Updated = today
	p.mutated = true
	p.res.Updated = append(p.res.Updated, TaskRef{TaskID: t.ID, IssueNumber: n})
	p.action("updated issue #%d from %s", n, t.ID)

	if removed, err := e.conflicts.Remove(t.ID); err != nil {
		e.logger.Warn("could not remove stale conflict artifact", "task", t.ID, "error", err)
	} else if removed {
		p.action("removed stale conflict artifact for %s", t.ID)
	}
	return p.syncBoard(ctx, t, issue)
}

// syncBoard attaches the issue to the board and aligns its status option and
// date fields with the task.
func (p *pushRun) syncBoard(ctx context.Context, t *protocol.Task, issue *protocol.Issue) error {
	e := p.e
	if !e.opts.BoardStatus && !e.opts.BoardDates {
		return nil
	}
	n := issue.Number
	itemID := p.s.itemID(n)

	if itemID == "" {
		if p.opts.DryRun {
			p.action("add issue #%d to the board", n)
		} else {
			if issue.NodeID == "" {
				return fmt.Errorf("task %s: issue #%d has no node id to add to the board", t.ID, n)
			}
			id, err := e.board.AddToBoard(ctx, issue.NodeID)
			if err != nil {
				return fmt.Errorf("task %s: %w", t.ID, err)
			}
			itemID = id
			p.s.statuses[n] = protocol.BoardStatus{IssueNumber: n, ItemID: id}
		}
	}

	if e.opts.BoardStatus {
		if err := p.syncBoardStatus(ctx, t, n, itemID); err != nil {
			return err
		}
	}
	if e.opts.BoardDates {
		if err := p.syncBoardDates(ctx, t, n, itemID); err != nil {
			return err
		}
	}
	return nil
}

func (p *pushRun) syncBoardStatus(ctx context.Context, t *protocol.Task, n int, itemID string) error {
	e := p.e
	name, ok := e.tax.RemoteName(t.Status)
	if !ok || name == p.s.boardStatus(n) {
		return nil
	}
	if p.optionIDs == nil {
		ids, err := e.board.StatusOptionIDs(ctx)
		if err != nil {
			return fmt.Errorf("task %s: %w", t.ID, err)
		}
		p.optionIDs = ids
	}
	optionID, ok := p.optionIDs[name]
	if !ok {
		p.action("no board status option named %q for %s", name, t.ID)
		e.logger.Warn("board has no matching status option", "task", t.ID, "status", name)
		return nil
	}
	if p.opts.DryRun {
		p.action("set board status of issue #%d to %s", n, name)
		return nil
	}
	if err := e.board.SetBoardStatus(ctx, itemID, optionID); err != nil {
		return fmt.Errorf("task %s: %w", t.ID, err)
	}
	row := p.s.statuses[n]
	row.IssueNumber, row.ItemID, row.StatusName = n, itemID, name
	p.s.statuses[n] = row
	p.action("set board status of issue #%d to %s", n, name)
	return nil
}

func (p *pushRun) syncBoardDates(ctx context.Context, t *protocol.Task, n int, itemID string) error {
	e := p.e
	have := p.s.dates[n]
	fields := []struct {
		field      protocol.DateField
		want, have string
	}{
		{protocol.DateStart, t.Start, have.Start},
		{protocol.DateDue, t.Due, have.Due},
		{protocol.DateCompleted, t.Completed, have.Completed},
	}

	var errs []error
	for _, f := range fields {
		if !e.board.DateEnabled(f.field) || f.want == f.have {
			continue
		}
		if p.opts.DryRun {
			p.action("set board %s date of issue #%d to %q", f.field, n, f.want)
			continue
		}
		var err error
		if f.want == "" {
			err = e.board.ClearBoardDate(ctx, itemID, f.field)
		} else {
			err = e.board.SetBoardDate(ctx, itemID, f.field, f.want)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.action("set board %s date of issue #%d to %q", f.field, n, f.want)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("task %s: %w", t.ID, err)
	}
	return nil
}
