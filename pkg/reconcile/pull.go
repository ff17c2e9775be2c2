package reconcile

import (
	"context"
	"slices"

	"kanbansync/pkg/baseline"
	"kanbansync/pkg/protocol"
)

// Pull copies remote state onto linked tasks: status, labels, milestone and
// board dates, remote winning unconditionally. Completion dates are
// re-normalized and every linked task gets a fresh baseline.
func (e *Engine) Pull(ctx context.Context, opts RunOptions) (*PullResult, error) {
	s, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	r := &PullResult{
		DryRun:        opts.DryRun,
		StatusChanges: []StatusChange{},
		UpdatedTasks:  []string{},
		MissingRemote: []TaskRef{},
		InvalidLinks:  []InvalidLink{},
	}
	for _, t := range s.board.Tasks {
		n, issue, state := s.resolve(t)
		switch state {
		case linkNone:
			continue
		case linkInvalid:
			r.InvalidLinks = append(r.InvalidLinks, InvalidLink{TaskID: t.ID, ExternalID: t.ExternalID})
			continue
		case linkMissing:
			r.Linked++
			r.MissingRemote = append(r.MissingRemote, TaskRef{TaskID: t.ID, IssueNumber: n})
			e.logger.Warn("linked issue not found on remote", "task", t.ID, "issue", n)
			continue
		}
		r.Linked++

		before := *t
		if remote := RemoteLocalStatus(e.tax, t, issue, s.boardStatus(n)); remote != t.Status {
			r.StatusChanges = append(r.StatusChanges, StatusChange{TaskID: t.ID, IssueNumber: n, Local: t.Status, Remote: remote})
			t.Status = remote
		}
		e.applyRemote(t, issue, s.dates[n])
		if taskChanged(&before, t) {
			t.Updated = e.today()
			r.UpdatedTasks = append(r.UpdatedTasks, t.ID)
		}

		detail, err := e.readDetail(t)
		if err != nil {
			return nil, err
		}
		s.baselines[t.ExternalID] = baseline.NewEntry(t, issue, detail, e.now())
		r.Baselines++
	}

	e.logger.Info("pull computed",
		"linked", r.Linked, "status_changes", len(r.StatusChanges),
		"updated", len(r.UpdatedTasks), "dry_run", opts.DryRun)
	if opts.DryRun {
		return r, nil
	}
	if err := e.saveState(ctx, s); err != nil {
		return nil, err
	}
	return r, nil
}

// applyRemote copies labels, milestone and board dates from the remote onto
// t and re-normalizes completion. Dates are only copied for issues on the
// board. The completion fallback prefers the board completed date, then the
// close date, then today.
func (e *Engine) applyRemote(t *protocol.Task, issue *protocol.Issue, dates protocol.BoardDates) {
	ApplyLabels(t, issue.Labels)
	t.Milestone = issue.Milestone

	if e.opts.BoardDates && dates.ItemID != "" {
		if e.board.DateEnabled(protocol.DateStart) {
			t.Start = dates.Start
		}
		if e.board.DateEnabled(protocol.DateDue) {
			t.Due = dates.Due
		}
	}

	fallback := dates.Completed
	if fallback == "" {
		fallback = issue.ClosedDate()
	}
	if fallback == "" {
		fallback = e.today()
	}
	e.tax.NormalizeCompletion(t, fallback)
}

// taskChanged reports whether a pull changed any synchronized field.
func taskChanged(a, b *protocol.Task) bool {
	return a.Status != b.Status ||
		a.Priority != b.Priority ||
		a.Workload != b.Workload ||
		!slices.Equal(a.Tags, b.Tags) ||
		(a.Tags == nil) != (b.Tags == nil) ||
		a.Milestone != b.Milestone ||
		a.Start != b.Start ||
		a.Due != b.Due ||
		a.Completed != b.Completed
}
