package reconcile

import (
	"context"
	"slices"

	"kanbansync/pkg/protocol"
)

// Status compares the board with the remote without writing anything.
func (e *Engine) Status(ctx context.Context) (*StatusReport, error) {
	s, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	r := &StatusReport{
		LocalTasks:       len(s.board.Tasks),
		RemoteIssues:     len(s.issues),
		MissingRemote:    []TaskRef{},
		InvalidLinks:     []InvalidLink{},
		RemoteOnly:       []RemoteOnly{},
		Diverged:         []StatusChange{},
		Content:          []TaskContent{},
		PendingConflicts: slices.Collect(e.conflicts.List()),
	}
	if r.PendingConflicts == nil {
		r.PendingConflicts = []string{}
	}

	linked := map[int]bool{}
	for _, t := range s.board.Tasks {
		n, issue, state := s.resolve(t)
		switch state {
		case linkNone:
			r.UnlinkedTasks++
			continue
		case linkInvalid:
			r.InvalidLinks = append(r.InvalidLinks, InvalidLink{TaskID: t.ID, ExternalID: t.ExternalID})
			continue
		}
		r.LinkedTasks++
		linked[n] = true
		if state == linkMissing {
			r.MissingRemote = append(r.MissingRemote, TaskRef{TaskID: t.ID, IssueNumber: n})
			continue
		}

		if remote := RemoteLocalStatus(e.tax, t, issue, s.boardStatus(n)); remote != t.Status {
			r.Diverged = append(r.Diverged, StatusChange{TaskID: t.ID, IssueNumber: n, Local: t.Status, Remote: remote})
		}

		detail, err := e.readDetail(t)
		if err != nil {
			return nil, err
		}
		var entry *protocol.BaselineEntry
		if b, ok := s.baselineFor(t); ok {
			entry = &b
		}
		r.Content = append(r.Content, TaskContent{TaskID: t.ID, IssueNumber: n, State: Classify(issue, entry, detail)})
	}

	for _, n := range s.order {
		if linked[n] {
			continue
		}
		r.RemoteOnlyTotal++
		if len(r.RemoteOnly) < remoteOnlyLimit {
			issue := s.issues[n]
			r.RemoteOnly = append(r.RemoteOnly, RemoteOnly{Number: n, Title: issue.Title, State: issue.State, URL: issue.URL})
		}
	}
	return r, nil
}
