package reconcile

import (
	"context"
	"fmt"
	"iter"

	"kanbansync/pkg/baseline"
	"kanbansync/pkg/conflict"
	"kanbansync/pkg/protocol"
)

// Accept is the side a reconcile keeps.
type Accept string

// Reconcile choices. AcceptNone only regenerates the artifact.
const (
	AcceptNone   Accept = ""
	AcceptLocal  Accept = "local"
	AcceptRemote Accept = "remote"
)

// ParseAccept parses an --accept value.
func ParseAccept(s string) (Accept, error) {
	switch Accept(s) {
	case AcceptNone, AcceptLocal, AcceptRemote:
		return Accept(s), nil
	default:
		return "", fmt.Errorf("invalid --accept value %q: use local or remote", s)
	}
}

// Reconcile resolves a detail conflict for one task.
//
// Without a choice it (re)writes the conflict artifact and leaves the
// baseline alone. Accepting local rebases the baseline on the current issue
// with the remote detail as ancestor, so the next push writes the body.
// Accepting remote overwrites the detail file with the remote detail and
// records both sides as agreed. Either choice removes the artifact.
func (e *Engine) Reconcile(ctx context.Context, taskID string, accept Accept) (*ReconcileResult, error) {
	s, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	t := s.board.Find(taskID)
	if t == nil {
		return nil, &protocol.NotFoundError{Kind: "task", ID: taskID}
	}
	n, issue, state := s.resolve(t)
	switch state {
	case linkNone, linkInvalid:
		return nil, &protocol.UnlinkedError{TaskID: t.ID, ExternalID: t.ExternalID}
	case linkMissing:
		return nil, &protocol.NotFoundError{Kind: "issue", ID: fmt.Sprintf("#%d", n)}
	}
	entry, ok := s.baselineFor(t)
	if !ok {
		return nil, &protocol.NoBaselineError{TaskID: t.ID}
	}
	detail, err := e.readDetail(t)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{TaskID: t.ID, IssueNumber: n, Accepted: accept}
	switch accept {
	case AcceptNone:
		path, err := e.conflicts.Write(conflict.Artifact{Task: t, Issue: issue, Base: entry, Local: detail})
		if err != nil {
			return nil, err
		}
		res.ArtifactPath = path
		e.logger.Info("conflict artifact written", "task", t.ID, "path", path)
		return res, nil

	case AcceptLocal:
		s.baselines[t.ExternalID] = baseline.NewEntry(t, issue, remoteDetail(issue.Body), e.now())

	case AcceptRemote:
		// A task without a detail path has nothing to overwrite.
		if t.Detail != "" {
			if err := e.local.WriteDetail(t, remoteDetail(issue.Body)); err != nil {
				return nil, fmt.Errorf("task %s: %w", t.ID, err)
			}
		}
		written, err := e.readDetail(t)
		if err != nil {
			return nil, err
		}
		s.baselines[t.ExternalID] = baseline.NewEntry(t, issue, written, e.now())

	default:
		return nil, fmt.Errorf("invalid accept choice %q", accept)
	}

	if err := e.baselines.Save(ctx, s.baselines); err != nil {
		return nil, fmt.Errorf("save baselines: %w", err)
	}
	if _, err := e.conflicts.Remove(t.ID); err != nil {
		return nil, err
	}
	res.ArtifactPath = e.conflicts.Path(t.ID)
	res.Resolved = true
	e.logger.Info("conflict resolved", "task", t.ID, "issue", n, "accepted", string(accept))
	return res, nil
}

// ListConflicts yields the paths of pending conflict artifacts.
func (e *Engine) ListConflicts() iter.Seq[string] {
	return e.conflicts.List()
}
