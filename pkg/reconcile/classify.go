package reconcile

import (
	"kanbansync/pkg/baseline"
	"kanbansync/pkg/protocol"
	"kanbansync/pkg/status"
)

// ContentState classifies a task's detail content against the remote body
// and the last baseline.
type ContentState string

// Content states, derived each run and never stored.
const (
	ContentUnlinked      ContentState = "unlinked"
	ContentInvalidLink   ContentState = "invalid-link"
	ContentRemoteMissing ContentState = "remote-missing"
	ContentNoBaseline    ContentState = "no-baseline"
	ContentClean         ContentState = "clean"
	ContentLocalAhead    ContentState = "local-ahead"
	ContentRemoteAhead   ContentState = "remote-ahead"
	ContentConflict      ContentState = "conflict"
)

// Classify compares a linked task's remote issue and local detail with its
// baseline. entry is nil when no baseline exists.
func Classify(issue *protocol.Issue, entry *protocol.BaselineEntry, localDetail string) ContentState {
	if entry == nil {
		return ContentNoBaseline
	}
	remote := baseline.RemoteChanged(*entry, issue)
	local := baseline.LocalChanged(*entry, localDetail)
	switch {
	case remote && local:
		return ContentConflict
	case remote:
		return ContentRemoteAhead
	case local:
		return ContentLocalAhead
	default:
		return ContentClean
	}
}

// RemoteLocalStatus is the local status the remote implies for task. A board
// status option mapped through the status map wins; otherwise a closed issue
// implies a completion status and an open issue implies no change.
func RemoteLocalStatus(tax *status.Taxonomy, task *protocol.Task, issue *protocol.Issue, boardStatus string) string {
	if boardStatus != "" {
		if local, ok := tax.LocalFor(boardStatus); ok {
			return local
		}
	}
	if issue.Closed() {
		if tax.IsCompletion(task.Status) {
			return task.Status
		}
		return tax.FirstCompletion()
	}
	return task.Status
}

// importStatus is the initial status of a task created from a remote issue.
func importStatus(tax *status.Taxonomy, issue *protocol.Issue, boardStatus string) string {
	if boardStatus != "" {
		if local, ok := tax.LocalFor(boardStatus); ok {
			return local
		}
	}
	if issue.Closed() {
		return tax.FirstCompletion()
	}
	return tax.DefaultImport()
}
