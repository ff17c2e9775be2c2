// Package baseline persists the per-task synchronization baseline: the last
// remote body and local detail both sides agreed on, used as the merge
// ancestor when a push has to decide whether writing is safe.
package baseline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"time"

	"kanbansync/pkg/protocol"
)

// Map holds baseline entries keyed by external reference.
type Map map[string]protocol.BaselineEntry

// Keys returns the external references of m in sorted order.
func (m Map) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Store loads and saves the baseline map. Load degrades to an empty map when
// the sidecar is absent or unreadable; Save replaces the whole map.
type Store interface {
	Load(ctx context.Context) (Map, error)
	Save(ctx context.Context, m Map) error
}

// Hash returns the hex SHA-256 of text. It is used for equality only.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// NewEntry captures a fresh baseline for task from the issue just fetched or
// written and the current local detail.
func NewEntry(task *protocol.Task, issue *protocol.Issue, localDetail string, now time.Time) protocol.BaselineEntry {
	return protocol.BaselineEntry{
		TaskID:          task.ID,
		ExternalID:      protocol.ExternalID(issue.Number),
		IssueNumber:     issue.Number,
		RemoteUpdatedAt: issue.UpdatedAt,
		RemoteBodyHash:  Hash(issue.Body),
		RemoteBody:      issue.Body,
		LocalDetailHash: Hash(localDetail),
		LocalDetail:     localDetail,
		BaselinedAt:     now.UTC().Format(time.RFC3339),
	}
}

// RemoteChanged reports whether issue moved away from the baseline, by
// update marker or by body content.
func RemoteChanged(e protocol.BaselineEntry, issue *protocol.Issue) bool {
	return e.RemoteUpdatedAt != issue.UpdatedAt || e.RemoteBodyHash != Hash(issue.Body)
}

// LocalChanged reports whether the local detail moved away from the baseline.
func LocalChanged(e protocol.BaselineEntry, localDetail string) bool {
	return e.LocalDetailHash != Hash(localDetail)
}
