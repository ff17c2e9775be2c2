package baseline

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"kanbansync/pkg/protocol"
)

func fixedClock() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }

func sampleMap() Map {
	task := &protocol.Task{ID: "T-001"}
	issue := &protocol.Issue{Number: 7, Body: "remote body", UpdatedAt: "2026-02-01T00:00:00Z"}
	e := NewEntry(task, issue, "local detail", fixedClock())
	return Map{e.ExternalID: e}
}

func TestHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(""))
	assert.NotEqual(t, Hash("a"), Hash("b"))
}

func TestNewEntryAndChangeDetection(t *testing.T) {
	task := &protocol.Task{ID: "T-001"}
	issue := &protocol.Issue{Number: 7, Body: "body", UpdatedAt: "u1"}
	e := NewEntry(task, issue, "detail", fixedClock())

	assert.Equal(t, "github:issue:7", e.ExternalID)
	assert.Equal(t, 7, e.IssueNumber)
	assert.Equal(t, "body", e.RemoteBody)
	assert.Equal(t, Hash("detail"), e.LocalDetailHash)
	assert.Equal(t, "2026-02-03T04:05:06Z", e.BaselinedAt)

	assert.False(t, RemoteChanged(e, issue))
	assert.True(t, RemoteChanged(e, &protocol.Issue{Number: 7, Body: "body", UpdatedAt: "u2"}))
	assert.True(t, RemoteChanged(e, &protocol.Issue{Number: 7, Body: "edited", UpdatedAt: "u1"}))
	assert.False(t, LocalChanged(e, "detail"))
	assert.True(t, LocalChanged(e, "detail\n"))
}

func TestJSONStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), protocol.StateDir)
	s := NewJSONStore(dir, WithRunID("run-1"), WithClock(fixedClock))

	m, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)

	want := sampleMap()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"run_id": "run-1"`)
	assert.Contains(t, string(raw), `"generated_at": "2026-02-03T04:05:06Z"`)
}

func TestJSONStoreQuarantinesCorruptSidecar(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewJSONStore(dir, WithClock(fixedClock))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{broken"), 0o600))

	m, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)

	_, err = os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "corrupt sidecar should be moved away")

	entries, err := os.ReadDir(filepath.Join(dir, protocol.QuarantineDir))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json.20260203T040506.corrupt", entries[0].Name())
}

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, openMemory(t), "run-2", nil)
	require.NoError(t, err)
	s.now = fixedClock

	m, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)

	want := sampleMap()
	require.NoError(t, s.Save(ctx, want))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A second save replaces rather than merges.
	require.NoError(t, s.Save(ctx, Map{}))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	var runID, generated string
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT run_id, generated_at FROM baseline_meta WHERE id = 1`).Scan(&runID, &generated))
	assert.Equal(t, "run-2", runID)
	assert.Equal(t, "2026-02-03T04:05:06Z", generated)
}

func TestMapKeysSorted(t *testing.T) {
	m := Map{"github:issue:9": {}, "github:issue:10": {}, "github:issue:1": {}}
	assert.Equal(t, []string{"github:issue:1", "github:issue:10", "github:issue:9"}, m.Keys())
}
