package baseline

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"kanbansync/pkg/protocol"
)

// SQLiteStore keeps the baseline map in a SQLite database. The caller owns
// the *sql.DB.
type SQLiteStore struct {
	db     *sql.DB
	runID  string
	now    func() time.Time
	logger *slog.Logger
}

// NewSQLiteStore applies the baseline schema to db and returns a store.
func NewSQLiteStore(ctx context.Context, db *sql.DB, runID string, logger *slog.Logger) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, protocol.SchemaDDL); err != nil {
		return nil, fmt.Errorf("apply baseline schema: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SQLiteStore{db: db, runID: runID, now: time.Now, logger: logger}, nil
}

// Load reads every baseline row. Query failures degrade to an empty map.
func (s *SQLiteStore) Load(ctx context.Context) (Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT external_id, task_id, issue_number, remote_updated_at,
		remote_body_hash, remote_body, local_detail_hash, local_detail, baselined_at FROM baselines`)
	if err != nil {
		s.logger.Warn("baseline database unreadable, treating as empty", "error", err)
		return Map{}, nil
	}
	defer func() { _ = rows.Close() }()

	m := Map{}
	for rows.Next() {
		var e protocol.BaselineEntry
		if err := rows.Scan(&e.ExternalID, &e.TaskID, &e.IssueNumber, &e.RemoteUpdatedAt,
			&e.RemoteBodyHash, &e.RemoteBody, &e.LocalDetailHash, &e.LocalDetail, &e.BaselinedAt); err != nil {
			s.logger.Warn("skipping unreadable baseline row", "error", err)
			continue
		}
		m[e.ExternalID] = e
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("baseline database read interrupted, treating as empty", "error", err)
		return Map{}, nil
	}
	return m, nil
}

// Save replaces every baseline row in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, m Map) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin baseline save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM baselines`); err != nil {
		return fmt.Errorf("clear baselines: %w", err)
	}
	for _, key := range m.Keys() {
		e := m[key]
		if _, err := tx.ExecContext(ctx, `INSERT INTO baselines (external_id, task_id, issue_number,
			remote_updated_at, remote_body_hash, remote_body, local_detail_hash, local_detail, baselined_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			key, e.TaskID, e.IssueNumber, e.RemoteUpdatedAt, e.RemoteBodyHash, e.RemoteBody,
			e.LocalDetailHash, e.LocalDetail, e.BaselinedAt); err != nil {
			return fmt.Errorf("insert baseline %s: %w", key, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO baseline_meta (id, version, generated_at, run_id)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET version = excluded.version,
			generated_at = excluded.generated_at, run_id = excluded.run_id`,
		protocol.BaselineSchemaVersion, s.now().UTC().Format(time.RFC3339), s.runID); err != nil {
		return fmt.Errorf("stamp baseline meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit baseline save: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
