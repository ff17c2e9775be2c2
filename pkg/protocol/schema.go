package protocol

// SchemaDDL defines the SQLite schema of the baseline sidecar database.
// Tables: baselines (one row per linked task), baseline_meta (generation stamp).
// Execute against a SQLite database with: db.Exec(SchemaDDL)
const SchemaDDL = `
-- Last agreed snapshot per linked task, keyed by external reference
CREATE TABLE IF NOT EXISTS baselines (
    external_id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL,
    issue_number INTEGER NOT NULL,
    remote_updated_at TEXT NOT NULL,
    remote_body_hash TEXT NOT NULL,
    remote_body TEXT NOT NULL DEFAULT '',
    local_detail_hash TEXT NOT NULL,
    local_detail TEXT NOT NULL DEFAULT '',
    baselined_at TEXT NOT NULL
);

-- Single-row generation stamp, rewritten on every save
CREATE TABLE IF NOT EXISTS baseline_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    version INTEGER NOT NULL,
    generated_at TEXT NOT NULL,
    run_id TEXT NOT NULL DEFAULT ''
);
`

// BaselineSchemaVersion is the version stamped into both sidecar backends.
const BaselineSchemaVersion = 1
