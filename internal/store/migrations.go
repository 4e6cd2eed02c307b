package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL CHECK(kind IN ('analysis', 'processing', 'search')),
	mailbox      TEXT NOT NULL DEFAULT '',
	started_at   DATETIME NOT NULL,
	finished_at  DATETIME NOT NULL,
	messages     INTEGER NOT NULL DEFAULT 0,
	moved        INTEGER NOT NULL DEFAULT 0,
	replied      INTEGER NOT NULL DEFAULT 0,
	reply_failed INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, started_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS run_actions (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	message_uid INTEGER NOT NULL,
	sender      TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	rule        TEXT NOT NULL DEFAULT '',
	folder      TEXT NOT NULL DEFAULT '',
	replied     INTEGER NOT NULL DEFAULT 0 CHECK(replied IN (0, 1)),
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_mailbox ON runs(mailbox);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
