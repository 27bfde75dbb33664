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

CREATE TABLE IF NOT EXISTS messages (
	id               TEXT PRIMARY KEY,
	account          TEXT NOT NULL,
	folder           TEXT NOT NULL,
	uid              INTEGER NOT NULL,
	message_id       TEXT NOT NULL DEFAULT '',
	subject          TEXT NOT NULL DEFAULT '',
	from_name        TEXT NOT NULL DEFAULT '',
	from_addr        TEXT NOT NULL DEFAULT '',
	to_addrs         TEXT NOT NULL DEFAULT '[]',
	date             DATETIME NOT NULL,
	flags            TEXT NOT NULL DEFAULT '[]',
	attachment_count INTEGER NOT NULL DEFAULT 0,
	fetched_at       DATETIME NOT NULL,
	UNIQUE(account, folder, uid)
);

CREATE TABLE IF NOT EXISTS send_jobs (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	mode        TEXT NOT NULL CHECK(mode IN ('join', 'each', 'smooth')),
	account     TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	total       INTEGER NOT NULL DEFAULT 0,
	sent        INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	dry_run     INTEGER NOT NULL DEFAULT 0 CHECK(dry_run IN (0, 1)),
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS sends (
	id        TEXT PRIMARY KEY,
	job_id    TEXT NOT NULL REFERENCES send_jobs(id) ON DELETE CASCADE,
	recipient TEXT NOT NULL,
	status    TEXT NOT NULL CHECK(status IN ('sent', 'failed')),
	error     TEXT NOT NULL DEFAULT '',
	sent_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_account_folder ON messages(account, folder);
CREATE INDEX IF NOT EXISTS idx_messages_date ON messages(date);
CREATE INDEX IF NOT EXISTS idx_messages_from_addr ON messages(from_addr);
CREATE INDEX IF NOT EXISTS idx_sends_job_id ON sends(job_id);
CREATE INDEX IF NOT EXISTS idx_sends_status ON sends(status);
CREATE INDEX IF NOT EXISTS idx_send_jobs_created ON send_jobs(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
