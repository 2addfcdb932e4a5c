package pgx

// Email and delegated-subject uniqueness apply to non-deleted accounts
// only, matching the authority's invariant. Dead sessions are retained for
// audit and reaped by DeleteExpiredSessions.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                TEXT PRIMARY KEY,
	email             TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'active',
	credential_hash   TEXT,
	delegated_subject TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_live_idx
	ON accounts (email) WHERE status <> 'deleted';

CREATE UNIQUE INDEX IF NOT EXISTS accounts_delegated_subject_live_idx
	ON accounts (delegated_subject)
	WHERE delegated_subject IS NOT NULL AND status <> 'deleted';

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts (id),
	issued_at  TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	revoked    BOOLEAN NOT NULL DEFAULT FALSE,
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS sessions_account_id_idx ON sessions (account_id);
CREATE INDEX IF NOT EXISTS sessions_expires_at_idx ON sessions (expires_at);
`
