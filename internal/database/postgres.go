package database

// postgresSchema creates the accounts, users and journal_entries tables.
// List-valued columns are JSONB arrays so the same encoding works on both backends.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		email VARCHAR(254) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		memory JSONB NOT NULL DEFAULT '[]'::jsonb,
		details TEXT NOT NULL DEFAULT '',
		memory_enabled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS journal_entries (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		raw_entry TEXT NOT NULL,
		summarized_entry TEXT NOT NULL,
		title TEXT NOT NULL,
		mood_score NUMERIC(5,2) NOT NULL CHECK (mood_score >= 0 AND mood_score <= 100),
		significant_events JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_created_at ON journal_entries(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_user_created_at ON journal_entries(user_id, created_at DESC)`,
}
