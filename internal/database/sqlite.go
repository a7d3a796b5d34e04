package database

// sqliteSchema mirrors postgresSchema for local development and tests.
// mood_score is TEXT so the two-decimal formatting survives the round trip.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		memory TEXT NOT NULL DEFAULT '[]',
		details TEXT NOT NULL DEFAULT '',
		memory_enabled_at DATETIME,
		created_at DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS journal_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		raw_entry TEXT NOT NULL,
		summarized_entry TEXT NOT NULL,
		title TEXT NOT NULL,
		mood_score TEXT NOT NULL CHECK (CAST(mood_score AS REAL) >= 0 AND CAST(mood_score AS REAL) <= 100),
		significant_events TEXT,
		created_at DATETIME NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_created_at ON journal_entries(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_user_created_at ON journal_entries(user_id, created_at DESC)`,
}
