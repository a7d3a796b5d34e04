package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SchemaVersion is the current relational schema version.
const SchemaVersion = 1

// Dialect captures the handful of differences between the supported SQL backends.
// Queries are written with "?" placeholders and rebound per dialect.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Rebind converts "?" placeholders to "$1, $2, ..." for Postgres. Quoted strings are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Open connects to the configured backend, tunes the pool and applies migrations.
func Open(driver, dsn string) (*sql.DB, Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(driver)))

	var db *sql.DB
	var err error
	switch d {
	case Postgres:
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("open: sql open: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	case SQLite:
		if dsn == "" {
			return nil, "", fmt.Errorf("open: empty sqlite path")
		}
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, "", fmt.Errorf("open: create db dir: %w", err)
			}
		}
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, "", fmt.Errorf("open: sql open: %w", err)
		}
		// One writer at a time; avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	default:
		return nil, "", fmt.Errorf("open: unsupported driver %q", driver)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("open: ping: %w", err)
	}
	log.Printf("✅ Connected to %s", d)

	if err := Migrate(db, d); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("open: migrate: %w", err)
	}
	return db, d, nil
}

func sqliteDSN(path string) string {
	return "file:" + path + "?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// Migrate ensures the schema exists and is at SchemaVersion.
func Migrate(db *sql.DB, d Dialect) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}
	if current >= SchemaVersion {
		return nil
	}

	var statements []string
	switch d {
	case Postgres:
		statements = postgresSchema
	case SQLite:
		statements = sqliteSchema
	default:
		return fmt.Errorf("migrate: unsupported dialect %q", d)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %s: %w", firstLine(stmt), err)
		}
	}

	if _, err := tx.Exec(d.Rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), SchemaVersion); err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit transaction: %w", err)
	}

	log.Printf("✅ %s schema migrated to v%d", d, SchemaVersion)
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i != -1 {
		s = s[:i]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "(")
}
