package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/database"
	"github.com/AnshRaj112/moodlog-backend/internal/models"
	"github.com/google/uuid"
)

// Store is the relational persistence layer for accounts, users and journal entries.
// It runs unchanged on Postgres and SQLite; see database.Dialect.
type Store struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewStore returns a Store bound to an open, migrated database handle.
func NewStore(db *sql.DB, dialect database.Dialect) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("new store: db is nil")
	}
	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

// now returns the current time at the precision both backends store.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// NewEntry is the input to InsertEntry.
type NewEntry struct {
	UserID            string
	RawEntry          string
	SummarizedEntry   string
	Title             string
	MoodScore         float64
	SignificantEvents []string
	CreatedAt         time.Time // zero means now; only seeding sets it
}

// EntryFilter narrows ListEntries. Zero values mean "no constraint".
type EntryFilter struct {
	From   time.Time // inclusive
	To     time.Time // exclusive
	Query  string    // case-insensitive match on title or summary
	Limit  int
	Offset int
}

// FormatMoodScore renders a mood score with two decimals, as stored.
func FormatMoodScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ---- users ----

// UpsertUser creates the profile row for id if it does not exist yet and returns the stored row.
// The insert is keyed on the primary key, so concurrent first submissions cannot create duplicates.
func (s *Store) UpsertUser(ctx context.Context, id, email string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: upsert user: empty id", ErrValidation)
	}
	t := now()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (id, email, memory, details, memory_enabled_at, created_at)
		VALUES (?, ?, '[]', '', ?, ?)
		ON CONFLICT (id) DO NOTHING
	`), id, email, t, t)
	if err != nil {
		return nil, fmt.Errorf("%w: upsert user: %v", ErrPersistence, err)
	}
	u, err := s.GetUser(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: upsert user: row missing after insert", ErrPersistence)
	}
	return u, err
}

// GetUser returns the profile row, or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	var memory string
	var enabledAt sql.NullTime
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, email, memory, details, memory_enabled_at, created_at
		FROM users WHERE id = ?
	`), id).Scan(&u.ID, &u.Email, &memory, &u.Details, &enabledAt, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %v", ErrPersistence, err)
	}
	u.Memory, err = decodeStrings(memory)
	if err != nil {
		return nil, fmt.Errorf("%w: get user: decode memory: %v", ErrPersistence, err)
	}
	if u.Memory == nil {
		u.Memory = []string{}
	}
	if enabledAt.Valid {
		t := enabledAt.Time.UTC()
		u.MemoryEnabledAt = &t
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// SetMemory overwrites the user's memory list. There is no version check: the last writer wins.
func (s *Store) SetMemory(ctx context.Context, userID string, memory []string) error {
	if memory == nil {
		memory = []string{}
	}
	encoded, err := json.Marshal(memory)
	if err != nil {
		return fmt.Errorf("%w: set memory: %v", ErrPersistence, err)
	}
	return s.updateUser(ctx, "set memory", `UPDATE users SET memory = ? WHERE id = ?`, string(encoded), userID)
}

// SetDetails replaces the user's "about me" blurb.
func (s *Store) SetDetails(ctx context.Context, userID, details string) error {
	return s.updateUser(ctx, "set details", `UPDATE users SET details = ? WHERE id = ?`, details, userID)
}

func (s *Store) updateUser(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- journal entries ----

// InsertEntry writes exactly one journal entry and returns it as stored.
func (s *Store) InsertEntry(ctx context.Context, e NewEntry) (*models.JournalEntry, error) {
	var events any
	if e.SignificantEvents != nil {
		b, err := json.Marshal(e.SignificantEvents)
		if err != nil {
			return nil, fmt.Errorf("%w: insert entry: %v", ErrPersistence, err)
		}
		events = string(b)
	}

	entry := &models.JournalEntry{
		UserID:            e.UserID,
		RawEntry:          e.RawEntry,
		SummarizedEntry:   e.SummarizedEntry,
		Title:             e.Title,
		MoodScore:         FormatMoodScore(e.MoodScore),
		SignificantEvents: e.SignificantEvents,
		CreatedAt:         now(),
	}
	if !e.CreatedAt.IsZero() {
		entry.CreatedAt = e.CreatedAt.UTC().Truncate(time.Microsecond)
	}

	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO journal_entries (user_id, raw_entry, summarized_entry, title, mood_score, significant_events, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), entry.UserID, entry.RawEntry, entry.SummarizedEntry, entry.Title, entry.MoodScore, events, entry.CreatedAt).Scan(&entry.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: insert entry: no row returned", ErrPersistence)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: insert entry: %v", ErrPersistence, err)
	}
	return entry, nil
}

const entryColumns = `id, user_id, raw_entry, summarized_entry, title, mood_score, significant_events, created_at`

// GetEntry returns one entry owned by userID, or ErrNotFound.
func (s *Store) GetEntry(ctx context.Context, userID string, id int64) (*models.JournalEntry, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+entryColumns+` FROM journal_entries WHERE id = ? AND user_id = ?`), id, userID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get entry: %v", ErrPersistence, err)
	}
	return e, nil
}

// ListEntries returns the user's entries, newest first.
func (s *Store) ListEntries(ctx context.Context, userID string, f EntryFilter) ([]models.JournalEntry, error) {
	var where []string
	args := []any{userID}
	where = append(where, "user_id = ?")
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, f.To.UTC())
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		where = append(where, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(summarized_entry) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, f.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list entries: %v", ErrPersistence, err)
	}
	defer rows.Close()

	entries := make([]models.JournalEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list entries: %v", ErrPersistence, err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list entries: %v", ErrPersistence, err)
	}
	return entries, nil
}

// DeleteEntriesByUser removes all of a user's entries. Only the admin CLI calls this.
func (s *Store) DeleteEntriesByUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM journal_entries WHERE user_id = ?`), userID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete entries: %v", ErrPersistence, err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (*models.JournalEntry, error) {
	var e models.JournalEntry
	var mood string
	var events sql.NullString
	if err := r.Scan(&e.ID, &e.UserID, &e.RawEntry, &e.SummarizedEntry, &e.Title, &mood, &events, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.MoodScore = normalizeMoodScore(mood)
	if events.Valid {
		list, err := decodeStrings(events.String)
		if err != nil {
			return nil, fmt.Errorf("decode significant events: %w", err)
		}
		if list == nil {
			list = []string{}
		}
		e.SignificantEvents = list
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

// normalizeMoodScore keeps the two-decimal rendering stable across drivers.
func normalizeMoodScore(raw string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return raw
	}
	return FormatMoodScore(v)
}

func decodeStrings(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ---- accounts ----

// CreateAccount inserts a new sign-in account. Duplicate emails return ErrConflict.
func (s *Store) CreateAccount(ctx context.Context, email, passwordHash string) (*models.Account, error) {
	acc := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now(),
		IsActive:     true,
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO accounts (id, email, password_hash, created_at, is_active)
		VALUES (?, ?, ?, ?, ?)
	`), acc.ID, acc.Email, acc.PasswordHash, acc.CreatedAt, acc.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("%w: create account: %v", ErrPersistence, err)
	}
	return acc, nil
}

// GetAccountByEmail looks up an account by normalized email, or ErrNotFound.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.getAccount(ctx, `SELECT id, email, password_hash, created_at, is_active FROM accounts WHERE email = ?`, email)
}

// GetAccountByID looks up an account by id, or ErrNotFound.
func (s *Store) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	return s.getAccount(ctx, `SELECT id, email, password_hash, created_at, is_active FROM accounts WHERE id = ?`, id)
}

func (s *Store) getAccount(ctx context.Context, query string, arg any) (*models.Account, error) {
	var a models.Account
	err := s.db.QueryRowContext(ctx, s.q(query), arg).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get account: %v", ErrPersistence, err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

// SetAccountActive enables or disables sign-in for an account.
func (s *Store) SetAccountActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE accounts SET is_active = ? WHERE id = ?`), active, id)
	if err != nil {
		return fmt.Errorf("%w: set account active: %v", ErrPersistence, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	// lib/pq reports SQLSTATE 23505; sqlite reports a UNIQUE constraint failure.
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
