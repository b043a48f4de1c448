package accounts

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store persists mutable account state so deactivations and cooldowns
// survive restarts. Credentials are never written to the database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// PersistedAccount is the stored slice of account state, keyed by username.
type PersistedAccount struct {
	ID         string
	Username   string
	Active     bool
	FailCount  int
	LastUsedAt time.Time
}

// NewStore opens (or creates) a SQLite-backed account store.
// ":memory:" is supported for tests.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	var connStr string
	if dbPath == ":memory:" {
		connStr = "file::memory:?cache=shared&_busy_timeout=5000"
	} else {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
		connStr = dbPath + "?_journal=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("account store initialized", "path", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		username TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		fail_count INTEGER NOT NULL DEFAULT 0,
		last_used_at TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save upserts one account's state.
func (s *Store) Save(a *PersistedAccount) error {
	lastUsed := ""
	if !a.LastUsedAt.IsZero() {
		lastUsed = a.LastUsedAt.UTC().Format(time.RFC3339Nano)
	}

	query := `
	INSERT INTO accounts (username, id, active, fail_count, last_used_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(username) DO UPDATE SET
		id = excluded.id,
		active = excluded.active,
		fail_count = excluded.fail_count,
		last_used_at = excluded.last_used_at
	`
	_, err := s.db.Exec(query, a.Username, a.ID, boolToInt(a.Active), a.FailCount, lastUsed)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// LoadAll returns all persisted accounts keyed by username.
func (s *Store) LoadAll() (map[string]PersistedAccount, error) {
	rows, err := s.db.Query(`SELECT username, id, active, fail_count, last_used_at FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]PersistedAccount)
	for rows.Next() {
		var a PersistedAccount
		var active int
		var lastUsed string
		if err := rows.Scan(&a.Username, &a.ID, &active, &a.FailCount, &lastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Active = active != 0
		if lastUsed != "" {
			a.LastUsedAt, _ = time.Parse(time.RFC3339Nano, lastUsed)
		}
		out[a.Username] = a
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
