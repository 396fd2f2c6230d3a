package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store on a local SQLite file.
// It suits single-host deployments that want status to survive a restart
// without running Redis. Every row still carries an expiry; expired rows
// are invisible to reads and removed by Purge.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	now       func() time.Time
	closeOnce sync.Once

	putStmt   *sql.Stmt
	getStmt   *sql.Stmt
	scanStmt  *sql.Stmt
	purgeStmt *sql.Stmt
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path. ":memory:" is accepted for tests.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at cfg.Path.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:   db,
		path: cfg.Path,
		now:  cfg.Clock,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS status_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_status_entries_expires_at ON status_entries(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO status_entries (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare put: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT value FROM status_entries WHERE key = ? AND expires_at > ?
	`)
	if err != nil {
		return fmt.Errorf("prepare get: %w", err)
	}

	s.scanStmt, err = s.db.Prepare(`
		SELECT key, value FROM status_entries
		WHERE substr(key, 1, length(?)) = ? AND expires_at > ?
		ORDER BY updated_at DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("prepare scan: %w", err)
	}

	s.purgeStmt, err = s.db.Prepare(`
		DELETE FROM status_entries WHERE expires_at <= ?
	`)
	if err != nil {
		return fmt.Errorf("prepare purge: %w", err)
	}

	return nil
}

// Put upserts value under key.
func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	_, err := s.putStmt.ExecContext(ctx, key, value, now.Add(ttl).UnixNano(), now.UnixNano())
	if err != nil {
		return &UnavailableError{Op: "put", Err: fmt.Errorf("sqlite upsert %s: %w", key, err)}
	}
	return nil
}

// Get returns the live value stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.getStmt.QueryRowContext(ctx, key, s.now().UnixNano()).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &UnavailableError{Op: "get", Err: fmt.Errorf("sqlite select %s: %w", key, err)}
	}
	return value, nil
}

// Scan returns up to limit live entries with the given prefix, most
// recently written first.
func (s *SQLiteStore) Scan(ctx context.Context, prefix string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.scanStmt.QueryContext(ctx, prefix, prefix, s.now().UnixNano(), limit)
	if err != nil {
		return nil, &UnavailableError{Op: "scan", Err: fmt.Errorf("sqlite scan %s: %w", prefix, err)}
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("sqlite scan row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Op: "scan", Err: err}
	}

	return entries, nil
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &UnavailableError{Op: "ping", Err: err}
	}
	return nil
}

// Purge deletes expired rows.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	result, err := s.purgeStmt.ExecContext(ctx, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite purge: %w", err)
	}
	return result.RowsAffected()
}

// Close closes prepared statements and the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.putStmt, s.getStmt, s.scanStmt, s.purgeStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}
