package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is the default substrate: a single kv_store table in a local
// database file.
type SQLite struct {
	db       *sql.DB
	readOnly bool
}

type Options struct {
	BusyTimeout time.Duration
	Synchronous string
	CacheSize   int
	ReadOnly    bool
}

func sqliteDSN(path string, readOnly bool) (string, error) {
	if !readOnly {
		return path, nil
	}
	if path == ":memory:" {
		return "", fmt.Errorf("storage: read-only mode requires a file-backed database")
	}
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set("mode", "ro")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// pragmas returns the connection settings applied on open. Write-only
// settings are skipped for read-only handles.
func (o Options) pragmas() []string {
	list := []string{"PRAGMA foreign_keys=ON"}
	if !o.ReadOnly {
		synchronous := o.Synchronous
		if synchronous == "" {
			synchronous = "NORMAL"
		}
		list = append(list,
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous="+synchronous,
		)
	}
	list = append(list,
		fmt.Sprintf("PRAGMA busy_timeout=%d", o.BusyTimeout.Milliseconds()),
		"PRAGMA temp_store=MEMORY",
	)
	if o.CacheSize != 0 {
		list = append(list, fmt.Sprintf("PRAGMA cache_size=%d", o.CacheSize))
	}
	return list
}

// Open opens (and unless read-only, migrates) the sqlite database at path.
func Open(path string, options Options) (*SQLite, error) {
	dsn, err := sqliteDSN(path, options.ReadOnly)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own database
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range options.pragmas() {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: %s: %w", pragma, err)
		}
	}

	store := &SQLite{db: db, readOnly: options.ReadOnly}
	if !options.ReadOnly {
		if err := store.MigrateSchema(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return store, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, errMissingDB
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	if s == nil || s.db == nil {
		return errMissingDB
	}
	if s.readOnly {
		return ErrReadOnly
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at
	`, key, value, time.Now().Unix())
	return err
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) IntegrityCheck() ([]string, error) {
	if s == nil || s.db == nil {
		return nil, errMissingDB
	}
	rows, err := s.db.Query("PRAGMA integrity_check")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Vacuum rebuilds the database in place, or writes a compacted copy to
// target. Only the copy works on a read-only handle.
func (s *SQLite) Vacuum(target string) error {
	if s == nil || s.db == nil {
		return errMissingDB
	}
	if target == "" {
		if s.readOnly {
			return ErrReadOnly
		}
		_, err := s.db.Exec("VACUUM")
		return err
	}
	_, err := s.db.Exec("VACUUM INTO ?", target)
	return err
}
