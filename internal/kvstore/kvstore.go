// Package kvstore provides a durable string-keyed store backed by SQLite.
// Values are stored with an explicit encoding: structured (JSON) or raw text.
// Reads that miss or fail to decode report "absent" rather than an error —
// callers treat absence as the normal not-yet-set state.
package kvstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // sqlite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Encoding identifiers stored in the encoding column.
const (
	encodingJSON = "json"
	encodingText = "text"
)

// Store is a SQLite-backed key-value store. Safe for concurrent use;
// the connection pool is limited to a single writer.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the store at path and applies schema migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("kvstore: opening %s: %w", path, err)
	}

	// Sole-writer: SQLite handles one writer at a time anyway.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// runMigrations applies pending schema migrations using the goose v3
// Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("kvstore: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("kvstore: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("kvstore: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetJSON loads the JSON value for key into dest. Returns false when the key
// is missing, stored with a different encoding, or fails to decode — decode
// failures are logged and reported as absence, never as an error.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, found, err := s.get(ctx, key, encodingJSON)
	if err != nil || !found {
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logger.Warn("discarding undecodable value",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)

		return false, nil
	}

	return true, nil
}

// PutJSON stores value under key, JSON-encoded. Overwrites any prior value.
func (s *Store) PutJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kvstore: encoding value for %s: %w", key, err)
	}

	return s.put(ctx, key, string(data), encodingJSON)
}

// GetText loads the raw-text value for key.
// Returns false when the key is missing or stored with a different encoding.
func (s *Store) GetText(ctx context.Context, key string) (string, bool, error) {
	raw, found, err := s.get(ctx, key, encodingText)
	if err != nil || !found {
		return "", false, err
	}

	return raw, true, nil
}

// PutText stores value under key as raw text. Overwrites any prior value.
func (s *Store) PutText(ctx context.Context, key, value string) error {
	return s.put(ctx, key, value, encodingText)
}

// Delete removes key. Deleting an absent key succeeds silently.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("kvstore: deleting %s: %w", key, err)
	}

	return nil
}

func (s *Store) get(ctx context.Context, key, encoding string) (string, bool, error) {
	var (
		raw string
		enc string
	)

	row := s.db.QueryRowContext(ctx, `SELECT value, encoding FROM kv WHERE key = ?`, key)

	err := row.Scan(&raw, &enc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("kvstore: reading %s: %w", key, err)
	}

	if enc != encoding {
		s.logger.Warn("encoding mismatch, treating as absent",
			slog.String("key", key),
			slog.String("stored", enc),
			slog.String("requested", encoding),
		)

		return "", false, nil
	}

	return raw, true, nil
}

func (s *Store) put(ctx context.Context, key, value, encoding string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, encoding, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		   encoding = excluded.encoding, updated_at = excluded.updated_at`,
		key, value, encoding, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("kvstore: writing %s: %w", key, err)
	}

	return nil
}
