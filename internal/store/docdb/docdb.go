package docdb

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"streamlet/internal/logging"
	"streamlet/internal/services"
	"streamlet/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing databases with a different version are rejected.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store implements the DocumentStore contract on SQLite.
type Store struct {
	db     *sql.DB
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// Open initializes or connects to the document database under dir. The
// directory is guarded with a file lock so only one process writes at a time.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("docdb: data directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("docdb: create data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, "docdb.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("docdb: acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("docdb: database in %s is in use by another process", dir)
	}

	dbPath := filepath.Join(dir, "documents.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("docdb: open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("docdb: apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: dbPath, lock: lock, logger: logging.NewComponentLogger(logger, "docdb")}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return s, nil
}

// Close releases the database connection and the directory lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	if s.db != nil {
		firstErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("docdb: check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("docdb: begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("docdb: create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("docdb: record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("docdb: read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

// Get returns the document and whether it exists.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT fields FROM documents WHERE collection = ? AND id = ?", collection, id)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Document{}, false, nil
		}
		return store.Document{}, false, services.Wrap(services.ErrQuery, "docdb", "get", collection, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return store.Document{}, false, services.Wrap(services.ErrQuery, "docdb", "get", "decode fields", err)
	}
	return store.Document{ID: id, Fields: fields}, true, nil
}

// Set writes the full field set, replacing any existing document.
func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return services.Wrap(services.ErrValidation, "docdb", "set", "encode fields", err)
	}
	now := store.FormatTime(time.Now())
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, fields, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (collection, id)
         DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at`,
		collection, id, string(raw), now, now)
	if err != nil {
		return services.Wrap(services.ErrQuery, "docdb", "set", collection, err)
	}
	return nil
}

// Merge overlays fields onto the existing document, creating it if absent.
func (s *Store) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrQuery, "docdb", "merge", "begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	merged := make(map[string]any, len(fields))
	row := tx.QueryRowContext(ctx,
		"SELECT fields FROM documents WHERE collection = ? AND id = ?", collection, id)
	var raw string
	switch err := row.Scan(&raw); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return services.Wrap(services.ErrQuery, "docdb", "merge", collection, err)
	default:
		existing, decodeErr := decodeFields(raw)
		if decodeErr != nil {
			return services.Wrap(services.ErrQuery, "docdb", "merge", "decode fields", decodeErr)
		}
		merged = existing
	}
	for key, value := range fields {
		merged[key] = value
	}

	encoded, err := json.Marshal(merged)
	if err != nil {
		return services.Wrap(services.ErrValidation, "docdb", "merge", "encode fields", err)
	}
	now := store.FormatTime(time.Now())
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (collection, id, fields, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (collection, id)
         DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at`,
		collection, id, string(encoded), now, now); err != nil {
		return services.Wrap(services.ErrQuery, "docdb", "merge", collection, err)
	}
	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrQuery, "docdb", "merge", "commit tx", err)
	}
	return nil
}

// Query returns documents matching every filter, sorted and capped. Filters
// are equality checks against top-level fields.
func (s *Store) Query(ctx context.Context, collection string, filters []store.Filter, order store.Order, limit int) ([]store.Document, error) {
	var sb strings.Builder
	sb.WriteString("SELECT id, fields FROM documents WHERE collection = ?")
	args := []any{collection}

	for _, filter := range filters {
		if err := validateFieldName(filter.Field); err != nil {
			return nil, services.Wrap(services.ErrValidation, "docdb", "query", "filter field", err)
		}
		sb.WriteString(" AND json_extract(fields, '$.")
		sb.WriteString(filter.Field)
		sb.WriteString("') = ?")
		args = append(args, filter.Value)
	}

	if order.Field != "" {
		if err := validateFieldName(order.Field); err != nil {
			return nil, services.Wrap(services.ErrValidation, "docdb", "query", "order field", err)
		}
		sb.WriteString(" ORDER BY json_extract(fields, '$.")
		sb.WriteString(order.Field)
		sb.WriteString("')")
		if order.Desc {
			sb.WriteString(" DESC")
		}
	}
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, services.Wrap(services.ErrQuery, "docdb", "query", collection, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, services.Wrap(services.ErrQuery, "docdb", "query", "scan row", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, services.Wrap(services.ErrQuery, "docdb", "query", "decode fields", err)
		}
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrQuery, "docdb", "query", collection, err)
	}
	return docs, nil
}

func decodeFields(raw string) (map[string]any, error) {
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func validateFieldName(name string) error {
	if name == "" {
		return errors.New("empty field name")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return fmt.Errorf("invalid field name %q", name)
		}
	}
	return nil
}

var _ store.DocumentStore = (*Store)(nil)
