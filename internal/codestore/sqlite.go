package codestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - join_codes table
const currentSchemaVersion = 1

// SQLiteBackend stores the mapping in a single SQLite table.
// Persist replaces the table contents inside one transaction.
type SQLiteBackend struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite creates or opens a SQLite database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// Safe to call on an existing database.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteBackend{db: db, logger: logger}, nil
}

// Load reads every row. Rows whose tokens column is not a JSON array of
// CodeLength strings are dropped.
func (b *SQLiteBackend) Load(ctx context.Context) (map[string]Code, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT community_id, tokens
		FROM join_codes
		ORDER BY position ASC, community_id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query join_codes: %v", ErrCorrupt, err)
	}
	defer rows.Close()

	raw := map[string][]string{}
	for rows.Next() {
		var id, tokensJSON string
		if err := rows.Scan(&id, &tokensJSON); err != nil {
			return nil, fmt.Errorf("%w: scan join_codes: %v", ErrCorrupt, err)
		}
		var tokens []string
		if err := json.Unmarshal([]byte(tokensJSON), &tokens); err != nil {
			b.logger.Debug("dropping undecodable row", "community", id, "error", err)
			continue
		}
		raw[id] = tokens
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate join_codes: %v", ErrCorrupt, err)
	}

	return decodeEntries(raw, b.logger), nil
}

// Persist replaces the table contents with codes in one transaction.
func (b *SQLiteBackend) Persist(ctx context.Context, codes map[string]Code) error {
	ids := make([]string, 0, len(codes))
	for id := range codes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM join_codes`); err != nil {
		return fmt.Errorf("clear join_codes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO join_codes (community_id, tokens, position)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		tokensJSON, err := json.Marshal(codes[id].Tokens())
		if err != nil {
			return fmt.Errorf("marshal tokens for %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, string(tokensJSON), i); err != nil {
			return fmt.Errorf("insert %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and stamps the schema version.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
