// Package store provides the cache store backends for foldercache.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/wesm/foldercache/internal/entity"
	"github.com/wesm/foldercache/internal/fileutil"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store is a SQLite-backed cache store. Each slice is read and written as a
// whole; there is no compare-and-swap, so callers must serialize access.
type Store struct {
	db     *sql.DB
	dbPath string
}

const defaultSQLiteParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"

// isSQLiteError checks if err is a sqlite3.Error with a message containing substr.
func isSQLiteError(err error, substr string) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), substr)
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return strings.Contains(sqliteErrPtr.Error(), substr)
	}
	return false
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := fileutil.PrivateMkdirAll(dir); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+defaultSQLiteParams)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// InitSchema creates all tables if they don't exist.
func (s *Store) InitSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema.sql: %w", err)
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("execute schema.sql: %w", err)
	}
	return nil
}

// withTx executes fn within a database transaction. If fn returns an error,
// the transaction is rolled back; otherwise it is committed.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetFolders returns the folder set in display order.
func (s *Store) GetFolders(ctx context.Context) (*entity.Folders, error) {
	folders := entity.NewOrdered[entity.Folder]()
	if err := s.readBlob(ctx, `SELECT data FROM folders WHERE slot = 1`, folders); err != nil {
		return nil, fmt.Errorf("read folders: %w", err)
	}
	return folders, nil
}

// SetFolders replaces the folder set.
func (s *Store) SetFolders(ctx context.Context, folders *entity.Folders) error {
	data, err := json.Marshal(folders)
	if err != nil {
		return fmt.Errorf("encode folders: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO folders (slot, folder_count, data, updated_at)
		VALUES (1, ?, ?, datetime('now'))
		ON CONFLICT(slot) DO UPDATE SET
			folder_count = excluded.folder_count,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, folders.Len(), string(data))
	if err != nil {
		return fmt.Errorf("write folders: %w", err)
	}
	return nil
}

// GetFoldersMessages returns every cached folder message map.
func (s *Store) GetFoldersMessages(ctx context.Context) (entity.FoldersMessages, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT folder_id, data FROM folder_messages`)
	if err != nil {
		return nil, fmt.Errorf("query folder messages: %w", err)
	}
	defer rows.Close()

	out := make(entity.FoldersMessages)
	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan folder messages: %w", err)
		}
		msgs := entity.NewOrdered[entity.Message]()
		if err := json.Unmarshal([]byte(data), msgs); err != nil {
			return nil, fmt.Errorf("decode messages for folder %d: %w", id, err)
		}
		out[id] = msgs
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folder messages: %w", err)
	}
	return out, nil
}

// GetFolderMessages returns the message map of a single folder, or an empty
// map when none is cached.
func (s *Store) GetFolderMessages(ctx context.Context, folderID int64) (*entity.FolderMessages, error) {
	msgs := entity.NewOrdered[entity.Message]()
	err := s.readBlob(ctx, `SELECT data FROM folder_messages WHERE folder_id = ?`, msgs, folderID)
	if err != nil {
		return nil, fmt.Errorf("read messages for folder %d: %w", folderID, err)
	}
	return msgs, nil
}

// SetFolderMessages replaces the message map of one folder.
func (s *Store) SetFolderMessages(ctx context.Context, folderID int64, msgs *entity.FolderMessages) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode messages for folder %d: %w", folderID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO folder_messages (folder_id, message_count, data, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(folder_id) DO UPDATE SET
			message_count = excluded.message_count,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, folderID, msgs.Len(), string(data))
	if err != nil {
		return fmt.Errorf("write messages for folder %d: %w", folderID, err)
	}
	return nil
}

// GetSearchMessages returns the search index.
func (s *Store) GetSearchMessages(ctx context.Context) (*entity.SearchMessages, error) {
	msgs := entity.NewOrdered[entity.Message]()
	if err := s.readBlob(ctx, `SELECT data FROM search_messages WHERE slot = 1`, msgs); err != nil {
		return nil, fmt.Errorf("read search messages: %w", err)
	}
	return msgs, nil
}

// SetSearchMessages replaces the search index.
func (s *Store) SetSearchMessages(ctx context.Context, msgs *entity.SearchMessages) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode search messages: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO search_messages (slot, message_count, data, updated_at)
		VALUES (1, ?, ?, datetime('now'))
		ON CONFLICT(slot) DO UPDATE SET
			message_count = excluded.message_count,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, msgs.Len(), string(data))
	if err != nil {
		return fmt.Errorf("write search messages: %w", err)
	}
	return nil
}

// GetUser returns the current account. Before SetUser it returns the zero
// User, which transforms messages as an anonymous reader.
func (s *Store) GetUser(ctx context.Context) (entity.User, error) {
	var user entity.User
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM account WHERE slot = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return user, nil
	}
	if err != nil {
		return user, fmt.Errorf("read user: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return user, fmt.Errorf("decode user: %w", err)
	}
	return user, nil
}

// SetUser stores the current account.
func (s *Store) SetUser(ctx context.Context, user entity.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO account (slot, user_id, data, updated_at)
		VALUES (1, ?, ?, datetime('now'))
		ON CONFLICT(slot) DO UPDATE SET
			user_id = excluded.user_id,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, user.ID, string(data))
	if err != nil {
		return fmt.Errorf("write user: %w", err)
	}
	return nil
}

// Reset drops every cached slice and the current user.
func (s *Store) Reset(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"folders", "folder_messages", "search_messages", "account"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// readBlob decodes the single JSON column returned by query into dest.
// A missing row leaves dest untouched.
func (s *Store) readBlob(ctx context.Context, query string, dest any, args ...any) error {
	var data string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// Stats holds cache statistics.
type Stats struct {
	FolderCount        int64 `json:"folders"`
	CachedFolderCount  int64 `json:"cached_folders"`
	MessageCount       int64 `json:"messages"`
	SearchMessageCount int64 `json:"search_messages"`
	DatabaseSize       int64 `json:"database_size_bytes"`
}

// GetStats returns statistics about the cache.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	queries := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COALESCE(SUM(folder_count), 0) FROM folders", &stats.FolderCount},
		{"SELECT COUNT(*) FROM folder_messages", &stats.CachedFolderCount},
		{"SELECT COALESCE(SUM(message_count), 0) FROM folder_messages", &stats.MessageCount},
		{"SELECT COALESCE(SUM(message_count), 0) FROM search_messages", &stats.SearchMessageCount},
	}

	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			if isSQLiteError(err, "no such table") {
				continue
			}
			return nil, fmt.Errorf("get stats %q: %w", q.query, err)
		}
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DatabaseSize = info.Size()
	}

	return stats, nil
}
