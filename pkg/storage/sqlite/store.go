// pkg/storage/sqlite/store.go
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tablebot/tablebot/pkg/storage"
)

// Store implements storage.RecordStore on a local SQLite database.
// Timestamps are stored as RFC3339Nano strings: SQLite has TEXT
// affinity for time values, and the string form round-trips reliably.
type Store struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", Open)
}

// Open opens (or creates) the database file at dsn.
func Open(ctx context.Context, dsn string) (storage.RecordStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &storage.StorageError{Op: "open sqlite", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &storage.StorageError{Op: "open sqlite", Err: err}
	}
	return &Store{db: db}, nil
}

// Init creates the schema. Idempotent, safe to run on every startup.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			chat_mode INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			last_active TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users (user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS cleaning_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			run_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			artifact TEXT NOT NULL,
			rows_before INTEGER NOT NULL,
			rows_after INTEGER NOT NULL,
			columns_before INTEGER NOT NULL,
			columns_after INTEGER NOT NULL,
			guidance_source TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &storage.StorageError{Op: "init schema", Err: err}
		}
	}
	return nil
}

func (s *Store) UpsertUser(ctx context.Context, userID int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, created_at, last_active) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET last_active = excluded.last_active`,
		userID, now, now)
	if err != nil {
		return &storage.StorageError{Op: "upsert user", Err: err}
	}
	return nil
}

func (s *Store) SetChatMode(ctx context.Context, userID int64, enabled bool) error {
	if err := s.UpsertUser(ctx, userID); err != nil {
		return err
	}
	mode := 0
	if enabled {
		mode = 1
	}
	_, err := s.db.ExecContext(ctx, `UPDATE users SET chat_mode = ? WHERE user_id = ?`, mode, userID)
	if err != nil {
		return &storage.StorageError{Op: "set chat mode", Err: err}
	}
	return nil
}

func (s *Store) ChatMode(ctx context.Context, userID int64) (bool, error) {
	var mode int
	err := s.db.QueryRowContext(ctx, `SELECT chat_mode FROM users WHERE user_id = ?`, userID).Scan(&mode)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &storage.StorageError{Op: "get chat mode", Err: err}
	}
	return mode == 1, nil
}

func (s *Store) AppendMessage(ctx context.Context, userID int64, role, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_history (user_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		userID, role, content, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &storage.StorageError{Op: "append message", Err: err}
	}
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, userID int64, limit int) ([]storage.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at FROM chat_history
		WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, &storage.StorageError{Op: "recent messages", Err: err}
	}
	defer rows.Close()

	var out []storage.Message
	for rows.Next() {
		var m storage.Message
		var at string
		if err := rows.Scan(&m.Role, &m.Content, &at); err != nil {
			return nil, &storage.StorageError{Op: "recent messages", Err: err}
		}
		m.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.StorageError{Op: "recent messages", Err: err}
	}

	// Rows were read newest first; callers want chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) SaveResult(ctx context.Context, userID int64, rec storage.ResultRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cleaning_results
			(user_id, run_id, filename, artifact, rows_before, rows_after,
			 columns_before, columns_after, guidance_source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, rec.RunID, rec.Filename, rec.Artifact, rec.RowsBefore, rec.RowsAfter,
		rec.ColumnsBefore, rec.ColumnsAfter, rec.GuidanceSource,
		created.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &storage.StorageError{Op: "save result", Err: err}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }
