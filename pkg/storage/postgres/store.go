// pkg/storage/postgres/store.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tablebot/tablebot/pkg/storage"
)

// Store implements storage.RecordStore on PostgreSQL for deployments
// that already run one; SQLite remains the default backend.
type Store struct {
	db *sqlx.DB
}

func init() {
	storage.Register("postgres", Open)
}

// Open connects to the database identified by dsn.
func Open(ctx context.Context, dsn string) (storage.RecordStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, &storage.StorageError{Op: "open postgres", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &storage.StorageError{Op: "open postgres", Err: err}
	}
	return &Store{db: db}, nil
}

// Init creates the schema. Idempotent, safe to run on every startup.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			chat_mode BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			last_active TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_history (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users (user_id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cleaning_results (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			run_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			artifact TEXT NOT NULL,
			rows_before INTEGER NOT NULL,
			rows_after INTEGER NOT NULL,
			columns_before INTEGER NOT NULL,
			columns_after INTEGER NOT NULL,
			guidance_source TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
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
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, created_at, last_active) VALUES ($1, $2, $2)
		ON CONFLICT (user_id) DO UPDATE SET last_active = EXCLUDED.last_active`,
		userID, now)
	if err != nil {
		return &storage.StorageError{Op: "upsert user", Err: err}
	}
	return nil
}

func (s *Store) SetChatMode(ctx context.Context, userID int64, enabled bool) error {
	if err := s.UpsertUser(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE users SET chat_mode = $1 WHERE user_id = $2`, enabled, userID)
	if err != nil {
		return &storage.StorageError{Op: "set chat mode", Err: err}
	}
	return nil
}

func (s *Store) ChatMode(ctx context.Context, userID int64) (bool, error) {
	var mode bool
	err := s.db.QueryRowContext(ctx, `SELECT chat_mode FROM users WHERE user_id = $1`, userID).Scan(&mode)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &storage.StorageError{Op: "get chat mode", Err: err}
	}
	return mode, nil
}

func (s *Store) AppendMessage(ctx context.Context, userID int64, role, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_history (user_id, role, content, created_at) VALUES ($1, $2, $3, $4)`,
		userID, role, content, time.Now().UTC())
	if err != nil {
		return &storage.StorageError{Op: "append message", Err: err}
	}
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, userID int64, limit int) ([]storage.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at FROM chat_history
		WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, &storage.StorageError{Op: "recent messages", Err: err}
	}
	defer rows.Close()

	var out []storage.Message
	for rows.Next() {
		var m storage.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.At); err != nil {
			return nil, &storage.StorageError{Op: "recent messages", Err: err}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.StorageError{Op: "recent messages", Err: err}
	}

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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		userID, rec.RunID, rec.Filename, rec.Artifact, rec.RowsBefore, rec.RowsAfter,
		rec.ColumnsBefore, rec.ColumnsAfter, rec.GuidanceSource, created.UTC())
	if err != nil {
		return &storage.StorageError{Op: "save result", Err: err}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }
