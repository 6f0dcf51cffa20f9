// Package history persists public chat messages to SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Tyrowin/chatroom/internal/chat"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_history (
	timestamp TEXT NOT NULL,
	username TEXT NOT NULL,
	message TEXT NOT NULL
);
`

// Store provides SQLite-backed chat history. It implements chat.HistorySink.
type Store struct {
	sqlDB *sql.DB
}

var _ chat.HistorySink = (*Store)(nil)

// Open opens the history database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure chat_history table: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Store appends one public message.
func (s *Store) Store(ctx context.Context, rec chat.ChatRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO chat_history (timestamp, username, message) VALUES (?, ?, ?)`,
		rec.Timestamp,
		rec.Username,
		rec.Message,
	)
	if err != nil {
		return fmt.Errorf("store chat message: %w", err)
	}
	return nil
}

// Recent returns up to limit stored messages, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]chat.ChatRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT timestamp, username, message FROM (
	SELECT rowid, timestamp, username, message
	FROM chat_history
	ORDER BY rowid DESC
	LIMIT ?
) ORDER BY rowid ASC
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer rows.Close()

	var records []chat.ChatRecord
	for rows.Next() {
		var rec chat.ChatRecord
		if err := rows.Scan(&rec.Timestamp, &rec.Username, &rec.Message); err != nil {
			return nil, fmt.Errorf("scan chat history: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat history: %w", err)
	}
	return records, nil
}
