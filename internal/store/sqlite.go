package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/hyperengineering/quill/internal/types"
)

// timeLayout is fixed-width UTC so created_at sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is the SQLite-backed visitor log.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dbPath, applies pragmas
// and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordMessage stores a moderated message. Rejected messages keep the
// decision and the visitor name, but the body is dropped.
func (s *SQLiteStore) RecordMessage(ctx context.Context, msg types.NewVisitorMessage) (*types.VisitorMessage, error) {
	now := time.Now().UTC()
	rec := types.VisitorMessage{
		ID:        ulid.Make().String(),
		Name:      msg.Name,
		Allowed:   msg.Allowed,
		Reason:    msg.Reason,
		Sentiment: msg.Sentiment,
		CreatedAt: now,
	}
	if msg.Allowed {
		rec.Message = msg.Message
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visitor_messages (id, name, message, allowed, reason, sentiment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Name, rec.Message, boolToInt(rec.Allowed), rec.Reason, rec.Sentiment, now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert visitor message: %w", err)
	}

	return &rec, nil
}

// ListMessages returns messages newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, opts ListOptions) ([]types.VisitorMessage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT id, name, message, allowed, reason, sentiment, created_at
		FROM visitor_messages`
	if !opts.IncludeRejected {
		query += ` WHERE allowed = 1`
	}
	query += ` ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query visitor messages: %w", err)
	}
	defer rows.Close()

	messages := []types.VisitorMessage{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visitor messages: %w", err)
	}

	return messages, nil
}

// GetMessage returns a single message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*types.VisitorMessage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, message, allowed, reason, sentiment, created_at
		FROM visitor_messages
		WHERE id = ?
	`, id)

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetStats returns message counters and the time of the latest message.
func (s *SQLiteStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	var (
		stats types.StoreStats
		last  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(allowed), 0),
		       MAX(created_at)
		FROM visitor_messages
	`).Scan(&stats.MessageCount, &stats.AllowedCount, &last)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	stats.RejectedCount = stats.MessageCount - stats.AllowedCount
	if last.Valid {
		if t, err := time.Parse(time.RFC3339Nano, last.String); err == nil {
			stats.LastMessage = &t
		}
	}

	return &stats, nil
}

func scanMessage(scanner interface{ Scan(...any) error }) (*types.VisitorMessage, error) {
	var (
		msg       types.VisitorMessage
		allowed   int
		createdAt string
	)
	if err := scanner.Scan(&msg.ID, &msg.Name, &msg.Message, &allowed, &msg.Reason, &msg.Sentiment, &createdAt); err != nil {
		return nil, err
	}
	msg.Allowed = allowed == 1
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		msg.CreatedAt = t
	}
	return &msg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
