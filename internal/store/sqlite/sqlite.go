package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/relaychat/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New opens the database at dbPath and applies pending migrations.
// Use ":memory:" for a throwaway database.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps an
	// in-memory database alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate driver: %w", err)
	}
	if err := store.Migrate(migrations, "migrations", "sqlite3", drv); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== MessageStore implementation ====

// Append persists a message and assigns its ID and creation time.
func (s *SQLiteStore) Append(ctx context.Context, in store.NewMessage) (*store.Message, error) {
	createdAt := time.Now().UTC()
	query := `
		INSERT INTO messages (room, author_id, author_name, body, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, in.Room, in.AuthorID, in.Author, in.Body, string(in.Kind), createdAt)
	if err != nil {
		return nil, store.Wrap("insert message", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, store.Wrap("get last insert id", err)
	}

	return &store.Message{
		ID:        id,
		Room:      in.Room,
		AuthorID:  in.AuthorID,
		Author:    in.Author,
		Body:      in.Body,
		Kind:      in.Kind,
		CreatedAt: createdAt,
	}, nil
}

// Recent returns the latest messages of a room in chronological order.
func (s *SQLiteStore) Recent(ctx context.Context, room string, limit int) ([]*store.Message, error) {
	query := `
		SELECT m.id, m.room, m.author_id, COALESCE(u.username, m.author_name), m.body, m.kind, m.created_at
		FROM messages m
		LEFT JOIN users u ON u.id = m.author_id
		WHERE m.room = ?
		ORDER BY m.id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, room, store.ClampLimit(limit))
	if err != nil {
		return nil, store.Wrap("query messages", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var (
			msg      store.Message
			authorID sql.NullInt64
			kind     string
		)
		if err := rows.Scan(&msg.ID, &msg.Room, &authorID, &msg.Author, &msg.Body, &kind, &msg.CreatedAt); err != nil {
			return nil, store.Wrap("scan message", err)
		}
		if authorID.Valid {
			msg.AuthorID = &authorID.Int64
		}
		msg.Kind = store.MessageKind(kind)
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap("iterate messages", err)
	}

	store.Reverse(messages)
	return messages, nil
}

// ==== UserStore implementation ====

// CreateUser inserts a user.
func (s *SQLiteStore) CreateUser(ctx context.Context, username string) (*store.User, error) {
	createdAt := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `INSERT INTO users (username, created_at) VALUES (?, ?)`, username, createdAt)
	if err != nil {
		return nil, store.Wrap("insert user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, store.Wrap("get last insert id", err)
	}

	return &store.User{ID: id, Username: username, CreatedAt: createdAt}, nil
}

// DeleteUser removes a user; foreign keys null out their message references.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return store.Wrap("delete user", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return store.Wrap("delete user", err)
	}
	if n == 0 {
		return store.Wrap("delete user", fmt.Errorf("user %d not found: %w", id, sql.ErrNoRows))
	}
	return nil
}

// ==== Inspector implementation ====

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return store.Wrap("ping", err)
	}
	return nil
}

// ListTables lists user tables.
func (s *SQLiteStore) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, store.Wrap("list tables", err)
	}
	defer rows.Close()

	tables := make([]string, 0, 4)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, store.Wrap("scan table", err)
		}
		tables = append(tables, name)
	}
	return tables, store.Wrap("list tables", rows.Err())
}

// CountUsers counts rows in users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, "count users", `SELECT COUNT(*) FROM users`)
}

// CountMessages counts rows in messages.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	return s.count(ctx, "count messages", `SELECT COUNT(*) FROM messages`)
}

// CountRooms counts rooms that have at least one message.
func (s *SQLiteStore) CountRooms(ctx context.Context) (int64, error) {
	return s.count(ctx, "count rooms", `SELECT COUNT(DISTINCT room) FROM messages`)
}

func (s *SQLiteStore) count(ctx context.Context, op, query string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, store.Wrap(op, err)
	}
	return n, nil
}
