package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"

	"github.com/vovakirdan/relaychat/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore implements store.Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var _ store.Store = (*PostgresStore)(nil)

// New connects with dsn and applies pending migrations.
func New(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	drv, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate driver: %w", err)
	}
	if err := store.Migrate(migrations, "migrations", "postgres", drv); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Append persists a message. IDs come from a sequence, so they are monotonic.
func (s *PostgresStore) Append(ctx context.Context, in store.NewMessage) (*store.Message, error) {
	msg := &store.Message{
		Room:     in.Room,
		AuthorID: in.AuthorID,
		Author:   in.Author,
		Body:     in.Body,
		Kind:     in.Kind,
	}

	err := s.db.QueryRowContext(ctx,
		"INSERT INTO messages (room, author_id, author_name, body, kind, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at",
		in.Room,
		in.AuthorID,
		in.Author,
		in.Body,
		string(in.Kind),
		time.Now().UTC(),
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, store.Wrap("insert message", err)
	}

	return msg, nil
}

// Recent returns the latest messages of a room in chronological order.
func (s *PostgresStore) Recent(ctx context.Context, room string, limit int) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT m.id, m.room, m.author_id, COALESCE(u.username, m.author_name), m.body, m.kind, m.created_at "+
			"FROM messages m LEFT JOIN users u ON u.id = m.author_id "+
			"WHERE m.room = $1 ORDER BY m.id DESC LIMIT $2",
		room,
		store.ClampLimit(limit),
	)
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

// CreateUser inserts a user.
func (s *PostgresStore) CreateUser(ctx context.Context, username string) (*store.User, error) {
	var u store.User
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO users (username, created_at) VALUES ($1, $2) RETURNING id, username, created_at",
		username,
		time.Now().UTC(),
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		return nil, store.Wrap("insert user", err)
	}
	return &u, nil
}

// DeleteUser removes a user; ON DELETE SET NULL keeps their messages.
func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
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

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return store.Wrap("ping", s.db.PingContext(ctx))
}

// ListTables lists tables of the current schema.
func (s *PostgresStore) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT table_name FROM information_schema.tables "+
			"WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name",
	)
	if err != nil {
		return nil, store.Wrap("list tables", err)
	}
	defer rows.Close()

	var tables []string
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
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, "count users", "SELECT COUNT(*) FROM users")
}

// CountMessages counts rows in messages.
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	return s.count(ctx, "count messages", "SELECT COUNT(*) FROM messages")
}

// CountRooms counts rooms with at least one message.
func (s *PostgresStore) CountRooms(ctx context.Context) (int64, error) {
	return s.count(ctx, "count rooms", "SELECT COUNT(DISTINCT room) FROM messages")
}

func (s *PostgresStore) count(ctx context.Context, op, query string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, store.Wrap(op, err)
	}
	return n, nil
}
