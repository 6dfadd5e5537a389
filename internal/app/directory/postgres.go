package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lounge/internal/pkg/randx"
)

// Postgres is the PostgreSQL Directory. The schema lives in db/migrations.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool. Close closes the pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const upsertUserSQL = `
INSERT INTO chat_users (identity) VALUES ($1)
ON CONFLICT (identity) DO UPDATE SET identity = EXCLUDED.identity
RETURNING identity, created_at`

// UpsertUser inserts the identity or returns the existing row unchanged.
func (p *Postgres) UpsertUser(ctx context.Context, identity string) (User, error) {
	var u User
	if err := p.pool.QueryRow(ctx, upsertUserSQL, identity).Scan(&u.Identity, &u.CreatedAt); err != nil {
		return User{}, fmt.Errorf("failed to upsert user: %w", err)
	}
	return u, nil
}

const insertMessageSQL = `
INSERT INTO chat_messages (id, identity, display_name, content, room, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// InsertMessage stores a message with a fresh UUID and the server clock.
func (p *Postgres) InsertMessage(ctx context.Context, identity, displayName, content, room string) (Message, error) {
	msg := Message{
		ID:          randx.MessageID(),
		Identity:    identity,
		DisplayName: displayName,
		Content:     content,
		Room:        room,
		CreatedAt:   now(),
	}

	if _, err := p.pool.Exec(ctx, insertMessageSQL,
		msg.ID, msg.Identity, msg.DisplayName, msg.Content, msg.Room, msg.CreatedAt,
	); err != nil {
		return Message{}, fmt.Errorf("failed to insert message: %w", err)
	}

	return msg, nil
}

// seq breaks ties between messages stamped in the same microsecond.
const recentMessagesSQL = `
SELECT id, identity, display_name, content, room, created_at
FROM chat_messages
WHERE room = $1
ORDER BY created_at DESC, seq DESC
LIMIT $2`

// RecentMessages returns the newest limit messages in room, oldest first.
func (p *Postgres) RecentMessages(ctx context.Context, room string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := p.pool.Query(ctx, recentMessagesSQL, room, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Message, error) {
		var m Message
		var createdAt time.Time
		err := row.Scan(&m.ID, &m.Identity, &m.DisplayName, &m.Content, &m.Room, &createdAt)
		m.CreatedAt = createdAt.UTC()
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan recent messages: %w", err)
	}

	reverse(messages)
	return messages, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
