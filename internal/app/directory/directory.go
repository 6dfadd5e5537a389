/*
Package directory is the durable store of chat users and messages.

Two drivers implement Directory: Postgres (pgx pool, schema managed by goose migrations in
package db) and GormDirectory (gorm, used with SQLite for development and tests).
*/
package directory

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidLimit is returned by RecentMessages for a non-positive limit.
var ErrInvalidLimit = errors.New("limit must be positive")

// User is the durable record of an identity.
type User struct {
	Identity  string
	CreatedAt time.Time
}

// Message is a persisted chat message.
type Message struct {
	ID          string    `json:"id"`
	Identity    string    `json:"identity"`
	DisplayName string    `json:"displayName"`
	Content     string    `json:"content"`
	Room        string    `json:"room"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Directory is the storage collaborator of the chat core. Implementations must be safe for
// concurrent use.
type Directory interface {
	// UpsertUser creates the user record for identity if it does not exist yet.
	// Repeated calls are no-ops and return the original record.
	UpsertUser(ctx context.Context, identity string) (User, error)

	// InsertMessage persists a message and returns it with its id and creation time.
	InsertMessage(ctx context.Context, identity, displayName, content, room string) (Message, error)

	// RecentMessages returns at most limit of the newest messages in room, oldest first.
	RecentMessages(ctx context.Context, room string, limit int) ([]Message, error)

	// Close releases the underlying connections.
	Close() error
}

// now is the server clock used to stamp messages. Stored times are UTC with microsecond
// precision, which both PostgreSQL and SQLite round-trip exactly.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// reverse flips newest-first query results into delivery order.
func reverse(messages []Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
