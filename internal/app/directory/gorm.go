package directory

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"lounge/internal/pkg/randx"
)

// userRecord is the gorm model of a chat user.
type userRecord struct {
	Identity  string    `gorm:"primaryKey;size:42"`
	CreatedAt time.Time `gorm:"not null"`
}

func (userRecord) TableName() string {
	return "chat_users"
}

// messageRecord is the gorm model of a chat message. Seq preserves insertion order.
type messageRecord struct {
	Seq         uint64    `gorm:"primaryKey;autoIncrement"`
	ID          string    `gorm:"uniqueIndex;size:36;not null"`
	Identity    string    `gorm:"size:42;not null"`
	DisplayName string    `gorm:"not null"`
	Content     string    `gorm:"not null"`
	Room        string    `gorm:"index:idx_chat_messages_room_created,priority:1;not null"`
	CreatedAt   time.Time `gorm:"index:idx_chat_messages_room_created,priority:2;not null"`
}

func (messageRecord) TableName() string {
	return "chat_messages"
}

func (r messageRecord) toMessage() Message {
	return Message{
		ID:          r.ID,
		Identity:    r.Identity,
		DisplayName: r.DisplayName,
		Content:     r.Content,
		Room:        r.Room,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

// GormDirectory is a Directory backed by any gorm dialect.
type GormDirectory struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the SQLite database at path and migrates the chat tables.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*GormDirectory, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite handle: %w", err)
	}
	// SQLite has a single writer, and every :memory: connection is a separate database.
	sqlDB.SetMaxOpenConns(1)

	return NewGorm(db)
}

// NewGorm migrates the chat tables on db and returns the directory.
func NewGorm(db *gorm.DB) (*GormDirectory, error) {
	if err := db.AutoMigrate(&userRecord{}, &messageRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chat tables: %w", err)
	}
	return &GormDirectory{db: db}, nil
}

// UpsertUser inserts the identity if absent and returns the stored row.
func (g *GormDirectory) UpsertUser(ctx context.Context, identity string) (User, error) {
	record := userRecord{Identity: identity, CreatedAt: now()}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
			return err
		}
		return tx.First(&record, "identity = ?", identity).Error
	})
	if err != nil {
		return User{}, fmt.Errorf("failed to upsert user: %w", err)
	}

	return User{Identity: record.Identity, CreatedAt: record.CreatedAt.UTC()}, nil
}

// InsertMessage stores a message with a fresh UUID and the server clock.
func (g *GormDirectory) InsertMessage(ctx context.Context, identity, displayName, content, room string) (Message, error) {
	record := messageRecord{
		ID:          randx.MessageID(),
		Identity:    identity,
		DisplayName: displayName,
		Content:     content,
		Room:        room,
		CreatedAt:   now(),
	}

	if err := g.db.WithContext(ctx).Create(&record).Error; err != nil {
		return Message{}, fmt.Errorf("failed to insert message: %w", err)
	}

	return record.toMessage(), nil
}

// RecentMessages returns the newest limit messages in room, oldest first.
func (g *GormDirectory) RecentMessages(ctx context.Context, room string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	var records []messageRecord
	err := g.db.WithContext(ctx).
		Where("room = ?", room).
		Order("created_at DESC").
		Order("seq DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}

	messages := make([]Message, 0, len(records))
	for _, record := range records {
		messages = append(messages, record.toMessage())
	}

	reverse(messages)
	return messages, nil
}

// CountUsers returns the number of user records for identity.
func (g *GormDirectory) CountUsers(ctx context.Context, identity string) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&userRecord{}).Where("identity = ?", identity).Count(&count).Error
	return count, err
}

// Close closes the underlying database handle.
func (g *GormDirectory) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
