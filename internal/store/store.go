package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("unique constraint violated")
)

// ConflictError names the column whose uniqueness was violated.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return ErrConflict.Error()
	}
	return ErrConflict.Error() + ": " + e.Field
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// User represents a registered account.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	ImageURL     *string   `db:"image_url" json:"image_url"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Message represents a direct message between two users.
// Reactions are attached on read and never persisted through this struct.
type Message struct {
	ID        int64      `db:"id" json:"-"`
	UUID      string     `db:"uuid" json:"uuid"`
	From      string     `db:"from_user" json:"from"`
	To        string     `db:"to_user" json:"to"`
	Content   string     `db:"content" json:"content"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Reactions []Reaction `db:"-" json:"reactions"`
}

// HasParticipant reports whether username is the sender or the recipient.
func (m *Message) HasParticipant(username string) bool {
	return username != "" && (m.From == username || m.To == username)
}

// Reaction is one user's emoji on one message. There is at most one per (message, user).
type Reaction struct {
	ID          int64     `db:"id" json:"-"`
	UUID        string    `db:"uuid" json:"uuid"`
	MessageID   int64     `db:"message_id" json:"-"`
	MessageUUID string    `db:"message_uuid" json:"message_uuid"`
	UserID      int64     `db:"user_id" json:"-"`
	Username    string    `db:"username" json:"username"`
	Content     string    `db:"content" json:"content"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// UserSummary is a user together with the latest message exchanged with the viewer.
type UserSummary struct {
	User
	LatestMessage *Message `json:"latest_message"`
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser inserts a user. Duplicate username or email yields a *ConflictError.
	CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error)

	GetUserByID(ctx context.Context, id int64) (*User, error)

	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// ListUsersExcept returns every user but the given one, ordered by username.
	ListUsersExcept(ctx context.Context, username string) ([]*User, error)

	// UpdateAvatar sets or clears (nil) the user's image URL.
	UpdateAvatar(ctx context.Context, userID int64, imageURL *string) (*User, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage persists msg, filling ID and CreatedAt.
	CreateMessage(ctx context.Context, msg *Message) error

	GetMessageByID(ctx context.Context, id int64) (*Message, error)

	GetMessageByUUID(ctx context.Context, uuid string) (*Message, error)

	// ListConversation returns messages exchanged between a and b, newest first.
	ListConversation(ctx context.Context, a, b string) ([]*Message, error)

	// LatestMessages maps each peer of username to the newest message between them.
	LatestMessages(ctx context.Context, username string) (map[string]*Message, error)
}

// ReactionStore handles reaction persistence.
type ReactionStore interface {
	// UpsertReaction creates the (message, user) reaction or overwrites its content.
	UpsertReaction(ctx context.Context, messageID, userID int64, uuid, content string) (*Reaction, error)

	// ListReactions returns reactions keyed by message id, oldest first.
	ListReactions(ctx context.Context, messageIDs []int64) (map[int64][]Reaction, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	ReactionStore

	// Migrate creates the schema if it does not exist.
	Migrate(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
