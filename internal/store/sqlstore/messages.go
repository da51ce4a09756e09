package sqlstore

import (
	"context"

	"github.com/vovakirdan/wiredm/internal/store"
)

const messageColumns = `id, uuid, from_user, to_user, content, created_at`

// CreateMessage persists msg and fills its ID and CreatedAt.
func (s *Store) CreateMessage(ctx context.Context, msg *store.Message) error {
	query := s.db.Rebind(`
		INSERT INTO messages (uuid, from_user, to_user, content, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	createdAt := now()
	row := s.db.QueryRowxContext(ctx, query, msg.UUID, msg.From, msg.To, msg.Content, createdAt)
	if err := row.Scan(&msg.ID); err != nil {
		return s.mapError("insert message", err)
	}
	msg.CreatedAt = createdAt
	if msg.Reactions == nil {
		msg.Reactions = []store.Reaction{}
	}
	return nil
}

// GetMessageByID retrieves a message by its internal id.
func (s *Store) GetMessageByID(ctx context.Context, id int64) (*store.Message, error) {
	var msg store.Message
	query := s.db.Rebind(`SELECT ` + messageColumns + ` FROM messages WHERE id = ?`)
	if err := s.db.GetContext(ctx, &msg, query, id); err != nil {
		return nil, s.mapError("get message", err)
	}
	return &msg, nil
}

// GetMessageByUUID retrieves a message by its public uuid.
func (s *Store) GetMessageByUUID(ctx context.Context, uuid string) (*store.Message, error) {
	var msg store.Message
	query := s.db.Rebind(`SELECT ` + messageColumns + ` FROM messages WHERE uuid = ?`)
	if err := s.db.GetContext(ctx, &msg, query, uuid); err != nil {
		return nil, s.mapError("get message by uuid", err)
	}
	return &msg, nil
}

// ListConversation returns the messages between a and b, newest first.
func (s *Store) ListConversation(ctx context.Context, a, b string) ([]*store.Message, error) {
	query := s.db.Rebind(`
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (from_user = ? AND to_user = ?) OR (from_user = ? AND to_user = ?)
		ORDER BY created_at DESC, id DESC`)

	var msgs []*store.Message
	if err := s.db.SelectContext(ctx, &msgs, query, a, b, b, a); err != nil {
		return nil, s.mapError("list conversation", err)
	}
	return msgs, nil
}

// LatestMessages returns, per peer of username, the newest message exchanged with them.
func (s *Store) LatestMessages(ctx context.Context, username string) (map[string]*store.Message, error) {
	query := s.db.Rebind(`
		SELECT ` + messageColumns + `
		FROM messages
		WHERE from_user = ? OR to_user = ?
		ORDER BY created_at DESC, id DESC`)

	rows, err := s.db.QueryxContext(ctx, query, username, username)
	if err != nil {
		return nil, s.mapError("latest messages", err)
	}
	defer rows.Close()

	latest := make(map[string]*store.Message)
	for rows.Next() {
		var msg store.Message
		if err := rows.StructScan(&msg); err != nil {
			return nil, s.mapError("scan message", err)
		}
		peer := msg.To
		if peer == username {
			peer = msg.From
		}
		if _, seen := latest[peer]; !seen {
			latest[peer] = &msg
		}
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapError("iterate messages", err)
	}
	return latest, nil
}
