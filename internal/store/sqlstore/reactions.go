package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vovakirdan/wiredm/internal/store"
)

const reactionSelect = `
	SELECT r.id, r.uuid, r.message_id, m.uuid AS message_uuid, r.user_id, u.username,
	       r.content, r.created_at, r.updated_at
	FROM reactions r
	JOIN users u ON u.id = r.user_id
	JOIN messages m ON m.id = r.message_id`

// UpsertReaction inserts the reaction of userID on messageID or overwrites its content.
// The UNIQUE (message_id, user_id) index makes concurrent calls converge on one row.
func (s *Store) UpsertReaction(ctx context.Context, messageID, userID int64, uuid, content string) (*store.Reaction, error) {
	query := s.db.Rebind(`
		INSERT INTO reactions (uuid, message_id, user_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (message_id, user_id)
		DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at
		RETURNING id`)

	ts := now()
	var id int64
	if err := s.db.QueryRowxContext(ctx, query, uuid, messageID, userID, content, ts, ts).Scan(&id); err != nil {
		return nil, s.mapError("upsert reaction", err)
	}

	var reaction store.Reaction
	if err := s.db.GetContext(ctx, &reaction, s.db.Rebind(reactionSelect+` WHERE r.id = ?`), id); err != nil {
		return nil, s.mapError("get reaction", err)
	}
	return &reaction, nil
}

// ListReactions returns reactions grouped by message id, oldest first.
func (s *Store) ListReactions(ctx context.Context, messageIDs []int64) (map[int64][]store.Reaction, error) {
	out := make(map[int64][]store.Reaction, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(reactionSelect+` WHERE r.message_id IN (?) ORDER BY r.created_at, r.id`, messageIDs)
	if err != nil {
		return nil, s.mapError("build reactions query", err)
	}

	var reactions []store.Reaction
	if err := s.db.SelectContext(ctx, &reactions, s.db.Rebind(query), args...); err != nil {
		return nil, s.mapError("list reactions", err)
	}
	for _, r := range reactions {
		out[r.MessageID] = append(out[r.MessageID], r)
	}
	return out, nil
}
