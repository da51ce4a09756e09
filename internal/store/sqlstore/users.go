package sqlstore

import (
	"context"
	"fmt"

	"github.com/vovakirdan/wiredm/internal/store"
)

const userColumns = `id, username, email, password_hash, image_url, created_at`

// CreateUser inserts a user and returns the stored row.
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (*store.User, error) {
	query := s.db.Rebind(`
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`)

	var id int64
	if err := s.db.QueryRowxContext(ctx, query, username, email, passwordHash, now()).Scan(&id); err != nil {
		return nil, s.mapError("insert user", err)
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	var user store.User
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, s.mapError("get user", err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	var user store.User
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE username = ?`)
	if err := s.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, s.mapError("get user by username", err)
	}
	return &user, nil
}

// ListUsersExcept returns all users other than username, ordered by username.
func (s *Store) ListUsersExcept(ctx context.Context, username string) ([]*store.User, error) {
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE username <> ? ORDER BY username`)
	var users []*store.User
	if err := s.db.SelectContext(ctx, &users, query, username); err != nil {
		return nil, s.mapError("list users", err)
	}
	return users, nil
}

// UpdateAvatar sets the user's image URL.
func (s *Store) UpdateAvatar(ctx context.Context, userID int64, imageURL *string) (*store.User, error) {
	query := s.db.Rebind(`UPDATE users SET image_url = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, imageURL, userID)
	if err != nil {
		return nil, s.mapError("update avatar", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update avatar rows: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update avatar: %w", store.ErrNotFound)
	}
	return s.GetUserByID(ctx, userID)
}
