package sqlstore

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// dialect captures what differs between the supported SQL backends.
// Queries are written with '?' placeholders and rebound by sqlx.
type dialect struct {
	driver string
	schema []string
	// uniqueViolation reports whether err is a unique constraint failure and,
	// when it can tell, which column caused it.
	uniqueViolation func(err error) (field string, ok bool)
}

var sqliteDialect = dialect{
	driver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			image_url     TEXT,
			created_at    DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid       TEXT NOT NULL UNIQUE,
			from_user  TEXT NOT NULL REFERENCES users(username),
			to_user    TEXT NOT NULL REFERENCES users(username),
			content    TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(from_user, to_user, created_at)`,
		`CREATE TABLE IF NOT EXISTS reactions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid       TEXT NOT NULL UNIQUE,
			message_id INTEGER NOT NULL REFERENCES messages(id),
			user_id    INTEGER NOT NULL REFERENCES users(id),
			content    TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (message_id, user_id)
		)`,
	},
	uniqueViolation: func(err error) (string, bool) {
		var sqliteErr sqlite3.Error
		if !errors.As(err, &sqliteErr) {
			return "", false
		}
		if sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique &&
			sqliteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
			return "", false
		}
		// "UNIQUE constraint failed: users.email"
		msg := sqliteErr.Error()
		if i := strings.LastIndex(msg, "."); i >= 0 && i+1 < len(msg) {
			return msg[i+1:], true
		}
		return "", true
	},
}

var postgresDialect = dialect{
	driver: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			image_url     TEXT,
			created_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id         BIGSERIAL PRIMARY KEY,
			uuid       TEXT NOT NULL UNIQUE,
			from_user  TEXT NOT NULL REFERENCES users(username),
			to_user    TEXT NOT NULL REFERENCES users(username),
			content    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(from_user, to_user, created_at)`,
		`CREATE TABLE IF NOT EXISTS reactions (
			id         BIGSERIAL PRIMARY KEY,
			uuid       TEXT NOT NULL UNIQUE,
			message_id BIGINT NOT NULL REFERENCES messages(id),
			user_id    BIGINT NOT NULL REFERENCES users(id),
			content    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (message_id, user_id)
		)`,
	},
	uniqueViolation: func(err error) (string, bool) {
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
			return "", false
		}
		if pqErr.Column != "" {
			return pqErr.Column, true
		}
		// default constraint names look like "users_email_key"
		name := strings.TrimSuffix(pqErr.Constraint, "_key")
		if i := strings.Index(name, "_"); i >= 0 {
			return name[i+1:], true
		}
		return "", true
	},
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case sqliteDialect.driver:
		return sqliteDialect, nil
	case postgresDialect.driver:
		return postgresDialect, nil
	default:
		return dialect{}, errors.New("unsupported driver " + driver)
	}
}
