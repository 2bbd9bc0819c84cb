package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// schemaStatements are applied in order on startup. IF NOT EXISTS keeps
// restarts idempotent; there is no migration tooling for a schema this small.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		sender_id BIGINT NOT NULL REFERENCES users(id),
		receiver_id BIGINT NOT NULL REFERENCES users(id),
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS messages_pair_idx
		ON messages (sender_id, receiver_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS friend_requests (
		id BIGSERIAL PRIMARY KEY,
		sender_id BIGINT NOT NULL REFERENCES users(id),
		receiver_id BIGINT NOT NULL REFERENCES users(id),
		status TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'rejected')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS friend_requests_pending_idx
		ON friend_requests (sender_id, receiver_id) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS friendships (
		user_id BIGINT NOT NULL REFERENCES users(id),
		friend_id BIGINT NOT NULL REFERENCES users(id),
		PRIMARY KEY (user_id, friend_id)
	)`,
}

// EnsureSchema creates the tables and indexes the service needs if they are
// not present yet.
func EnsureSchema(ctx context.Context) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema statement: %w", err)
			}
		}
		return nil
	})
}
