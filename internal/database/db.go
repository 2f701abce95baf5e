package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool for dsn and pings it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id               TEXT PRIMARY KEY,
	status           TEXT NOT NULL DEFAULT 'in_progress',
	category         TEXT,
	category_set     TEXT,
	cards_per_player INT,
	winner           SMALLINT,
	action_count     INT,
	start_time       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time         TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS game_actions (
	game_id        TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	action_index   INT NOT NULL,
	client_id      TEXT,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, action_index)
);
`

// Migrate creates the tables when they are missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
