// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lucas-vivier/GeoBluff/internal/cache"
)

// GameResult is the final outcome of a game.
type GameResult struct {
	GameID         string
	Winner         int
	Category       string
	CategorySet    string
	CardsPerPlayer int
	Actions        int
	StartedAt      time.Time
	EndedAt        time.Time
}

// Store persists games and their action log.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RecordGameResult upserts the game row as completed with its winner.
func (s *Store) RecordGameResult(ctx context.Context, res GameResult) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO games (id, status, category, category_set, cards_per_player, winner, action_count, start_time, end_time)
			VALUES ($1, 'completed', $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				status = 'completed',
				category = $2,
				category_set = $3,
				cards_per_player = $4,
				winner = $5,
				action_count = $6,
				end_time = $8
		`
		_, e := tx.Exec(ctx, q,
			res.GameID, res.Category, res.CategorySet, res.CardsPerPlayer,
			res.Winner, res.Actions, res.StartedAt, res.EndedAt,
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("tx upsert game result: %w", err)
	}
	return nil
}

// InsertActions writes a batch of action records in a single transaction.
// Games are created on their first action, completed on "game-end" and
// abandoned on "session-expired".
func (s *Store) InsertActions(ctx context.Context, recs []cache.ActionRecord) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %s#%d: %w", rec.GameID, rec.ActionIndex, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert actions: %w", err)
	}
	return nil
}

func insertActionTx(ctx context.Context, tx pgx.Tx, rec cache.ActionRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, 'in_progress', $2)
		ON CONFLICT (id) DO NOTHING
	`
	at := time.UnixMilli(rec.Timestamp)
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, at); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO game_actions (game_id, action_index, client_id, action_type, action_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	if _, err := tx.Exec(ctx, actionInsertQ,
		rec.GameID, rec.ActionIndex, rec.ClientID, rec.ActionType, payload, at,
	); err != nil {
		return err
	}

	status, from, ok := finalStatus(rec.ActionType)
	if !ok {
		return nil
	}
	finalizeQ := `
		UPDATE games
		SET status = $2, end_time = COALESCE(end_time, $3)
		WHERE id = $1 AND status = ANY($4)
	`
	_, err = tx.Exec(ctx, finalizeQ, rec.GameID, status, at, from)
	return err
}

// finalStatus maps a closing action to the game status it sets and the
// statuses it may replace. A game marked abandoned by the inactivity sweep
// can still complete if its end arrives later.
func finalStatus(actionType string) (status string, from []string, ok bool) {
	switch actionType {
	case "game-end":
		return "completed", []string{"in_progress", "abandoned"}, true
	case "session-expired":
		return "abandoned", []string{"in_progress"}, true
	}
	return "", nil, false
}

// MarkAbandoned marks a game as abandoned if it is still in progress.
func (s *Store) MarkAbandoned(ctx context.Context, gameID string) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE games
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		_, e := tx.Exec(ctx, q, gameID)
		return e
	})
	if err != nil {
		return fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	return nil
}
