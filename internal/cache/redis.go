// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for game action logs.
const DefaultQueueName = "geobluff_actions"

// ActionRecord holds the minimal info needed by the historian.
type ActionRecord struct {
	GameID        string                 `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	ClientID      string                 `json:"client_id,omitempty"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Queue is the action log list shared by the game server (producer) and the
// historian (consumer).
type Queue struct {
	rdb  redis.Cmdable
	name string
}

// NewQueue wraps a Redis client. An empty name selects DefaultQueueName.
func NewQueue(rdb redis.Cmdable, name string) *Queue {
	if name == "" {
		name = DefaultQueueName
	}
	return &Queue{rdb: rdb, name: name}
}

// Name returns the Redis key of the list.
func (q *Queue) Name() string { return q.name }

// PublishAction serializes the record to JSON, then pushes it to the queue.
func (q *Queue) PublishAction(ctx context.Context, rec ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// ErrEmpty means no record arrived before the pop timeout.
var ErrEmpty = errors.New("queue empty")

// Pop blocks up to timeout for the next record.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (ActionRecord, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return ActionRecord{}, ErrEmpty
	}
	if err != nil {
		return ActionRecord{}, fmt.Errorf("BLPop %s: %w", q.name, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return ActionRecord{}, ErrEmpty
	}
	var rec ActionRecord
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return ActionRecord{}, fmt.Errorf("invalid action record: %w", err)
	}
	return rec, nil
}
