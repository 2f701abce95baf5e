// internal/game/history.go
package game

import (
	"context"
	"time"

	"github.com/lucas-vivier/GeoBluff/internal/cache"
	"github.com/lucas-vivier/GeoBluff/internal/database"
)

// History action types that do not come from a client request.
const (
	actionNewGame = "new-game"
	actionGameEnd = "game-end"
	actionExpired = "session-expired"
)

// historyTimeout bounds every background write.
const historyTimeout = 2 * time.Second

// ActionPublisher queues action records for the historian.
type ActionPublisher interface {
	PublishAction(ctx context.Context, rec cache.ActionRecord) error
}

// ResultRecorder persists the outcome of a finished game.
type ResultRecorder interface {
	RecordGameResult(ctx context.Context, res database.GameResult) error
}

// actionRecord numbers and stamps a history entry. Caller holds s.Mu.
func (st *Store) actionRecord(s *Session, actionType, clientID string, payload map[string]interface{}, now time.Time) cache.ActionRecord {
	s.logIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["phase"] = string(s.Phase)
	return cache.ActionRecord{
		GameID:        s.ID,
		ActionIndex:   s.logIndex,
		ClientID:      clientID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     now.UnixMilli(),
	}
}

// result summarizes a finished session. Caller holds s.Mu.
func (s *Session) result(now time.Time) database.GameResult {
	return database.GameResult{
		GameID:         s.ID,
		Winner:         s.Winner,
		Category:       s.Category.ID,
		CategorySet:    s.CategorySet,
		CardsPerPlayer: s.Rules.CardsPerPlayer,
		Actions:        s.ActionIndex,
		StartedAt:      s.CreatedAt,
		EndedAt:        now,
	}
}

// publish queues a record for the historian. Callers hold the session lock,
// so a game's records are queued in action order; one pump goroutine drains
// the queue, which keeps that order on the wire. Failures are logged, never
// returned to players.
func (st *Store) publish(rec cache.ActionRecord) {
	if st.publisher == nil {
		return
	}
	st.outMu.Lock()
	st.outbox = append(st.outbox, rec)
	st.wg.Add(1)
	start := !st.pumping
	st.pumping = true
	st.outMu.Unlock()

	if start {
		go st.pump()
	}
}

// pump delivers queued records one at a time and exits once the queue is
// empty.
func (st *Store) pump() {
	for {
		st.outMu.Lock()
		if len(st.outbox) == 0 {
			st.pumping = false
			st.outMu.Unlock()
			return
		}
		rec := st.outbox[0]
		st.outbox[0] = cache.ActionRecord{}
		st.outbox = st.outbox[1:]
		st.outMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		if err := st.publisher.PublishAction(ctx, rec); err != nil {
			st.logger.WithField("game", rec.GameID).Warnf("publish action %d (%s): %v", rec.ActionIndex, rec.ActionType, err)
		}
		cancel()
		st.wg.Done()
	}
}

func (st *Store) record(res database.GameResult) {
	if st.recorder == nil {
		return
	}
	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		if err := st.recorder.RecordGameResult(ctx, res); err != nil {
			st.logger.WithField("game", res.GameID).Errorf("record game result: %v", err)
		}
	}()
}
