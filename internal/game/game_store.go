// internal/game/game_store.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lucas-vivier/GeoBluff/internal/cache"
	"github.com/lucas-vivier/GeoBluff/internal/database"
	"github.com/sirupsen/logrus"
)

// StoreOptions tune session expiry and presence.
type StoreOptions struct {
	IdleTimeout     time.Duration // sessions untouched for this long are reaped
	PresenceTimeout time.Duration // a client is present if seen within this window
	TombstoneTTL    time.Duration // how long reaped ids answer ErrSessionExpired
}

// DefaultStoreOptions returns the server defaults.
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		IdleTimeout:     30 * time.Minute,
		PresenceTimeout: 6 * time.Second,
		TombstoneTTL:    24 * time.Hour,
	}
}

// Store is the keyed table of live sessions. The map lock only guards
// lookups, inserts and reaping; each session carries its own lock.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	tombstones map[string]time.Time

	machine   *Machine
	opts      StoreOptions
	publisher ActionPublisher
	recorder  ResultRecorder
	logger    *logrus.Logger
	now       func() time.Time
	wg        sync.WaitGroup

	outMu   sync.Mutex
	outbox  []cache.ActionRecord
	pumping bool
}

// StoreOption configures optional collaborators.
type StoreOption func(*Store)

// WithPublisher sends every accepted action to the history queue.
func WithPublisher(p ActionPublisher) StoreOption {
	return func(s *Store) { s.publisher = p }
}

// WithRecorder persists finished games.
func WithRecorder(r ResultRecorder) StoreOption {
	return func(s *Store) { s.recorder = r }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func NewStore(m *Machine, opts StoreOptions, logger *logrus.Logger, options ...StoreOption) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	st := &Store{
		sessions:   make(map[string]*Session),
		tombstones: make(map[string]time.Time),
		machine:    m,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
	for _, o := range options {
		o(st)
	}
	return st
}

// Machine returns the state machine sessions are played with.
func (st *Store) Machine() *Machine { return st.machine }

// Len counts live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// newGameID returns a short random id that no live or reaped session uses.
// Caller holds st.mu.
func (st *Store) newGameID() string {
	for {
		id := uuid.NewString()[:8]
		_, live := st.sessions[id]
		_, dead := st.tombstones[id]
		if !live && !dead {
			return id
		}
	}
}

// Create deals a new session and returns its first snapshot.
func (st *Store) Create(ctx context.Context, opts NewGameOptions, clientID string) (Snapshot, error) {
	now := st.now()

	st.mu.Lock()
	id := st.newGameID()
	s, err := st.machine.NewSession(id, opts, now)
	if err != nil {
		st.mu.Unlock()
		return Snapshot{}, err
	}
	st.sessions[id] = s
	st.mu.Unlock()

	s.Mu.Lock()
	s.Touch(clientID, now)
	snap := s.Snapshot(clientID, now, st.opts.PresenceTimeout)
	rec := st.actionRecord(s, actionNewGame, clientID, map[string]interface{}{
		"cards_per_player": s.Rules.CardsPerPlayer,
		"category":         s.Category.ID,
		"category_set":     s.CategorySet,
		"language":         s.Language,
		"seed":             s.Seed,
	}, now)
	st.publish(rec)
	s.Mu.Unlock()

	st.logger.WithFields(logrus.Fields{
		"game":     id,
		"category": snap.Category,
		"cards":    s.Rules.CardsPerPlayer,
	}).Info("game created")
	return snap, nil
}

// lookup finds a live session or explains why there is none.
func (st *Store) lookup(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if s, ok := st.sessions[id]; ok {
		return s, nil
	}
	if _, ok := st.tombstones[id]; ok {
		return nil, ErrSessionExpired
	}
	return nil, ErrUnknownSession
}

// State is the read-only poll. It refreshes the caller's presence.
func (st *Store) State(ctx context.Context, id, clientID string) (Snapshot, error) {
	s, err := st.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	now := st.now()

	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionExpired
	}
	s.Touch(clientID, now)
	return s.Snapshot(clientID, now, st.opts.PresenceTimeout), nil
}

// Apply runs one action under the session lock. History records are queued
// before the lock is released and delivered in the background.
func (st *Store) Apply(ctx context.Context, id string, a Action) (Snapshot, error) {
	s, err := st.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	now := st.now()

	s.Mu.Lock()
	if s.closed {
		s.Mu.Unlock()
		return Snapshot{}, ErrSessionExpired
	}
	s.Touch(a.ClientID, now)
	if err := st.machine.Apply(s, a); err != nil {
		s.Mu.Unlock()
		st.logger.WithFields(logrus.Fields{
			"game":   id,
			"action": a.Type,
		}).Debugf("action rejected: %v", err)
		return Snapshot{}, err
	}
	snap := s.Snapshot(a.ClientID, now, st.opts.PresenceTimeout)
	rec := st.actionRecord(s, string(a.Type), a.ClientID, a.payload(), now)
	records := []cache.ActionRecord{rec}
	var result *database.GameResult
	if s.Phase == PhaseGameOver && !s.recorded {
		s.recorded = true
		r := s.result(now)
		result = &r
		records = append(records, st.actionRecord(s, actionGameEnd, "", map[string]interface{}{
			"winner": r.Winner,
		}, now))
	}
	for _, r := range records {
		st.publish(r)
	}
	s.Mu.Unlock()

	st.logger.WithFields(logrus.Fields{
		"game":   id,
		"action": a.Type,
		"phase":  snap.Phase,
	}).Debug("action applied")
	if result != nil {
		st.logger.WithFields(logrus.Fields{"game": id, "winner": result.Winner}).Info("game over")
		st.record(*result)
	}
	return snap, nil
}

// Run reaps idle sessions until ctx is done.
func (st *Store) Run(ctx context.Context) {
	if st.opts.IdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(st.opts.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Reap()
		}
	}
}

// Reap removes sessions idle longer than the idle timeout, leaving a
// tombstone so later requests get ErrSessionExpired, and drops old tombstones.
func (st *Store) Reap() int {
	now := st.now()
	cutoff := now.Add(-st.opts.IdleTimeout)

	var reaped []cache.ActionRecord
	st.mu.Lock()
	for id, s := range st.sessions {
		s.Mu.Lock()
		idle := s.LastActive.Before(cutoff)
		if idle {
			s.closed = true
			rec := st.actionRecord(s, actionExpired, "", nil, now)
			st.publish(rec)
			reaped = append(reaped, rec)
		} else {
			s.prunePresence(now, st.opts.IdleTimeout)
		}
		s.Mu.Unlock()

		if idle {
			delete(st.sessions, id)
			st.tombstones[id] = now
		}
	}
	for id, at := range st.tombstones {
		if now.Sub(at) > st.opts.TombstoneTTL {
			delete(st.tombstones, id)
		}
	}
	st.mu.Unlock()

	for _, rec := range reaped {
		st.logger.WithField("game", rec.GameID).Info("game reaped after inactivity")
	}
	return len(reaped)
}

// Wait blocks until in-flight history writes finish.
func (st *Store) Wait() {
	st.wg.Wait()
}
