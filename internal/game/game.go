// internal/game/game.go
package game

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/lucas-vivier/GeoBluff/internal/catalog"
)

// Session holds the entire state for a single game instance in memory.
// Mu must be held for every read or write once the session is in a Store.
type Session struct {
	ID          string
	Seed        uint64
	Language    string
	Category    catalog.Category
	CategorySet string
	Rules       Rules

	Hands [2]Hand
	Board Board

	Phase           Phase
	CurrentPlayer   int
	Pending         *Card
	PendingPosition int

	CapitalCard   *Card
	CapitalPlayer int
	CapitalAnswer string
	capitalGraded bool
	capitalGrade  bool
	capitalWon    int  // team whose capital resolved correct this round
	walkPassed    bool // the full-board reveal walk of this round found no violation

	BluffCaller  int
	FinalPlayer  int
	RevealCursor int
	Violation    *Violation
	bluff        BluffOutcome

	Messages []Message
	Winner   int

	CreatedAt   time.Time
	LastActive  time.Time
	ActionIndex int // accepted actions
	logIndex    int // history records emitted

	Mu       sync.Mutex
	presence map[string]time.Time
	closed   bool
	recorded bool

	cat     *catalog.Catalog
	pool    []string
	deck    *Deck
	rng     *rand.Rand
	penalty PenaltyPolicy
	arbiter CapitalArbiter
	nextSeq int
}

// Hand returns the hand of team 1 or 2.
func (s *Session) Hand(player int) *Hand {
	return &s.Hands[player-1]
}

// value reads a card's statistic for the active category.
func (s *Session) value(c Card) float64 {
	country, _ := s.cat.Lookup(c.Name)
	v, _ := s.Category.Value(country)
	return v
}

func (s *Session) country(c Card) catalog.Country {
	country, _ := s.cat.Lookup(c.Name)
	return country
}

// Touch records that a client polled or acted.
func (s *Session) Touch(clientID string, now time.Time) {
	s.LastActive = now
	if clientID == "" {
		return
	}
	if s.presence == nil {
		s.presence = make(map[string]time.Time)
	}
	s.presence[clientID] = now
}

// ActiveClients counts clients seen within timeout.
func (s *Session) ActiveClients(now time.Time, timeout time.Duration) int {
	n := 0
	for _, seen := range s.presence {
		if now.Sub(seen) <= timeout {
			n++
		}
	}
	return n
}

// OtherPresent reports whether a client other than clientID is active.
func (s *Session) OtherPresent(clientID string, now time.Time, timeout time.Duration) bool {
	for id, seen := range s.presence {
		if id != clientID && now.Sub(seen) <= timeout {
			return true
		}
	}
	return false
}

// prunePresence forgets clients that have been gone for a long time.
func (s *Session) prunePresence(now time.Time, keep time.Duration) {
	for id, seen := range s.presence {
		if now.Sub(seen) > keep {
			delete(s.presence, id)
		}
	}
}

// pickCategory draws a category from the session pool, avoiding exclude when
// another choice exists.
func (s *Session) pickCategory(reg *catalog.Registry, exclude string) catalog.Category {
	candidates := s.pool
	if exclude != "" && len(s.pool) > 1 {
		candidates = make([]string, 0, len(s.pool))
		for _, id := range s.pool {
			if id != exclude {
				candidates = append(candidates, id)
			}
		}
	}
	c, _ := reg.Category(candidates[s.rng.IntN(len(candidates))])
	return c
}

// resetRound clears everything tied to the current board.
func (s *Session) resetRound() {
	s.Pending = nil
	s.PendingPosition = 0
	s.CapitalCard = nil
	s.CapitalPlayer = 0
	s.CapitalAnswer = ""
	s.capitalGraded = false
	s.capitalGrade = false
	s.capitalWon = 0
	s.walkPassed = false
	s.BluffCaller = 0
	s.FinalPlayer = 0
	s.RevealCursor = 0
	s.Violation = nil
	s.bluff = BluffOutcome{}
	s.nextSeq = 0
}
