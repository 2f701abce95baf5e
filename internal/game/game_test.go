// internal/game/game_test.go
package game

import (
	"strings"
	"testing"
	"time"

	"github.com/lucas-vivier/GeoBluff/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCountries orders "area" alphabetically: Andorre 10 < Belgique 20 < ... < Laos 120.
// Population runs the other way.
const testCountries = `[
  {"name": "Andorre",  "name_en": "Andorra", "capital": "Andorre-la-Vieille", "capital_en": "Andorra la Vella", "flag": "AD", "area": 10,  "population": 990, "gdp": 20,  "latitude": 42.5, "longitude": 1.5},
  {"name": "Belgique", "name_en": "Belgium", "capital": "Bruxelles", "capital_en": "Brussels", "flag": "BE", "area": 20,  "population": 980, "gdp": 40,  "latitude": 50.8, "longitude": 4.4},
  {"name": "Chypre",   "name_en": "Cyprus",  "capital": "Nicosie", "capital_en": "Nicosia", "flag": "CY", "area": 30,  "population": 970, "gdp": 60,  "latitude": 35.1, "longitude": 33.4},
  {"name": "Danemark", "name_en": "Denmark", "capital": "Copenhague", "capital_en": "Copenhagen", "flag": "DK", "area": 40,  "population": 960, "gdp": 80,  "latitude": 55.7, "longitude": 12.6},
  {"name": "Estonie",  "name_en": "Estonia", "capital": "Tallinn", "flag": "EE", "area": 50,  "population": 950, "gdp": 100, "latitude": 59.4, "longitude": 24.7},
  {"name": "Finlande", "name_en": "Finland", "capital": "Helsinki", "flag": "FI", "area": 60,  "population": 940, "gdp": 120, "latitude": 60.2, "longitude": 24.9},
  {"name": "Grèce",    "name_en": "Greece",  "capital": "Athènes", "capital_en": "Athens", "flag": "GR", "area": 70,  "population": 930, "gdp": 140, "latitude": 37.9, "longitude": 23.7},
  {"name": "Hongrie",  "name_en": "Hungary", "capital": "Budapest", "flag": "HU", "area": 80,  "population": 920, "gdp": 160, "latitude": 47.5, "longitude": 19.0},
  {"name": "Irlande",  "name_en": "Ireland", "capital": "Dublin", "flag": "IE", "area": 90,  "population": 910, "gdp": 180, "latitude": 53.3, "longitude": -6.2},
  {"name": "Japon",    "name_en": "Japan",   "capital": "Tokyo", "capital_variants": ["Tōkyō", "Edo"], "flag": "JP", "area": 100, "population": 900, "gdp": 200, "latitude": 35.7, "longitude": 139.7},
  {"name": "Kenya",    "name_en": "Kenya",   "capital": "Nairobi", "flag": "KE", "area": 110, "population": 890, "gdp": 220, "latitude": -1.3, "longitude": 36.8},
  {"name": "Laos",     "name_en": "Laos",    "capital": "Vientiane", "flag": "LA", "area": 120, "population": 880, "gdp": 240, "latitude": 17.9, "longitude": 102.6}
]`

var testNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(strings.NewReader(testCountries))
	require.NoError(t, err)
	return cat
}

func testMachine(t *testing.T, rules Rules) *Machine {
	t.Helper()
	cat := testCatalog(t)
	m, err := NewMachine(cat, catalog.NewRegistry(cat, catalog.DefaultConfig()), rules)
	require.NoError(t, err)
	return m
}

// riggedSession deals a session, then replaces the deal with known cards.
func riggedSession(t *testing.T, m *Machine, rules map[string]interface{}, category, ref string, p1, p2 []string) *Session {
	t.Helper()
	s, err := m.NewSession("test", NewGameOptions{CardsPerPlayer: 1, Rules: rules, Seed: 7}, testNow)
	require.NoError(t, err)
	rig(t, m, s, category, ref, p1, p2)
	return s
}

// rig resets s to a known board and hands in the given category, with team 1
// to play.
func rig(t *testing.T, m *Machine, s *Session, category, ref string, p1, p2 []string) {
	t.Helper()
	c, ok := m.reg.Category(category)
	require.True(t, ok, category)
	s.Category = c

	s.deck = NewDeck(s.cat, s.rng)
	take := func(name string) Card {
		card, ok := s.deck.Take(name)
		require.True(t, ok, name)
		return card
	}
	s.Board = NewBoard(take(ref))
	s.Hands = [2]Hand{}
	for _, n := range p1 {
		s.Hands[0].Add(take(n))
	}
	for _, n := range p2 {
		s.Hands[1].Add(take(n))
	}
	s.CurrentPlayer = 1
	s.Phase = PhasePlaying
	s.Messages = nil
}

func apply(t *testing.T, m *Machine, s *Session, actions ...Action) {
	t.Helper()
	for _, a := range actions {
		require.NoError(t, m.Apply(s, a), "apply %s", a.Type)
	}
}

// place plays a card from the current team's hand at pos and commits it.
func place(t *testing.T, m *Machine, s *Session, name string, pos int) {
	t.Helper()
	apply(t, m, s, PlayCard(s.CurrentPlayer, name), SetPosition(pos), ValidatePlacement())
}

func handNames(h *Hand) []string {
	names := []string{}
	for _, c := range h.Cards() {
		names = append(names, c.Name)
	}
	return names
}

func lastMessage(s *Session) string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[len(s.Messages)-1].Key
}

func TestNewSessionDeal(t *testing.T) {
	m := testMachine(t, DefaultRules())
	s, err := m.NewSession("g1", NewGameOptions{CardsPerPlayer: 3, Language: "en-US", Seed: 42}, testNow)
	require.NoError(t, err)

	assert.Equal(t, PhasePlaying, s.Phase)
	assert.Equal(t, 1, s.CurrentPlayer)
	assert.Equal(t, "en", s.Language)
	assert.Equal(t, "basic", s.CategorySet)
	assert.Equal(t, 3, s.Hand(1).Len())
	assert.Equal(t, 3, s.Hand(2).Len())
	require.Equal(t, 1, s.Board.Len())
	assert.True(t, s.Board.At(0).IsReference)
	assert.True(t, s.Board.At(0).Revealed)
	assert.Equal(t, MsgNewCategory, lastMessage(s))

	seen := map[string]bool{s.Board.At(0).Name: true}
	for _, h := range []*Hand{s.Hand(1), s.Hand(2)} {
		for _, c := range h.Cards() {
			assert.False(t, seen[c.Name], "duplicate card %s", c.Name)
			seen[c.Name] = true
		}
	}
	assert.Equal(t, 12-7, s.deck.Available())
}

func TestNewSessionSeedIsDeterministic(t *testing.T) {
	m := testMachine(t, DefaultRules())
	a, err := m.NewSession("a", NewGameOptions{CardsPerPlayer: 4, Seed: 99}, testNow)
	require.NoError(t, err)
	b, err := m.NewSession("b", NewGameOptions{CardsPerPlayer: 4, Seed: 99}, testNow)
	require.NoError(t, err)

	assert.Equal(t, a.Category.ID, b.Category.ID)
	assert.Equal(t, a.Board.Names(), b.Board.Names())
	assert.Equal(t, handNames(a.Hand(1)), handNames(b.Hand(1)))
	assert.Equal(t, handNames(a.Hand(2)), handNames(b.Hand(2)))
}

func TestNewSessionOptions(t *testing.T) {
	m := testMachine(t, DefaultRules())

	s, err := m.NewSession("g", NewGameOptions{CardsPerPlayer: 2, Category: "gdp"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "gdp", s.Category.ID)

	_, err = m.NewSession("g", NewGameOptions{CardsPerPlayer: 2, Category: "nope"}, testNow)
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = m.NewSession("g", NewGameOptions{CardsPerPlayer: 2, CategorySet: "nope"}, testNow)
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = m.NewSession("g", NewGameOptions{CardsPerPlayer: 2, Rules: map[string]interface{}{"penalty_policy": "nope"}}, testNow)
	assert.ErrorIs(t, err, ErrInvalidAction)

	// 2*6+1 cards do not fit in a 12-country catalog.
	_, err = m.NewSession("g", NewGameOptions{CardsPerPlayer: 6}, testNow)
	assert.ErrorIs(t, err, ErrCatalogTooSmall)

	s, err = m.NewSession("g", NewGameOptions{CardsPerPlayer: 2, Rules: map[string]interface{}{
		"penalty_policy": "board", "override_policy": "rescue_only", "penalty_draw_count": float64(3),
	}}, testNow)
	require.NoError(t, err)
	assert.Equal(t, PenaltyBoard, s.penalty.Name())
	assert.Equal(t, OverrideRescueOnly, s.arbiter.Override)
	assert.Equal(t, 3, s.Rules.PenaltyDrawCount)
}

// Scenario A: slot 0 folds behind the reference card.
func TestPlaceAtFrontKeepsReferenceFirst(t *testing.T) {
	m := testMachine(t, DefaultRules())
	s := riggedSession(t, m, nil, "area", "Estonie", []string{"Andorre", "Japon"}, []string{"Belgique", "Kenya"})

	apply(t, m, s, PlayCard(1, "Andorre"))
	assert.Equal(t, PhasePlacing, s.Phase)
	assert.Equal(t, MsgChoosePosition, lastMessage(s))
	require.NotNil(t, s.Pending)
	assert.Equal(t, s.Board.Len(), s.PendingPosition, "defaults to the end of the line")

	apply(t, m, s, SetPosition(0), ValidatePlacement())
	assert.Equal(t, []string{"Estonie", "Andorre"}, s.Board.Names())
	assert.True(t, s.Board.At(0).IsReference)
	assert.False(t, s.Board.At(1).Revealed)
	assert.Equal(t, 1, s.Board.At(1).PlacedBy)
	assert.Equal(t, 2, s.CurrentPlayer)
	assert.Equal(t, PhasePlaying, s.Phase)
	assert.Equal(t, []string{"Japon"}, handNames(s.Hand(1)))
	assert.Nil(t, s.Pending)
}

func TestPlayThenCancelRestoresState(t *testing.T) {
	m := testMachine(t, DefaultRules())
	s := riggedSession(t, m, nil, "area", "Estonie", []string{"Andorre", "Japon", "Laos"}, []string{"Belgique"})
	beforeHand := handNames(s.Hand(1))
	beforeBoard := s.Board.Names()

	apply(t, m, s, PlayCard(1, "Japon"), SetPosition(1), CancelPlacement())

	assert.ElementsMatch(t, beforeHand, handNames(s.Hand(1)))
	assert.Equal(t, beforeBoard, s.Board.Names())
	assert.Equal(t, 1, s.CurrentPlayer)
	assert.Equal(t, PhasePlaying, s.Phase)
	assert.Nil(t, s.Pending)
}

func TestSetPositionBounds(t *testing.T) {
	m := testMachine(t, DefaultRules())
	s := riggedSession(t, m, nil, "area", "Estonie", []string{"Andorre", "Japon"}, []string{"Belgique", "Kenya"})
	place(t, m, s, "Japon", 1)
	apply(t, m, s, PlayCard(2, "Kenya"))

	apply(t, m, s, SetPosition(s.Board.Len()))
	assert.Equal(t, 2, s.PendingPosition)

	err := m.Apply(s, SetPosition(s.Board.Len()+1))
	assert.ErrorIs(t, err, ErrOutOfRange)
	err = m.Apply(s, SetPosition(-1))
	assert.ErrorIs(t, err, ErrOutOfRange)
	err = m.Apply(s, Action{Type: ActionSetPosition})
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, 2, s.PendingPosition)
}

func TestTurnAndPhaseGating(t *testing.T) {
	m := testMachine(t, DefaultRules())
	s := riggedSession(t, m, nil, "area", "Estonie", []string{"Andorre", "Japon"}, []string{"Belgique", "Kenya"})

	assert.ErrorIs(t, m.Apply(s, PlayCard(2, "Belgique")), ErrNotYourTurn)
	assert.ErrorIs(t, m.Apply(s, PlayCard(1, "Belgique")), ErrUnknownCard)
	assert.ErrorIs(t, m.Apply(s, PlayCard(3, "Andorre")), ErrInvalidAction)
	assert.ErrorIs(t, m.Apply(s, ValidatePlacement()), ErrInvalidPhase)
	assert.ErrorIs(t, m.Apply(s, RevealCard(0)), ErrInvalidPhase)
	assert.ErrorIs(t, m.Apply(s, CheckCapital(1, "Tokyo")), ErrInvalidPhase)
	assert.ErrorIs(t, m.Apply(s, CapitalDecision(true)), ErrInvalidPhase)
	assert.ErrorIs(t, m.Apply(s, ContinueAfterBluff()), ErrInvalidPhase)
	assert.ErrorIs(t, m.Apply(s, ContinueAfterFinalValidation()), ErrInvalidPhase)
	assert.ErrorIs(t, m.Apply(s, CallBluff(1)), ErrBoardTooSmall)
	assert.ErrorIs(t, m.Apply(s, Action{Type: "fly"}), ErrInvalidAction)

	apply(t, m, s, PlayCard(1, "Andorre"))
	assert.ErrorIs(t, m.Apply(s, PlayCard(1, "Japon")), ErrInvalidPhase)
	assert.ErrorIs(t, m.Apply(s, ChangeCategory()), ErrInvalidPhase)
	assert.Equal(t, 1, s.ActionIndex, "only the accepted play-card counts")
}

// Scenario B: a justified call sends the disputed card back to its team.
func TestJustifiedBluff(t *testing.T) {
	m := testMachine(t, DefaultRules())
	s := riggedSession(t, m, nil, "area", "Belgique", []string{"Andorre", "Japon"}, []string{"Chypre", "Kenya"})
	place(t, m, s, "Andorre", 1)

	apply(t, m, s, CallBluff(2))
	assert.Equal(t, PhaseBluffReveal, s.Phase)
	assert.Equal(t, 2, s.BluffCaller)
	assert.Equal(t, MsgRevealCards, lastMessage(s))

	apply(t, m, s, RevealCard(1))
	assert.Equal(t, PhaseBluffResult, s.Phase)
	require.NotNil(t, s.Violation)
	assert.Equal(t, Violation{Left: 0, Right: 1}, *s.Violation)
	assert.Equal(t, MsgBluffWrong, lastMessage(s))
	assert.Equal(t, 0, s.RevealCursor)
	assert.Equal(t, 1, s.bluff.Loser())

	apply(t, m, s, ContinueAfterBluff())
	assert.ElementsMatch(t, []string{"Japon", "Andorre"}, handNames(s.Hand(1)))
	assert.ElementsMatch(t, []string{"Chypre", "Kenya"}, handNames(s.Hand(2)))
	assert.Equal(t, PhasePlaying, s.Phase)
	assert.Equal(t, 1, s.CurrentPlayer, "the loser starts the next round")
	require.Equal(t, 1, s.Board.Len())
	assert.True(t, s.Board.At(0).IsReference)
	assert.Nil(t, s.Violation)
	assert.Equal(t, 0, s.BluffCaller)
	assert.Equal(t, MsgNewCategory, lastMessage(s))
	assert.Equal(t, MsgBluffWrong, s.Messages[0].Key)
}

func TestUnjustifiedBluffWithPartialReveal(t *testing.T) {
	m := testMachine(t, DefaultRules())
	s := riggedSession(t, m, nil, "area", "Estonie", []string{"Japon", "Andorre"}, []string{"Kenya", "Belgique"})
	place(t, m, s, "Japon", 1)
	place(t, m, s, "Kenya", 2)
	require.Equal(t, []string{"Estonie", "Japon", "Kenya"}, s.Board.Names())

	apply(t, m, s, CallBluff(1), RevealCard(2))
	assert.Equal(t, PhaseBluffReveal, s.Phase)
	assert.Equal(t, 1, s.RevealCursor)

	assert.ErrorIs(t, m.Apply(s, RevealCard(0)), ErrAlreadyRevealed)
	assert.ErrorIs(t, m.Apply(s, RevealCard(2)), ErrAlreadyRevealed)
	assert.ErrorIs(t, m.Apply(s, RevealCard(3)), ErrOutOfRange)
	assert.Equal(t, 1, s.RevealCursor)

	apply(t, m, s, RevealCard(1))
	assert.Equal(t, PhaseBluffResult, s.Phase)
	assert.Nil(t, s.Violation)
	assert.Equal(t, MsgBluffCorrect, lastMessage(s))

	apply(t, m, s, ContinueAfterBluff())
	// the most recently committed card goes to the challenger
	assert.ElementsMatch(t, []string{"Andorre", "Kenya"}, handNames(s.Hand(1)))
	assert.Equal(t, []string{"Belgique"}, handNames(s.Hand(2)))
	assert.Equal(t, 1, s.CurrentPlayer)
}

func TestBluffPenaltyPolicies(t *testing.T) {
	for _, policy := range []string{PenaltyDisputed, PenaltyBoard, PenaltyDraw} {
		t.Run(policy, func(t *testing.T) {
			m := testMachine(t, DefaultRules())
			s := riggedSession(t, m, map[string]interface{}{"penalty_policy": policy},
				"area", "Estonie", []string{"Japon", "Andorre", "Laos"}, []string{"Kenya", "Belgique"})
			place(t, m, s, "Japon", 1)
			place(t, m, s, "Kenya", 2)
			place(t, m, s, "Andorre", 3)
			require.Equal(t, []string{"Estonie", "Japon", "Kenya", "Andorre"}, s.Board.Names())

			// hidden cards are skipped, so reveal Kenya before Andorre
			apply(t, m, s, CallBluff(2), RevealCard(2), RevealCard(3))
			require.Equal(t, PhaseBluffResult, s.Phase)
			require.NotNil(t, s.Violation)
			assert.Equal(t, Violation{Left: 2, Right: 3}, *s.Violation)

			apply(t, m, s, ContinueAfterBluff())
			switch policy {
			case PenaltyDisputed:
				assert.ElementsMatch(t, []string{"Laos", "Kenya", "Andorre"}, handNames(s.Hand(1)))
			case PenaltyBoard:
				assert.ElementsMatch(t, []string{"Laos", "Japon", "Kenya", "Andorre"}, handNames(s.Hand(1)))
			case PenaltyDraw:
				assert.Equal(t, 3, s.Hand(1).Len())
				assert.Contains(t, handNames(s.Hand(1)), "Laos")
			}
			assert.Equal(t, []string{"Belgique"}, handNames(s.Hand(2)))
			assert.Equal(t, 1, s.CurrentPlayer)
			assert.Len(t, s.deck.inPlay, s.Hand(1).Len()+s.Hand(2).Len()+s.Board.Len())
		})
	}
}

// A team that calls bluff on its own misplaced card pays for it itself.
func TestSelfChallengedBluffKeepsPenaltyWithPlacer(t *testing.T) {
	for _, policy := range []string{PenaltyDisputed, PenaltyBoard, PenaltyDraw} {
		t.Run(policy, func(t *testing.T) {
			m := testMachine(t, DefaultRules())
			s := riggedSession(t, m, map[string]interface{}{"penalty_policy": policy},
				"area", "Estonie", []string{"Andorre", "Japon"}, []string{"Kenya", "Laos"})
			place(t, m, s, "Andorre", 1)
			place(t, m, s, "Kenya", 2)
			require.Equal(t, []string{"Estonie", "Andorre", "Kenya"}, s.Board.Names())

			apply(t, m, s, CallBluff(1), RevealCard(1))
			require.Equal(t, PhaseBluffResult, s.Phase)
			require.NotNil(t, s.Violation)
			assert.Equal(t, Violation{Left: 0, Right: 1}, *s.Violation)
			assert.Equal(t, 1, s.bluff.Placer)
			assert.Equal(t, 1, s.bluff.Loser())

			apply(t, m, s, ContinueAfterBluff())
			switch policy {
			case PenaltyDisputed:
				assert.ElementsMatch(t, []string{"Japon", "Andorre"}, handNames(s.Hand(1)))
			case PenaltyBoard:
				assert.ElementsMatch(t, []string{"Japon", "Andorre", "Kenya"}, handNames(s.Hand(1)))
			case PenaltyDraw:
				assert.Equal(t, 3, s.Hand(1).Len())
				assert.Contains(t, handNames(s.Hand(1)), "Japon")
			}
			assert.Equal(t, []string{"Laos"}, handNames(s.Hand(2)), "the opponent never receives the misplaced card")
			assert.Equal(t, 1, s.CurrentPlayer)
			assert.Len(t, s.deck.inPlay, s.Hand(1).Len()+s.Hand(2).Len()+s.Board.Len())
		})
	}
}

func TestChangeCategory(t *testing.T) {
	m := testMachine(t, DefaultRules())
	s := riggedSession(t, m, nil, "area", "Estonie", []string{"Andorre", "Japon"}, []string{"Belgique", "Kenya"})
	available := s.deck.Available()

	apply(t, m, s, ChangeCategory())
	assert.NotEqual(t, "area", s.Category.ID)
	require.Equal(t, 1, s.Board.Len())
	assert.True(t, s.Board.At(0).IsReference)
	assert.NotEqual(t, "Estonie", s.Board.At(0).Name)
	assert.Equal(t, available, s.deck.Available(), "old reference is released")
	assert.Equal(t, MsgNewCategory, lastMessage(s))
	assert.Equal(t, 1, s.CurrentPlayer)
}

// Scenario D.
func TestChangeCategoryLockedOnceCardsArePlaced(t *testing.T) {
	m := testMachine(t, DefaultRules())
	s := riggedSession(t, m, nil, "area", "Estonie", []string{"Andorre", "Japon"}, []string{"Belgique", "Kenya"})
	place(t, m, s, "Andorre", 1)

	err := m.Apply(s, ChangeCategory())
	assert.ErrorIs(t, err, ErrCategoryLocked)
	assert.Equal(t, "area", s.Category.ID)
	assert.Equal(t, 2, s.Board.Len())
}

func TestSetLanguage(t *testing.T) {
	m := testMachine(t, DefaultRules())
	s := riggedSession(t, m, nil, "area", "Estonie", []string{"Andorre"}, []string{"Belgique"})
	apply(t, m, s, SetLanguage("EN"))
	assert.Equal(t, "en", s.Language)
	apply(t, m, s, SetLanguage("not a language!"))
	assert.Equal(t, DefaultLanguage, s.Language)
}

func TestSnapshotVisibility(t *testing.T) {
	m := testMachine(t, DefaultRules())
	s := riggedSession(t, m, nil, "area", "Estonie", []string{"Andorre", "Japon"}, []string{"Belgique", "Kenya"})
	place(t, m, s, "Japon", 1)

	snap := s.Snapshot("c1", testNow, time.Second)
	require.Len(t, snap.Board, 2)
	require.NotNil(t, snap.Board[0].Value)
	assert.Equal(t, 50.0, *snap.Board[0].Value)
	assert.Nil(t, snap.Board[1].Value, "hidden card")
	for _, c := range append(snap.Player1Cards, snap.Player2Cards...) {
		assert.Nil(t, c.Value)
		assert.Empty(t, c.Capital)
	}
	assert.Equal(t, "Superficie (km²)", snap.CategoryLabel)

	apply(t, m, s, CallBluff(2), RevealCard(1))
	snap = s.Snapshot("c1", testNow, time.Second)
	assert.Equal(t, PhaseBluffResult, snap.Phase)
	require.NotNil(t, snap.Board[1].Value)
	assert.Equal(t, 100.0, *snap.Board[1].Value)

	again := s.Snapshot("c1", testNow, time.Second)
	assert.Equal(t, snap, again, "reads are idempotent")
}
