package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(name string) Card { return Card{Name: name} }

func TestBoardInsert(t *testing.T) {
	b := NewBoard(card("ref"))
	b.Insert(1, card("a"))
	b.Insert(0, card("b")) // folds behind the reference
	b.Insert(3, card("c"))
	b.Insert(99, card("d"))

	assert.Equal(t, []string{"ref", "b", "a", "c", "d"}, b.Names())
	assert.True(t, b.At(0).IsReference)
	assert.True(t, b.At(0).Revealed)
	for i := 1; i < b.Len(); i++ {
		assert.False(t, b.At(i).IsReference)
		assert.False(t, b.At(i).Revealed)
	}

	var empty Board
	empty.Insert(3, card("x"))
	require.Equal(t, 1, empty.Len())
	assert.True(t, empty.At(0).IsReference)
}

func TestBoardRevealAndRemove(t *testing.T) {
	b := NewBoard(card("ref"))
	b.Insert(1, card("a"))
	b.Insert(2, card("b"))

	assert.ErrorIs(t, b.Reveal(0), ErrAlreadyRevealed)
	assert.ErrorIs(t, b.Reveal(3), ErrOutOfRange)
	assert.ErrorIs(t, b.Reveal(-1), ErrOutOfRange)
	require.NoError(t, b.Reveal(2))
	assert.False(t, b.AllRevealed())
	require.NoError(t, b.Reveal(1))
	assert.True(t, b.AllRevealed())

	b.HideAll()
	assert.True(t, b.At(0).Revealed)
	assert.False(t, b.At(1).Revealed)

	_, ok := b.Remove("ref")
	assert.False(t, ok, "the reference card stays")
	c, ok := b.Remove("a")
	require.True(t, ok)
	assert.Equal(t, "a", c.Name)
	assert.Equal(t, []string{"ref", "b"}, b.Names())
}

func TestHand(t *testing.T) {
	var h Hand
	h.Add(Card{Name: "a", IsReference: true, Revealed: true, PlacedBy: 2}, card("b"))
	assert.Equal(t, 2, h.Len())
	assert.True(t, h.Has("a"))
	assert.False(t, h.Cards()[0].IsReference, "board state is stripped")
	assert.Zero(t, h.Cards()[0].PlacedBy)

	_, ok := h.Take("zzz")
	assert.False(t, ok)
	c, ok := h.Take("a")
	require.True(t, ok)
	assert.Equal(t, "a", c.Name)
	assert.False(t, h.Has("a"))
}

func TestValidatePosition(t *testing.T) {
	assert.NoError(t, ValidatePosition(3, 0))
	assert.NoError(t, ValidatePosition(3, 3))
	assert.ErrorIs(t, ValidatePosition(3, 4), ErrOutOfRange)
	assert.ErrorIs(t, ValidatePosition(3, -1), ErrOutOfRange)
}

func TestFirstViolation(t *testing.T) {
	values := map[string]float64{"a": 1, "b": 2, "c": 3, "n": -5, "tie": 2.00001}
	value := func(c Card) float64 { return values[c.Name] }
	line := func(names ...string) []Card {
		out := make([]Card, len(names))
		for i, n := range names {
			out[i] = Card{Name: n, Revealed: true}
		}
		return out
	}

	_, found := FirstViolation(line("a", "b", "c"), value)
	assert.False(t, found)

	_, found = FirstViolation(line("b", "tie", "b"), value)
	assert.False(t, found, "ties within tolerance are legal")

	v, found := FirstViolation(line("a", "c", "b", "n"), value)
	require.True(t, found)
	assert.Equal(t, Violation{Left: 1, Right: 2}, v)

	_, found = FirstViolation(line("n", "a"), value)
	assert.False(t, found, "signed values compare as is")

	cards := line("a", "c", "b")
	cards[1].Revealed = false
	_, found = FirstViolation(cards, value)
	assert.False(t, found, "hidden cards are skipped")
}

func TestBluffOutcomeLoser(t *testing.T) {
	assert.Equal(t, 2, BluffOutcome{Caller: 1, Justified: true}.Loser())
	assert.Equal(t, 1, BluffOutcome{Caller: 1}.Loser())
	assert.Equal(t, 1, BluffOutcome{Caller: 2, Justified: true}.Loser())
	assert.Equal(t, 2, BluffOutcome{Caller: 2}.Loser())

	// a justified call blames whoever misplaced the card, even the caller
	assert.Equal(t, 1, BluffOutcome{Caller: 1, Justified: true, Placer: 1}.Loser())
	assert.Equal(t, 2, BluffOutcome{Caller: 1, Justified: true, Placer: 2}.Loser())
	assert.Equal(t, 2, BluffOutcome{Caller: 2, Placer: 1}.Loser(), "placer only matters on a justified call")
}

func TestMisplacedBy(t *testing.T) {
	ref := Card{Name: "ref", IsReference: true}
	board := []Card{
		ref,
		{Name: "a", PlacedBy: 2, seq: 1},
		{Name: "b", PlacedBy: 1, seq: 2},
	}
	assert.Equal(t, 2, misplacedBy(board, Violation{Left: 0, Right: 1}), "the reference is never blamed")
	assert.Equal(t, 1, misplacedBy(board, Violation{Left: 1, Right: 2}), "the later placement broke the order")
	assert.Equal(t, 0, misplacedBy(board, Violation{Left: 0, Right: 7}))
}

func TestPenaltyPolicies(t *testing.T) {
	ref := Card{Name: "ref", IsReference: true}
	board := []Card{ref, {Name: "a", seq: 2}, {Name: "b", seq: 3}, {Name: "c", seq: 1}}
	justified := BluffOutcome{Caller: 2, Justified: true, Violation: &Violation{Left: 0, Right: 1}}
	clean := BluffOutcome{Caller: 2}

	p, err := NewPenaltyPolicy("", 2)
	require.NoError(t, err)
	assert.Equal(t, PenaltyDisputed, p.Name())
	out := p.Redistribute(board, justified)
	assert.Equal(t, []Card{board[1]}, out.ToLoser, "the reference never leaves the board")
	out = p.Redistribute(board, clean)
	assert.Equal(t, []Card{board[2]}, out.ToLoser, "last committed card")
	assert.Zero(t, out.Draw)

	p, err = NewPenaltyPolicy(PenaltyBoard, 2)
	require.NoError(t, err)
	out = p.Redistribute(board, clean)
	assert.Len(t, out.ToLoser, 3)

	p, err = NewPenaltyPolicy(PenaltyDraw, 4)
	require.NoError(t, err)
	out = p.Redistribute(board, justified)
	assert.Empty(t, out.ToLoser)
	assert.Equal(t, 4, out.Draw)

	_, err = NewPenaltyPolicy("double", 2)
	assert.Error(t, err)
}

func TestDeck(t *testing.T) {
	cat := testCatalog(t)
	d := NewDeck(cat, rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, 12, d.Available())

	drawn := d.Draw(5)
	require.Len(t, drawn, 5)
	seen := map[string]bool{}
	for _, c := range drawn {
		assert.False(t, seen[c.Name])
		seen[c.Name] = true
		assert.NotEmpty(t, c.Capital)
	}
	assert.Equal(t, 7, d.Available())

	_, ok := d.Take(drawn[0].Name)
	assert.False(t, ok, "already in play")
	_, ok = d.Take("Atlantide")
	assert.False(t, ok)

	rest := d.Draw(50)
	assert.Len(t, rest, 7, "short draw when the catalog runs out")
	assert.Empty(t, d.Draw(1))

	d.Release(drawn[0])
	c, ok := d.Take(drawn[0].Name)
	require.True(t, ok)
	assert.Equal(t, drawn[0].Name, c.Name)
}

func TestDeckDeal(t *testing.T) {
	cat := testCatalog(t)
	d := NewDeck(cat, rand.New(rand.NewPCG(3, 4)))
	ref, hands, err := d.Deal(5)
	require.NoError(t, err)
	assert.NotEmpty(t, ref.Name)
	assert.Len(t, hands[0], 5)
	assert.Len(t, hands[1], 5)
	assert.Equal(t, 1, d.Available())

	_, _, err = d.Deal(1)
	assert.ErrorIs(t, err, ErrCatalogTooSmall)
}

func TestRulesUpdate(t *testing.T) {
	rules := DefaultRules()
	require.NoError(t, rules.Update(map[string]interface{}{
		"cards_per_player":   float64(4),
		"penalty_draw_count": 3,
		"penalty_policy":     "draw",
		"final_walk":         nil,
		"unknown":            "ignored",
	}))
	assert.Equal(t, 4, rules.CardsPerPlayer)
	assert.Equal(t, 3, rules.PenaltyDrawCount)
	assert.Equal(t, PenaltyDraw, rules.PenaltyPolicy)
	assert.Equal(t, FinalWalkTie, rules.FinalWalk)

	bad := []map[string]interface{}{
		{"cards_per_player": "four"},
		{"penalty_draw_count": float64(0)},
		{"penalty_policy": "double"},
		{"override_policy": "never"},
		{"final_walk": "sometimes"},
		{"final_walk": 1},
	}
	for _, m := range bad {
		_, err := ParseRules(m, DefaultRules())
		assert.Error(t, err, "%v", m)
	}

	parsed, err := ParseRules(nil, rules)
	require.NoError(t, err)
	assert.Equal(t, rules, parsed)
}

func TestClampCards(t *testing.T) {
	assert.Equal(t, DefaultCardsPerPlayer, clampCards(0))
	assert.Equal(t, MinCardsPerPlayer, clampCards(-3))
	assert.Equal(t, 4, clampCards(4))
	assert.Equal(t, MaxCardsPerPlayer, clampCards(42))
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "fr", NormalizeLanguage(""))
	assert.Equal(t, "fr", NormalizeLanguage("fr-CA"))
	assert.Equal(t, "en", NormalizeLanguage("en-GB"))
	assert.Equal(t, "en", NormalizeLanguage("EN"))
	assert.Equal(t, "fr", NormalizeLanguage("%%"))
}
