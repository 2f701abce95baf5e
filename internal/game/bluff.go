// internal/game/bluff.go
package game

// orderTolerance absorbs float noise in catalog values; ties are legal.
const orderTolerance = 1e-4

// ValidatePosition accepts any insertion slot in [0, boardLen]. Placement
// never fails on order, the claim is only checked on reveal.
func ValidatePosition(boardLen, pos int) error {
	if pos < 0 || pos > boardLen {
		return ErrOutOfRange
	}
	return nil
}

// Violation is the leftmost adjacent pair of revealed cards, as board
// indices, that breaks ascending order.
type Violation struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// FirstViolation walks the revealed cards left to right, skipping hidden
// ones, and returns the first pair whose left value exceeds the right value.
// Signed categories compare raw signed values like any other.
func FirstViolation(cards []Card, value func(Card) float64) (Violation, bool) {
	prev := -1
	for i, c := range cards {
		if !c.Revealed {
			continue
		}
		if prev >= 0 && value(cards[prev]) > value(c)+orderTolerance {
			return Violation{Left: prev, Right: i}, true
		}
		prev = i
	}
	return Violation{}, false
}

// BluffOutcome is the adjudicated result of a reveal walk.
type BluffOutcome struct {
	Caller    int
	Justified bool
	Violation *Violation
	// Placer is the team that committed the misplaced card of the violating
	// pair, 0 when unknown.
	Placer int
}

// Loser is the team that pays for the outcome: the team that misplaced the
// card when the call was justified, the challenger otherwise. A team calling
// bluff on its own placement loses its own call.
func (o BluffOutcome) Loser() int {
	if !o.Justified {
		return o.Caller
	}
	if o.Placer != 0 {
		return o.Placer
	}
	return other(o.Caller)
}

// misplacedBy returns the team that placed the later of the two violating
// cards: the pair was in order until that card was committed. The reference
// is never blamed.
func misplacedBy(cards []Card, v Violation) int {
	blamed := -1
	for _, i := range []int{v.Left, v.Right} {
		if i < 0 || i >= len(cards) || cards[i].IsReference {
			continue
		}
		if blamed < 0 || cards[i].seq > cards[blamed].seq {
			blamed = i
		}
	}
	if blamed < 0 {
		return 0
	}
	return cards[blamed].PlacedBy
}
