// internal/game/card.go
package game

// Card is a country card. Its value is not stored: it is read from the
// catalog through the session's active category.
type Card struct {
	Name        string
	Flag        string
	Capital     string
	IsReference bool
	Revealed    bool
	PlacedBy    int // team that committed the card to the board, 0 for the reference
	seq         int // placement order within the round
}

// inHand strips the board-only state off a card.
func (c Card) inHand() Card {
	return Card{Name: c.Name, Flag: c.Flag, Capital: c.Capital}
}

// Hand is the set of cards a team holds. Order is kept only for stable display.
type Hand struct {
	cards []Card
}

func (h *Hand) Len() int { return len(h.cards) }

// Cards returns a copy of the hand.
func (h *Hand) Cards() []Card {
	return append([]Card(nil), h.cards...)
}

func (h *Hand) Has(name string) bool {
	for _, c := range h.cards {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Take removes a card by name.
func (h *Hand) Take(name string) (Card, bool) {
	for i, c := range h.cards {
		if c.Name == name {
			h.cards = append(h.cards[:i], h.cards[i+1:]...)
			return c, true
		}
	}
	return Card{}, false
}

func (h *Hand) Add(cards ...Card) {
	for _, c := range cards {
		h.cards = append(h.cards, c.inHand())
	}
}

// Board is the ordered line of cards. Index 0 always holds the reference card.
// Callers only mutate it through these methods.
type Board struct {
	cards []Card
}

// NewBoard starts a line with ref as its revealed anchor.
func NewBoard(ref Card) Board {
	ref = ref.inHand()
	ref.IsReference = true
	ref.Revealed = true
	return Board{cards: []Card{ref}}
}

func (b *Board) Len() int { return len(b.cards) }

func (b *Board) At(i int) Card { return b.cards[i] }

// Cards returns a copy of the line.
func (b *Board) Cards() []Card {
	return append([]Card(nil), b.cards...)
}

// Insert places a hidden card so that it ends up at index pos. Slot 0 folds
// into slot 1 so the reference card stays first. On an empty line the card
// becomes the reference.
func (b *Board) Insert(pos int, c Card) {
	if len(b.cards) == 0 {
		*b = NewBoard(c)
		return
	}
	if pos < 1 {
		pos = 1
	}
	if pos > len(b.cards) {
		pos = len(b.cards)
	}
	c.IsReference = false
	c.Revealed = false
	b.cards = append(b.cards, Card{})
	copy(b.cards[pos+1:], b.cards[pos:])
	b.cards[pos] = c
}

// Reveal turns a card face up.
func (b *Board) Reveal(i int) error {
	if i < 0 || i >= len(b.cards) {
		return ErrOutOfRange
	}
	if b.cards[i].Revealed {
		return ErrAlreadyRevealed
	}
	b.cards[i].Revealed = true
	return nil
}

// HideAll turns every non-reference card face down again.
func (b *Board) HideAll() {
	for i := 1; i < len(b.cards); i++ {
		b.cards[i].Revealed = false
	}
}

// AllRevealed reports whether the whole line is face up.
func (b *Board) AllRevealed() bool {
	for _, c := range b.cards {
		if !c.Revealed {
			return false
		}
	}
	return true
}

// Remove takes a placed card off the line. The reference card cannot be removed.
func (b *Board) Remove(name string) (Card, bool) {
	for i := 1; i < len(b.cards); i++ {
		if b.cards[i].Name == name {
			c := b.cards[i]
			b.cards = append(b.cards[:i], b.cards[i+1:]...)
			return c, true
		}
	}
	return Card{}, false
}

// Names lists the card names in board order.
func (b *Board) Names() []string {
	out := make([]string, len(b.cards))
	for i, c := range b.cards {
		out[i] = c.Name
	}
	return out
}
