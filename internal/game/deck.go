// internal/game/deck.go
package game

import (
	"math/rand/v2"

	"github.com/lucas-vivier/GeoBluff/internal/catalog"
)

// Deck draws countries without repetition. A country is in play from the
// moment it is drawn until it is released back by a discard.
type Deck struct {
	cat    *catalog.Catalog
	names  []string
	inPlay map[string]bool
	rng    *rand.Rand
}

// NewDeck builds a deck over every country of cat.
func NewDeck(cat *catalog.Catalog, rng *rand.Rand) *Deck {
	return &Deck{
		cat:    cat,
		names:  cat.Names(),
		inPlay: make(map[string]bool),
		rng:    rng,
	}
}

// Available counts the countries not in play.
func (d *Deck) Available() int {
	return len(d.names) - len(d.inPlay)
}

// Draw returns up to n random cards that are not in play. Fewer are returned
// when the catalog runs out.
func (d *Deck) Draw(n int) []Card {
	pool := make([]string, 0, d.Available())
	for _, name := range d.names {
		if !d.inPlay[name] {
			pool = append(pool, name)
		}
	}
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		j := i + d.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		out = append(out, d.card(pool[i]))
		d.inPlay[pool[i]] = true
	}
	return out
}

// Take marks a specific country as in play.
func (d *Deck) Take(name string) (Card, bool) {
	if d.inPlay[name] {
		return Card{}, false
	}
	if _, ok := d.cat.Lookup(name); !ok {
		return Card{}, false
	}
	d.inPlay[name] = true
	return d.card(name), true
}

// Release returns cards to the pool.
func (d *Deck) Release(cards ...Card) {
	for _, c := range cards {
		delete(d.inPlay, c.Name)
	}
}

func (d *Deck) card(name string) Card {
	c, _ := d.cat.Lookup(name)
	return Card{Name: c.Name, Flag: c.Flag, Capital: c.Capital}
}

// Deal draws the reference card and perTeam cards for each team.
func (d *Deck) Deal(perTeam int) (ref Card, hands [2][]Card, err error) {
	if d.Available() < 2*perTeam+1 {
		return Card{}, hands, ErrCatalogTooSmall
	}
	ref = d.Draw(1)[0]
	hands[0] = d.Draw(perTeam)
	hands[1] = d.Draw(perTeam)
	return ref, hands, nil
}
