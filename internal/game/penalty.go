// internal/game/penalty.go
package game

import "fmt"

// Redistribution is what a penalty policy hands to the losing team: board
// cards that move to its hand and a number of fresh cards to draw.
type Redistribution struct {
	ToLoser []Card
	Draw    int
}

// PenaltyPolicy decides how a resolved bluff grows the loser's hand. Board
// cards it does not hand over are discarded with the round.
type PenaltyPolicy interface {
	Name() string
	Redistribute(board []Card, outcome BluffOutcome) Redistribution
}

const (
	PenaltyDisputed = "disputed"
	PenaltyBoard    = "board"
	PenaltyDraw     = "draw"
)

// NewPenaltyPolicy resolves a policy by name.
func NewPenaltyPolicy(name string, drawCount int) (PenaltyPolicy, error) {
	switch name {
	case PenaltyDisputed, "":
		return disputedPolicy{}, nil
	case PenaltyBoard:
		return boardPolicy{}, nil
	case PenaltyDraw:
		return drawPolicy{count: drawCount}, nil
	}
	return nil, fmt.Errorf("unknown penalty policy %q", name)
}

// disputedPolicy gives back the cards under dispute: the violating pair on a
// justified call, the last committed card on an unjustified one.
type disputedPolicy struct{}

func (disputedPolicy) Name() string { return PenaltyDisputed }

func (disputedPolicy) Redistribute(board []Card, outcome BluffOutcome) Redistribution {
	var out Redistribution
	if outcome.Justified && outcome.Violation != nil {
		for _, i := range []int{outcome.Violation.Left, outcome.Violation.Right} {
			if i >= 0 && i < len(board) && !board[i].IsReference {
				out.ToLoser = append(out.ToLoser, board[i])
			}
		}
		return out
	}
	last := -1
	for i, c := range board {
		if c.IsReference {
			continue
		}
		if last < 0 || c.seq > board[last].seq {
			last = i
		}
	}
	if last >= 0 {
		out.ToLoser = append(out.ToLoser, board[last])
	}
	return out
}

type boardPolicy struct{}

func (boardPolicy) Name() string { return PenaltyBoard }

func (boardPolicy) Redistribute(board []Card, _ BluffOutcome) Redistribution {
	var out Redistribution
	for _, c := range board {
		if !c.IsReference {
			out.ToLoser = append(out.ToLoser, c)
		}
	}
	return out
}

// drawPolicy discards the whole board and deals fresh cards instead.
type drawPolicy struct {
	count int
}

func (drawPolicy) Name() string { return PenaltyDraw }

func (p drawPolicy) Redistribute([]Card, BluffOutcome) Redistribution {
	return Redistribution{Draw: p.count}
}
