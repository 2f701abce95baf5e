// internal/game/rules.go
package game

import (
	"errors"
	"fmt"
)

const (
	MinCardsPerPlayer     = 1
	MaxCardsPerPlayer     = 10
	DefaultCardsPerPlayer = 7

	// FinalWalkTie walks the whole board only when both hands end up empty.
	FinalWalkTie = "tie"
	// FinalWalkAlways walks the board every time a team places its last card,
	// before the capital question.
	FinalWalkAlways = "always"
)

// Rules are the per-game settings. Server defaults can be overridden per game
// from the new-game request.
type Rules struct {
	CardsPerPlayer   int            `json:"cards_per_player"`
	PenaltyDrawCount int            `json:"penalty_draw_count"` // fresh cards drawn after a refused capital or a failed final walk
	PenaltyPolicy    string         `json:"penalty_policy"`     // disputed, board or draw
	OverridePolicy   OverridePolicy `json:"override_policy"`
	FinalWalk        string         `json:"final_walk"`
}

// DefaultRules returns the rules used when nothing is configured.
func DefaultRules() Rules {
	return Rules{
		CardsPerPlayer:   DefaultCardsPerPlayer,
		PenaltyDrawCount: 2,
		PenaltyPolicy:    PenaltyDisputed,
		OverridePolicy:   OverrideBoth,
		FinalWalk:        FinalWalkTie,
	}
}

// Validate rejects rule sets the state machine cannot run.
func (rules Rules) Validate() error {
	if rules.PenaltyDrawCount < 1 {
		return errors.New("penalty_draw_count must be at least 1")
	}
	if _, err := NewPenaltyPolicy(rules.PenaltyPolicy, rules.PenaltyDrawCount); err != nil {
		return err
	}
	if !rules.OverridePolicy.valid() {
		return fmt.Errorf("unknown override policy %q", rules.OverridePolicy)
	}
	if rules.FinalWalk != FinalWalkTie && rules.FinalWalk != FinalWalkAlways {
		return fmt.Errorf("unknown final walk mode %q", rules.FinalWalk)
	}
	return nil
}

// clampCards bounds the hand size instead of rejecting it. Zero means unset.
func clampCards(n int) int {
	switch {
	case n == 0:
		return DefaultCardsPerPlayer
	case n < MinCardsPerPlayer:
		return MinCardsPerPlayer
	case n > MaxCardsPerPlayer:
		return MaxCardsPerPlayer
	}
	return n
}

// Update will update the rules with the values provided.
// Keys that are absent or null are ignored, and the old value persists.
func (rules *Rules) Update(newRules map[string]interface{}) error {
	assignString := func(field *string, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			s, ok := val.(string)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = s
		}
		return nil
	}

	assignInt := func(field *int, key string, minVal int) error {
		if val, exists := newRules[key]; exists && val != nil {
			// JSON numbers decode as float64
			switch v := val.(type) {
			case float64:
				*field = int(v)
			case int:
				*field = v
			default:
				return fmt.Errorf("invalid type for %s", key)
			}
			if *field < minVal {
				return fmt.Errorf("%s must be at least %d", key, minVal)
			}
		}
		return nil
	}

	if err := assignInt(&rules.CardsPerPlayer, "cards_per_player", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.PenaltyDrawCount, "penalty_draw_count", 1); err != nil {
		return err
	}
	if err := assignString(&rules.PenaltyPolicy, "penalty_policy"); err != nil {
		return err
	}
	override := string(rules.OverridePolicy)
	if err := assignString(&override, "override_policy"); err != nil {
		return err
	}
	rules.OverridePolicy = OverridePolicy(override)
	if err := assignString(&rules.FinalWalk, "final_walk"); err != nil {
		return err
	}
	return rules.Validate()
}

// ParseRules converts a map of rules on top of current. It will ensure the types are valid.
func ParseRules(m map[string]interface{}, current Rules) (Rules, error) {
	rules := current
	err := rules.Update(m)
	return rules, err
}
