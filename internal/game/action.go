// internal/game/action.go
package game

// Phase is the state of a session's turn machine.
type Phase string

const (
	PhasePlaying               Phase = "playing"
	PhasePlacing               Phase = "placing"
	PhaseCapitalCheck          Phase = "capital_check"
	PhaseCapitalValidation     Phase = "capital_validation"
	PhaseBluffReveal           Phase = "bluff_reveal"
	PhaseBluffResult           Phase = "bluff_result"
	PhaseFinalValidation       Phase = "final_validation"
	PhaseFinalValidationResult Phase = "final_validation_result"
	PhaseGameOver              Phase = "game_over"
)

// ActionType names a client request against a session.
type ActionType string

const (
	ActionPlayCard                     ActionType = "play-card"
	ActionSetPosition                  ActionType = "set-position"
	ActionValidatePlacement            ActionType = "validate-placement"
	ActionCancelPlacement              ActionType = "cancel-placement"
	ActionCallBluff                    ActionType = "call-bluff"
	ActionRevealCard                   ActionType = "reveal-card"
	ActionCheckCapital                 ActionType = "check-capital"
	ActionCapitalDecision              ActionType = "capital-decision"
	ActionChangeCategory               ActionType = "change-category"
	ActionContinueAfterBluff           ActionType = "continue-after-bluff"
	ActionContinueAfterFinalValidation ActionType = "continue-after-final-validation"
	ActionSetLanguage                  ActionType = "set-language"
)

// Action is a single request. Which fields are read depends on Type; pointer
// fields distinguish a missing value from zero.
type Action struct {
	Type     ActionType `json:"type"`
	ClientID string     `json:"client_id,omitempty"`
	Player   int        `json:"player,omitempty"`
	CardName string     `json:"card_name,omitempty"`
	Position *int       `json:"position,omitempty"`
	Index    *int       `json:"index,omitempty"`
	Answer   string     `json:"answer"`
	Accepted *bool      `json:"accepted,omitempty"`
	Language string     `json:"language,omitempty"`
}

// payload is the action body kept in the history log.
func (a Action) payload() map[string]interface{} {
	p := make(map[string]interface{})
	if a.Player != 0 {
		p["player"] = a.Player
	}
	if a.CardName != "" {
		p["card_name"] = a.CardName
	}
	if a.Position != nil {
		p["position"] = *a.Position
	}
	if a.Index != nil {
		p["index"] = *a.Index
	}
	if a.Type == ActionCheckCapital {
		p["answer"] = a.Answer
	}
	if a.Accepted != nil {
		p["accepted"] = *a.Accepted
	}
	if a.Language != "" {
		p["language"] = a.Language
	}
	return p
}

func PlayCard(player int, name string) Action {
	return Action{Type: ActionPlayCard, Player: player, CardName: name}
}

func SetPosition(pos int) Action {
	return Action{Type: ActionSetPosition, Position: &pos}
}

func ValidatePlacement() Action { return Action{Type: ActionValidatePlacement} }

func CancelPlacement() Action { return Action{Type: ActionCancelPlacement} }

func CallBluff(player int) Action {
	return Action{Type: ActionCallBluff, Player: player}
}

func RevealCard(index int) Action {
	return Action{Type: ActionRevealCard, Index: &index}
}

func CheckCapital(player int, answer string) Action {
	return Action{Type: ActionCheckCapital, Player: player, Answer: answer}
}

func CapitalDecision(accepted bool) Action {
	return Action{Type: ActionCapitalDecision, Accepted: &accepted}
}

func ChangeCategory() Action { return Action{Type: ActionChangeCategory} }

func ContinueAfterBluff() Action { return Action{Type: ActionContinueAfterBluff} }

func ContinueAfterFinalValidation() Action {
	return Action{Type: ActionContinueAfterFinalValidation}
}

func SetLanguage(language string) Action {
	return Action{Type: ActionSetLanguage, Language: language}
}

// other returns the opposing team.
func other(player int) int {
	if player == 1 {
		return 2
	}
	return 1
}

func validTeam(player int) bool { return player == 1 || player == 2 }
