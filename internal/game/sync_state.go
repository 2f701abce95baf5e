// internal/game/sync_state.go
package game

import "time"

// CardView is a card as shown to clients. Value and Capital are omitted
// while the card is hidden.
type CardView struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Flag        string   `json:"flag"`
	Capital     string   `json:"capital,omitempty"`
	Value       *float64 `json:"value,omitempty"`
	IsReference bool     `json:"is_reference"`
	Revealed    bool     `json:"revealed"`
	PlacedBy    int      `json:"placed_by,omitempty"`
}

// Snapshot is the full game state returned by every successful call.
type Snapshot struct {
	GameID          string     `json:"game_id"`
	Language        string     `json:"language"`
	Category        string     `json:"category"`
	CategoryLabel   string     `json:"category_label"`
	CategorySigned  bool       `json:"category_signed"`
	CategorySet     string     `json:"category_set"`
	Phase           Phase      `json:"phase"`
	CurrentPlayer   int        `json:"current_player"`
	Player1Cards    []CardView `json:"player1_cards"`
	Player2Cards    []CardView `json:"player2_cards"`
	Board           []CardView `json:"board"`
	PendingCard     *CardView  `json:"pending_card"`
	PendingPosition *int       `json:"pending_position"`
	CapitalCard     *CardView  `json:"capital_card"`
	CapitalPlayer   int        `json:"capital_player,omitempty"`
	CapitalAnswer   *string    `json:"capital_answer"`
	BluffCaller     int        `json:"bluff_caller,omitempty"`
	FinalPlayer     int        `json:"final_player,omitempty"`
	RevealCursor    int        `json:"reveal_cursor"`
	Violation       *Violation `json:"violation"`
	Message         *Message   `json:"message"`
	MessageParts    []Message  `json:"message_parts"`
	Winner          int        `json:"winner,omitempty"`
	Rules           Rules      `json:"rules"`
	ActiveClients   int        `json:"active_clients"`
	OtherPresent    bool       `json:"other_present"`
}

// showAllValues reports whether every board value is public in this phase.
func (s *Session) showAllValues() bool {
	switch s.Phase {
	case PhaseBluffResult, PhaseFinalValidationResult, PhaseGameOver:
		return true
	}
	return false
}

func (s *Session) view(c Card, showValue, showCapital bool) CardView {
	v := CardView{
		Name:        c.Name,
		DisplayName: s.country(c).DisplayName(s.Language),
		Flag:        c.Flag,
		IsReference: c.IsReference,
		Revealed:    c.Revealed,
		PlacedBy:    c.PlacedBy,
	}
	if showValue {
		val := s.value(c)
		v.Value = &val
	}
	if showCapital {
		v.Capital = c.Capital
	}
	return v
}

// Snapshot builds the client view of the session for clientID. The caller
// holds Mu.
func (s *Session) Snapshot(clientID string, now time.Time, presenceTimeout time.Duration) Snapshot {
	over := s.Phase == PhaseGameOver
	all := s.showAllValues()

	snap := Snapshot{
		GameID:         s.ID,
		Language:       s.Language,
		Category:       s.Category.ID,
		CategoryLabel:  s.Category.DisplayLabel(s.Language),
		CategorySigned: s.Category.Signed,
		CategorySet:    s.CategorySet,
		Phase:          s.Phase,
		CurrentPlayer:  s.CurrentPlayer,
		Player1Cards:   []CardView{},
		Player2Cards:   []CardView{},
		Board:          []CardView{},
		CapitalPlayer:  s.CapitalPlayer,
		BluffCaller:    s.BluffCaller,
		FinalPlayer:    s.FinalPlayer,
		RevealCursor:   s.RevealCursor,
		MessageParts:   append([]Message{}, s.Messages...),
		Winner:         s.Winner,
		Rules:          s.Rules,
		ActiveClients:  s.ActiveClients(now, presenceTimeout),
		OtherPresent:   s.OtherPresent(clientID, now, presenceTimeout),
	}
	for _, c := range s.Hands[0].Cards() {
		snap.Player1Cards = append(snap.Player1Cards, s.view(c, over, over))
	}
	for _, c := range s.Hands[1].Cards() {
		snap.Player2Cards = append(snap.Player2Cards, s.view(c, over, over))
	}
	for _, c := range s.Board.Cards() {
		snap.Board = append(snap.Board, s.view(c, all || c.Revealed, over))
	}
	if s.Pending != nil {
		pv := s.view(*s.Pending, false, false)
		snap.PendingCard = &pv
		pos := s.PendingPosition
		snap.PendingPosition = &pos
	}
	if s.CapitalCard != nil {
		cv := s.view(*s.CapitalCard, all, s.capitalGraded || over)
		snap.CapitalCard = &cv
	}
	if s.capitalGraded {
		answer := s.CapitalAnswer
		snap.CapitalAnswer = &answer
	}
	if s.Violation != nil {
		v := *s.Violation
		snap.Violation = &v
	}
	if len(s.Messages) > 0 {
		m := s.Messages[0]
		snap.Message = &m
	}
	return snap
}
