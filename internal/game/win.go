// internal/game/win.go
package game

// evaluateWin returns the winning team, or 0. A team wins once its hand is
// empty and its capital resolved correct, unless the opponent's hand is empty
// too, in which case the full-board walk must also have passed.
func evaluateWin(s *Session) int {
	t := s.capitalWon
	if !validTeam(t) || s.Hand(t).Len() > 0 {
		return 0
	}
	if s.Hand(other(t)).Len() == 0 && !s.walkPassed {
		return 0
	}
	return t
}

// settle runs the win check after a mutating transition.
func settle(s *Session) {
	if s.Phase == PhaseGameOver {
		return
	}
	if w := evaluateWin(s); w != 0 {
		s.Phase = PhaseGameOver
		s.Winner = w
		s.RevealCursor = 0
		s.appendMessage(MsgGameOverWin, map[string]interface{}{"player": w})
	}
}
