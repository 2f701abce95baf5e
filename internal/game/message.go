// internal/game/message.go
package game

// Message is a translatable status line. Clients render Key with Params.
type Message struct {
	Key    string                 `json:"key"`
	Params map[string]interface{} `json:"params,omitempty"`
}

const (
	MsgChoosePosition      = "choose_position"
	MsgRevealCards         = "reveal_cards"
	MsgFinalValidation     = "final_validation"
	MsgNewCategory         = "new_category"
	MsgBluffCorrect        = "bluff_correct" // the board was in order, the challenger loses
	MsgBluffWrong          = "bluff_wrong"
	MsgOrderCorrect        = "order_correct"
	MsgOrderCorrectCapital = "order_correct_capital"
	MsgOrderWrong          = "order_wrong"
	MsgCapitalQuestion     = "capital_question"
	MsgCapitalCorrect      = "capital_correct"
	MsgCapitalIncorrect    = "capital_incorrect"
	MsgCapitalAccepted     = "capital_accepted"
	MsgCapitalRefused      = "capital_refused"
	MsgGameOverWin         = "game_over_win"
)

func (s *Session) setMessage(key string, params map[string]interface{}) {
	s.Messages = []Message{{Key: key, Params: params}}
}

func (s *Session) appendMessage(key string, params map[string]interface{}) {
	s.Messages = append(s.Messages, Message{Key: key, Params: params})
}

func (s *Session) clearMessage() {
	s.Messages = nil
}
