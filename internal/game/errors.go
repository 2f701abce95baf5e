// internal/game/errors.go
package game

import "errors"

// Rejections returned by the state machine and the session store. A rejected
// action never mutates the session.
var (
	ErrInvalidPhase    = errors.New("action not allowed in the current phase")
	ErrNotYourTurn     = errors.New("not this team's turn")
	ErrUnknownCard     = errors.New("card is not in the team's hand")
	ErrUnknownSession  = errors.New("no game with this id")
	ErrSessionExpired  = errors.New("game expired")
	ErrOutOfRange      = errors.New("position out of range")
	ErrAlreadyRevealed = errors.New("card already revealed")
	ErrBoardTooSmall   = errors.New("board needs at least one placed card")
	ErrCategoryLocked  = errors.New("category can only change before the first placement")
	ErrInvalidAction   = errors.New("invalid action payload")
	ErrCatalogTooSmall = errors.New("catalog too small for this game")
)
