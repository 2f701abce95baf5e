// internal/handlers/game.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/lucas-vivier/GeoBluff/internal/game"
)

// newGameRequest is the body of POST /api/new-game.
type newGameRequest struct {
	ClientID       string                 `json:"client_id"`
	CardsPerPlayer int                    `json:"cards_per_player"`
	Language       string                 `json:"language"`
	CategorySet    string                 `json:"category_set"`
	Category       string                 `json:"category"`
	Rules          map[string]interface{} `json:"rules"`
	Seed           uint64                 `json:"seed"`
}

// actionRequest is the union of all action bodies. The route picks the type.
type actionRequest struct {
	GameID   string `json:"game_id"`
	ClientID string `json:"client_id"`
	Player   int    `json:"player"`
	CardName string `json:"card_name"`
	Position *int   `json:"position"`
	Index    *int   `json:"index"`
	Answer   string `json:"answer"`
	Accepted *bool  `json:"accepted"`
	Language string `json:"language"`
}

func (req actionRequest) action(t game.ActionType) game.Action {
	return game.Action{
		Type:     t,
		ClientID: req.ClientID,
		Player:   req.Player,
		CardName: req.CardName,
		Position: req.Position,
		Index:    req.Index,
		Answer:   req.Answer,
		Accepted: req.Accepted,
		Language: req.Language,
	}
}

func (s *GameServer) handleNewGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req newGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	clientID, _ := s.resolveClientID(w, r, req.ClientID)

	snap, err := s.Store.Create(r.Context(), game.NewGameOptions{
		CardsPerPlayer: req.CardsPerPlayer,
		Language:       req.Language,
		CategorySet:    req.CategorySet,
		Category:       req.Category,
		Rules:          req.Rules,
		Seed:           req.Seed,
	}, clientID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.Logger.WithField("game", snap.GameID).Infof("new game (%s, %d cards)", snap.Category, len(snap.Player1Cards))
	writeJSON(w, http.StatusOK, snap)
}

func (s *GameServer) handleGameState(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	gameID := q.Get("game_id")
	if gameID == "" {
		writeError(w, fmt.Errorf("%w: missing game_id", game.ErrInvalidAction))
		return
	}
	clientID := s.presenceID(w, r, q.Get("client_id"))

	snap, err := s.Store.State(r.Context(), gameID, clientID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleAction returns the handler for one POST action endpoint.
func (s *GameServer) handleAction(t game.ActionType) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req actionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.GameID == "" {
			writeError(w, fmt.Errorf("%w: missing game_id", game.ErrInvalidAction))
			return
		}
		req.ClientID = s.presenceID(w, r, req.ClientID)

		snap, err := s.Store.Apply(r.Context(), req.GameID, req.action(t))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
