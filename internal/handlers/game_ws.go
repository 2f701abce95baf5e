// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/lucas-vivier/GeoBluff/internal/game"
	"github.com/lucas-vivier/GeoBluff/internal/middleware"
	"golang.org/x/time/rate"
)

const (
	wsSubprotocol  = "game"
	wsWriteTimeout = 5 * time.Second
	wsTypeGetState = "get-state"
	wsTypePing     = "ping"
	wsTypeState    = "state"
	wsTypeError    = "error"
	wsTypePong     = "pong"
)

// wsRequest is one client frame: an action body plus its type and an
// optional correlation id echoed in the reply.
type wsRequest struct {
	actionRequest
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// wsResponse answers exactly one request. The server never pushes.
type wsResponse struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	State     *game.Snapshot `json:"state,omitempty"`
	Error     string         `json:"error,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// handleGameWS upgrades to a request/response channel bound to one game.
// Every frame carries the same actions as the REST endpoints.
func (s *GameServer) handleGameWS(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	gameID := p.ByName("gameid")
	clientID, _ := s.resolveClientID(w, r, r.URL.Query().Get("client_id"))

	// Refuse unknown or expired games before upgrading.
	if _, err := s.Store.State(r.Context(), gameID, clientID); err != nil {
		writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{wsSubprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
		return
	}
	defer c.CloseNow()

	if c.Subprotocol() != wsSubprotocol {
		c.Close(BadSubprotocolError, "client must speak the game subprotocol")
		return
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, gameID)

	err = s.serveGameConn(r.Context(), c, gameID, clientID)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		err = nil
	}
	if errors.Is(err, game.ErrUnknownSession) || errors.Is(err, game.ErrSessionExpired) {
		c.Close(InvalidGameIDError, err.Error())
	}
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, gameID, err)
}

// serveGameConn runs the read loop until the client leaves or the game
// disappears.
func (s *GameServer) serveGameConn(ctx context.Context, c *websocket.Conn, gameID, clientID string) error {
	l := rate.NewLimiter(rate.Every(100*time.Millisecond), 10)
	for {
		if err := l.Wait(ctx); err != nil {
			return err
		}
		typ, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		resp, err := s.handleFrame(ctx, gameID, clientID, data)
		if werr := writeFrame(ctx, c, resp); werr != nil {
			return werr
		}
		if err != nil {
			return err
		}
	}
}

// handleFrame applies one frame. The returned error is set only when the
// connection should end.
func (s *GameServer) handleFrame(ctx context.Context, gameID, clientID string, data []byte) (wsResponse, error) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return wsResponse{Type: wsTypeError, Error: "invalid_action", Message: "invalid JSON"}, nil
	}
	if req.ClientID == "" {
		req.ClientID = clientID
	}

	var (
		snap game.Snapshot
		err  error
	)
	switch req.Type {
	case wsTypePing:
		return wsResponse{Type: wsTypePong, RequestID: req.RequestID}, nil
	case wsTypeGetState:
		snap, err = s.Store.State(ctx, gameID, req.ClientID)
	default:
		snap, err = s.Store.Apply(ctx, gameID, req.action(game.ActionType(req.Type)))
	}
	if err != nil {
		code, _ := errorStatus(err)
		resp := wsResponse{Type: wsTypeError, RequestID: req.RequestID, Error: code, Message: err.Error()}
		if errors.Is(err, game.ErrUnknownSession) || errors.Is(err, game.ErrSessionExpired) {
			return resp, err
		}
		return resp, nil
	}
	return wsResponse{Type: wsTypeState, RequestID: req.RequestID, State: &snap}, nil
}

func writeFrame(ctx context.Context, c *websocket.Conn, resp wsResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, data)
}
