package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/lucas-vivier/GeoBluff/internal/auth"
	"github.com/lucas-vivier/GeoBluff/internal/game"
)

const maxBodyBytes = 64 << 10

// errorBody is the JSON shape of every rejection.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorCodes pairs each sentinel with its wire code and status.
var errorCodes = []struct {
	err    error
	code   string
	status int
}{
	{game.ErrUnknownSession, "unknown_session", http.StatusNotFound},
	{game.ErrSessionExpired, "session_expired", http.StatusGone},
	{game.ErrInvalidPhase, "invalid_phase", http.StatusBadRequest},
	{game.ErrNotYourTurn, "not_your_turn", http.StatusBadRequest},
	{game.ErrUnknownCard, "unknown_card", http.StatusBadRequest},
	{game.ErrOutOfRange, "out_of_range", http.StatusBadRequest},
	{game.ErrAlreadyRevealed, "already_revealed", http.StatusBadRequest},
	{game.ErrBoardTooSmall, "board_too_small", http.StatusBadRequest},
	{game.ErrCategoryLocked, "category_locked", http.StatusBadRequest},
	{game.ErrCatalogTooSmall, "catalog_too_small", http.StatusBadRequest},
	{game.ErrInvalidAction, "invalid_action", http.StatusBadRequest},
}

// errorStatus maps an error to its wire code and HTTP status.
func errorStatus(err error) (string, int) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code, e.status
		}
	}
	return "internal", http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code, status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", game.ErrInvalidAction, err)
	}
	return nil
}

// resolveClientID returns the explicit client id when given, else the id
// carried by the signed cookie, minting a new cookie when it is missing or
// invalid. minted reports an id issued during this request: the client has
// not proven it keeps the cookie yet. Without an issuer, anonymous requests
// stay anonymous.
func (s *GameServer) resolveClientID(w http.ResponseWriter, r *http.Request, explicit string) (id string, minted bool) {
	if explicit != "" {
		return explicit, false
	}
	if s.Issuer == nil {
		return "", false
	}
	if c, err := r.Cookie(auth.CookieName); err == nil {
		if known, err := s.Issuer.ClientID(c.Value); err == nil {
			return known, false
		}
	}

	id, token, err := s.Issuer.Mint()
	if err != nil {
		s.Logger.Warnf("mint client id: %v", err)
		return "", false
	}
	cookie := &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl := s.Issuer.TTL(); ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
	return id, true
}

// presenceID is the id a poll or action is counted under. Ids minted on
// this request are not counted, so clients that drop the cookie do not show
// up as a new presence on every call.
func (s *GameServer) presenceID(w http.ResponseWriter, r *http.Request, explicit string) string {
	id, minted := s.resolveClientID(w, r, explicit)
	if minted {
		return ""
	}
	return id
}
