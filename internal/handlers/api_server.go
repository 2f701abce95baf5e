// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/lucas-vivier/GeoBluff/internal/catalog"
	"github.com/lucas-vivier/GeoBluff/internal/game"
	"github.com/lucas-vivier/GeoBluff/internal/middleware"
)

// actionRoutes maps each POST endpoint to the action it applies.
var actionRoutes = []game.ActionType{
	game.ActionPlayCard,
	game.ActionSetPosition,
	game.ActionValidatePlacement,
	game.ActionCancelPlacement,
	game.ActionCallBluff,
	game.ActionRevealCard,
	game.ActionCheckCapital,
	game.ActionCapitalDecision,
	game.ActionChangeCategory,
	game.ActionContinueAfterBluff,
	game.ActionContinueAfterFinalValidation,
	game.ActionSetLanguage,
}

// Routes builds the router. The rate limiter, when set, guards the /api
// endpoints only.
func (s *GameServer) Routes(limiter *middleware.RateLimiter) http.Handler {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		s.Logger.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, v)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal server error"})
	}
	mux.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "no such route"})
	})

	api := func(h httprouter.Handle) httprouter.Handle {
		if limiter == nil {
			return h
		}
		return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				h(w, r, p)
			})).ServeHTTP(w, r)
		}
	}

	mux.POST("/api/new-game", api(s.handleNewGame))
	mux.GET("/api/game-state", api(s.handleGameState))
	mux.GET("/api/categories", s.handleCategories)
	for _, t := range actionRoutes {
		mux.POST("/api/"+string(t), api(s.handleAction(t)))
	}
	mux.GET("/api/ws/:gameid", s.handleGameWS)

	mux.GET("/healthz", s.handleHealthz)
	mux.GET("/version", s.handleVersion)

	return middleware.LogMiddleware(s.Logger)(mux)
}

func (s *GameServer) handleHealthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.Store.Len(),
	})
}

func (s *GameServer) handleVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("geobluff v" + s.Version + "\n"))
}

type categoriesResponse struct {
	Categories []catalog.Category    `json:"categories"`
	Sets       []catalog.CategorySet `json:"category_sets"`
	DefaultSet string                `json:"default_set"`
	Rules      game.Rules            `json:"rules"`
}

func (s *GameServer) handleCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	m := s.Store.Machine()
	reg := m.Registry()
	writeJSON(w, http.StatusOK, categoriesResponse{
		Categories: reg.Categories(),
		Sets:       reg.Sets(),
		DefaultSet: reg.DefaultSet(),
		Rules:      m.Rules(),
	})
}
