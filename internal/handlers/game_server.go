// internal/handlers/game_server.go
package handlers

import (
	"github.com/lucas-vivier/GeoBluff/internal/auth"
	"github.com/lucas-vivier/GeoBluff/internal/game"
	"github.com/sirupsen/logrus"
)

// GameServer exposes a game.Store over HTTP and WebSocket.
type GameServer struct {
	Store   *game.Store
	Issuer  *auth.Issuer
	Logger  *logrus.Logger
	Version string

	// SecureCookie marks the client-id cookie Secure (HTTPS deployments).
	SecureCookie bool
}

func NewGameServer(store *game.Store, issuer *auth.Issuer, logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GameServer{
		Store:   store,
		Issuer:  issuer,
		Logger:  logger,
		Version: "dev",
	}
}
