// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game channel.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
	InvalidGameIDError  = 3003 // Target game does not exist or has expired.
)
