// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName carries the signed client id for browsers that do not send one.
const CookieName = "geobluff_client"

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid client token")

// Issuer mints and verifies client-id tokens. Client ids are anonymous; the
// token only proves the server handed the id out.
type Issuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration
	now        func() time.Time
}

// NewIssuer generates a fresh ed25519 key pair. A zero ttl means tokens never
// expire.
func NewIssuer(ttl time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Issuer{privateKey: priv, publicKey: pub, ttl: ttl, now: time.Now}, nil
}

// NewIssuerFromPath reads a raw ed25519 private key from file.
func NewIssuerFromPath(privatePath string, ttl time.Duration) (*Issuer, error) {
	data, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key file %s: want %d bytes, got %d", privatePath, ed25519.PrivateKeySize, len(data))
	}
	priv := ed25519.PrivateKey(data)
	return &Issuer{
		privateKey: priv,
		publicKey:  priv.Public().(ed25519.PublicKey),
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// TTL is the token lifetime, zero when tokens never expire.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Mint creates a new client id and its signed token.
func (i *Issuer) Mint() (clientID, token string, err error) {
	clientID = uuid.NewString()
	token, err = i.Sign(clientID)
	return clientID, token, err
}

// Sign creates a token with "sub" = clientID.
func (i *Issuer) Sign(clientID string) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub": clientID,
		"iat": now.Unix(),
	}
	if i.ttl > 0 {
		claims["exp"] = now.Add(i.ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(i.privateKey)
}

// ClientID verifies a token and returns its "sub" claim.
func (i *Issuer) ClientID(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.publicKey, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return sub, nil
}
