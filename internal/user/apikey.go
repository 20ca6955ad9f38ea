package user

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inboxly/inbox-intel/internal/pkg/logger"
)

// KeyIssuer signs and verifies per-user API keys. Keys are HS256 JWTs
// carrying the user id plus a random nonce so reissued keys never
// collide; they do not expire, revocation happens by rotating the
// stored key.
type KeyIssuer struct {
	secret []byte
}

// NewKeyIssuer builds an issuer from the configured signing secret.
func NewKeyIssuer(secret string) (*KeyIssuer, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("api key secret must be at least 16 bytes")
	}
	return &KeyIssuer{secret: []byte(secret)}, nil
}

// Generate issues a signed API key for the user.
func (k *KeyIssuer) Generate(userID int64) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate key nonce: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatInt(userID, 10),
		"nonce": base64.RawURLEncoding.EncodeToString(nonce),
		"iat":   time.Now().Unix(),
	})
	signed, err := token.SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("sign api key: %w", err)
	}
	logger.Info("api key generated", "user_id", userID)
	return signed, nil
}

// Verify checks the signature and returns the embedded user id.
// A zero id with nil error never happens; any failure returns an error.
func (k *KeyIssuer) Verify(apiKey string) (int64, error) {
	if len(apiKey) < 10 {
		return 0, fmt.Errorf("api key too short")
	}

	token, err := jwt.Parse(apiKey, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return k.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("parse api key: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid api key claims")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("api key missing subject: %w", err)
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid user id in api key")
	}
	return userID, nil
}
