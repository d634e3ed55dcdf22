package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/warden-api/warden/internal/domain"
)

// ErrInvalidToken is returned for tokens that fail parsing or verification.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims carried by issued tokens.
type Claims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens with a fixed secret.
type Tokens struct {
	secret  []byte
	renewIn time.Duration
	now     func() time.Time
}

// NewTokens decodes the base64 secret. renewIn is the lifetime of tokens
// issued at login; zero issues tokens without expiry.
func NewTokens(secretBase64 string, renewIn time.Duration) (*Tokens, error) {
	secret, err := base64.StdEncoding.DecodeString(secretBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: decode secret: %w", err)
	}
	if len(secret) < 16 {
		return nil, errors.New("auth: secret must decode to at least 16 bytes")
	}
	return &Tokens{secret: secret, renewIn: renewIn, now: time.Now}, nil
}

// GenerateSecret returns a random base64 secret suitable for NewTokens.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Issue signs a token for userID with the configured lifetime.
func (t *Tokens) Issue(userID int64) (domain.Token, error) {
	return t.Sign(userID, t.renewIn)
}

// Sign signs a token for userID valid for expiresIn (forever when zero).
func (t *Tokens) Sign(userID int64, expiresIn time.Duration) (domain.Token, error) {
	now := t.now().UTC()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	var expiresAt *time.Time
	if expiresIn > 0 {
		exp := now.Add(expiresIn)
		expiresAt = &exp
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return domain.Token{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return domain.Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// Parse verifies raw and returns its claims.
func (t *Tokens) Parse(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 {
		return Claims{}, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims, nil
}
