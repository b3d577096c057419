package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"motorsporthub/config"
	"motorsporthub/models"
)

// ErrTokenExpired is returned by Verify for a well-signed but expired token.
var ErrTokenExpired = errors.New("access token expired")

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenVerifier checks access tokens issued by the platform against its
// HS256 signing secret.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(cfg *config.GatewayConfig) *TokenVerifier {
	return &TokenVerifier{secret: []byte(cfg.JWTSecret)}
}

// Verify returns the identity and expiry carried by token.
func (v *TokenVerifier) Verify(token string) (models.Identity, time.Time, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, time.Time{}, ErrTokenExpired
		}
		return models.Identity{}, time.Time{}, fmt.Errorf("verify access token: %w", err)
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return models.Identity{ID: claims.Subject, Email: claims.Email}, expiresAt, nil
}
