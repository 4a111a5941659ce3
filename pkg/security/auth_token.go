package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const authTokenType = "auth"

var ErrTokenInvalid = errors.New("authorization token invalid")

// AuthClaims are carried by the auth_token cookie.
type AuthClaims struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// MakeAuthToken signs a login token for userID valid for ttl.
func MakeAuthToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &AuthClaims{
		UserID: userID,
		Type:   authTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := t.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign auth token, %w", err)
	}

	return signed, nil
}

// ParseAuthToken validates a login token and returns the user ID it was
// issued for. Every failure is reported as ErrTokenInvalid wrapping the cause.
func ParseAuthToken(secret []byte, tokenStr string) (string, error) {
	var claims AuthClaims

	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.Type != authTokenType || claims.UserID == "" {
		return "", ErrTokenInvalid
	}

	return claims.UserID, nil
}
