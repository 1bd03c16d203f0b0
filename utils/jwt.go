package utils

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tieubaoca/research-assistant/types"
)

var ErrInvalidToken = errors.New("invalid session token")

type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs session with HS256 using secret.
func GenerateSessionToken(session *types.Session, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	claims := SessionClaims{
		Username: session.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			NotBefore: jwt.NewNumericDate(session.IssuedAt),
			Subject:   session.Username,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken verifies tokenString and rebuilds the session it carries.
func ParseSessionToken(tokenString, secret string) (*types.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return &types.Session{
		Username:  claims.Username,
		LoggedIn:  true,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
