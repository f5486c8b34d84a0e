package testutil

import (
	"testing"
	"time"

	"github.com/dutyfinder/dutyfinder-api/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type tokenClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignToken issues an access token the way the login endpoint does
func SignToken(t *testing.T, secret, userID, name, role string) string {
	t.Helper()
	now := time.Now()
	claims := tokenClaims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    config.TokenIssuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{config.TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}
