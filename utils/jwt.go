package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sevasetu/config"
)

const (
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// TokenClaims carries the identity, role and server session a token was
// issued for.
type TokenClaims struct {
	IdentityID int64  `json:"identity_id"`
	Role       string `json:"role"`
	SessionID  string `json:"session_id"`
	TokenType  string `json:"token_type"` // "access" or "refresh"
	jwt.RegisteredClaims
}

func secretKey() []byte {
	return []byte(config.AppConfig.JWTSecret)
}

func generateToken(identityID int64, role, sessionID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		IdentityID: identityID,
		Role:       role,
		SessionID:  sessionID,
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// GenerateAccessToken creates a signed short-lived access token.
func GenerateAccessToken(identityID int64, role, sessionID string) (string, error) {
	return generateToken(identityID, role, sessionID, "access", accessTokenTTL)
}

// GenerateRefreshToken creates a signed long-lived refresh token.
func GenerateRefreshToken(identityID int64, role, sessionID string) (string, error) {
	return generateToken(identityID, role, sessionID, "refresh", refreshTokenTTL)
}

// ValidateToken parses and validates a token string and returns its claims.
func ValidateToken(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
