package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Role enumerates caller roles carried in token claims.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleViewer Role = "VIEWER"
)

// Claims are the token claims this service understands. Token issuance is an
// external concern; the service only verifies.
type Claims struct {
	SubjectID string `json:"sub_id"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager verifies HMAC-signed bearer tokens.
type TokenManager struct {
	secret []byte
}

// NewTokenManager constructs manager.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// ParseToken validates the token signature and returns its claims.
func (m *TokenManager) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Role != RoleAdmin && claims.Role != RoleViewer {
		return nil, errors.New("unknown role")
	}
	return claims, nil
}
