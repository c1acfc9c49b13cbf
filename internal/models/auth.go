package models

import "github.com/golang-jwt/jwt/v5"

// Token type claims. Refresh tokens reuse the JWT shape with a longer expiry.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTClaims carries the identity placed in signed tokens.
type JWTClaims struct {
	UserID    string   `json:"uid"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	TokenType string   `json:"typ"`
	jwt.RegisteredClaims
}
