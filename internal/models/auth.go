package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload issued by the school identity
// provider. This service only validates tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
