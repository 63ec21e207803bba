package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims carried by actor tokens.
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
