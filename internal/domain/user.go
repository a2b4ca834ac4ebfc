package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the account identity supplied by the authentication collaborator.
// Read-only in this layer.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Session is the explicit auth context passed to orchestrator operations.
// Token is the raw bearer token forwarded to the backend collaborator.
type Session struct {
	UserID string
	Email  string
	Phone  string
	Token  string
}

// PortalClaims are the JWT claims issued by the authentication collaborator.
type PortalClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}
