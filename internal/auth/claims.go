package auth

import (
	"time"

	"github.com/listenupapp/saveable/internal/domain"
)

// ActorClaims represents the claims stored in a PASETO actor token.
// These are encrypted in v4.local tokens, so they're not readable without the key.
type ActorClaims struct {
	ActorType string `json:"actor_type"`
	ActorID   string `json:"actor_id"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// Actor returns the entity the token acts as.
func (c *ActorClaims) Actor() domain.EntityRef {
	return domain.EntityRef{Type: c.ActorType, ID: c.ActorID}
}
