package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// CredentialClaims are the claims embedded in a minted backend session
// credential.
type CredentialClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// IdentityClaims are the claims of the primary identity provider's session
// token, verified on the credential and account endpoints. Subject carries
// the provider-issued user id.
type IdentityClaims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}
