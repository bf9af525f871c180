package authgate

import (
	"context"
	"time"
)

// Identity is the subject profile produced by the surrounding service's
// identity store at login time. authgate never persists it; the fields are
// copied into signed claims and forgotten.
type Identity struct {
	Subject string
	Email   string
	Role    string
}

// CredentialVerifier is the collaborator contract for the identity store.
// Implementations check an identifier/secret pair against their own
// persistence and return the subject's claims profile.
//
// Any error is treated by [Engine.Login] as a failed authentication; do not
// encode "user exists but wrong password" distinctly in the error surface.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, identifier, secret string) (Identity, error)
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	// Token is the signed session token, transported to clients as
	// "Authorization: Bearer <token>".
	Token string

	Subject   string
	Email     string
	Role      string
	SessionID string
	ExpiresAt time.Time
}

// RateResult reports one rate-governor decision. When the governor is
// globally disabled, Allowed is true and Limit is zero (no headers should be
// emitted for ungoverned requests).
type RateResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}
