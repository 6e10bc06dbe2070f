// Package session implements the session/profile lifecycle every
// screen of the app depends on: session detection, profile fetch with
// bounded retry, implicit profile creation for fresh users, and the
// onboarding gate derived from the resolved profile.
package session

import (
	"context"

	"heard-backend/internal/features/profile/models"
)

// Session is the ephemeral handle for an authenticated principal,
// independent of the durable profile row.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// AuthClient is the remote auth service boundary.
//
// GetSession returns (nil, nil) when no session exists; the error
// return is reserved for transport failures. OnSessionChange delivers
// nil when auth state changes to signed-out.
type AuthClient interface {
	GetSession(ctx context.Context) (*Session, error)
	OnSessionChange(fn func(*Session)) (unsubscribe func())
	SignOut(ctx context.Context) error
}

// State is the controller's externally visible state, published as one
// unit. OnboardingComplete is tri-state: nil while there is no user,
// otherwise the profile's onboarding flag.
type State struct {
	User               *Session
	Profile            *models.Profile
	Loading            bool
	OnboardingComplete *bool
}

// onboardingGate derives the tri-state onboarding flag. nil is
// reserved for "no session"; a user without a resolved profile reads
// as false, not nil, so navigation can fall through to onboarding.
func onboardingGate(user *Session, profile *models.Profile) *bool {
	if user == nil {
		return nil
	}
	v := profile != nil && profile.OnboardingCompleted
	return &v
}
