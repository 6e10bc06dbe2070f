package models

import "time"

// NotificationPreferences controls push delivery for a user, as stored
// on the profile row.
type NotificationPreferences struct {
	Enabled    bool            `json:"enabled"`
	Categories map[string]bool `json:"categories,omitempty"`
}

// Profile is the durable per-user record, one-to-one with the auth
// user id. The row may not exist yet immediately after session
// creation; see the fetch/bootstrap protocol in the session package.
type Profile struct {
	ID                      string                  `json:"id"`
	Username                string                  `json:"username"`
	AvatarURL               string                  `json:"avatar_url,omitempty"`
	OnboardingStep          string                  `json:"onboarding_step,omitempty"`
	OnboardingCompleted     bool                    `json:"onboarding_completed"`
	NotificationPreferences NotificationPreferences `json:"notification_preferences"`
	StarCount               int                     `json:"star_count"`
	CreatedAt               time.Time               `json:"created_at"`
	UpdatedAt               time.Time               `json:"updated_at"`
}

// Patch is a partial profile update. Nil fields are left untouched.
type Patch struct {
	Username                *string                  `json:"username,omitempty"`
	AvatarURL               *string                  `json:"avatar_url,omitempty"`
	OnboardingStep          *string                  `json:"onboarding_step,omitempty"`
	OnboardingCompleted     *bool                    `json:"onboarding_completed,omitempty"`
	NotificationPreferences *NotificationPreferences `json:"notification_preferences,omitempty"`
	StarCount               *int                     `json:"star_count,omitempty"`
}

// IsZero reports whether the patch carries no changes.
func (p Patch) IsZero() bool {
	return p.Username == nil &&
		p.AvatarURL == nil &&
		p.OnboardingStep == nil &&
		p.OnboardingCompleted == nil &&
		p.NotificationPreferences == nil &&
		p.StarCount == nil
}

// ProfileResponse is the API representation of a profile.
type ProfileResponse struct {
	ID                      string                  `json:"id"`
	Username                string                  `json:"username"`
	AvatarURL               string                  `json:"avatar_url,omitempty"`
	OnboardingStep          string                  `json:"onboarding_step,omitempty"`
	OnboardingCompleted     bool                    `json:"onboarding_completed"`
	NotificationPreferences NotificationPreferences `json:"notification_preferences"`
	StarCount               int                     `json:"star_count"`
	CreatedAt               time.Time               `json:"created_at"`
}

// ToResponse converts a profile to its API representation.
func (p *Profile) ToResponse() *ProfileResponse {
	return &ProfileResponse{
		ID:                      p.ID,
		Username:                p.Username,
		AvatarURL:               p.AvatarURL,
		OnboardingStep:          p.OnboardingStep,
		OnboardingCompleted:     p.OnboardingCompleted,
		NotificationPreferences: p.NotificationPreferences,
		StarCount:               p.StarCount,
		CreatedAt:               p.CreatedAt,
	}
}
