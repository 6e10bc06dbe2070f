package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"heard-backend/internal/common/logger"
	"heard-backend/internal/features/profile/models"
	"heard-backend/internal/features/profile/repository"
)

// Bootstrapper synthesizes and inserts a minimal profile once a fetch
// has definitively reported "no row". Two racing bootstraps are safe:
// the losing insert hits the uniqueness constraint on id and falls
// through to a plain fetch of the winner's row.
type Bootstrapper struct {
	repo repository.ProfileRepository
}

func NewBootstrapper(repo repository.ProfileRepository) *Bootstrapper {
	return &Bootstrapper{repo: repo}
}

// Bootstrap inserts a default profile for the user and returns the
// canonical row as stored, capturing server-assigned defaults and
// timestamps with a single non-retrying read.
func (b *Bootstrapper) Bootstrap(ctx context.Context, user *Session) (*models.Profile, error) {
	p := DefaultProfile(user)

	err := b.repo.Insert(ctx, p)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrConflict):
		// Another resolution path created the row first.
		logger.Debug().Str("user_id", user.UserID).Msg("profile already exists, skipping bootstrap insert")
	default:
		return nil, fmt.Errorf("bootstrap profile %s: %w", user.UserID, err)
	}

	return b.repo.GetByID(ctx, user.UserID)
}

// DefaultProfile builds the profile a fresh user starts with. The
// username defaults to the local part of the email, or "user" when the
// session carries no email.
func DefaultProfile(user *Session) *models.Profile {
	now := time.Now().UTC()
	return &models.Profile{
		ID:                      user.UserID,
		Username:                usernameFromEmail(user.Email),
		OnboardingCompleted:     false,
		NotificationPreferences: models.NotificationPreferences{Enabled: false},
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "user"
	}
	return local
}
