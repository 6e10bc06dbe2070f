package session

import (
	"context"
	"errors"

	"heard-backend/internal/common/apperrors"
	"heard-backend/internal/features/profile/models"
	"heard-backend/internal/features/profile/repository"
)

// ProfileService bundles the fetch-or-bootstrap resolution and the
// profile write operations. It is stateless; the Controller layers the
// lifecycle state machine on top of it, and the HTTP delivery calls it
// per request.
type ProfileService struct {
	fetcher *Fetcher
	boot    *Bootstrapper
	repo    repository.ProfileRepository
	fresh   repository.ProfileRepository
}

// NewProfileService wires the service. repo serves regular reads and
// writes (typically cache-decorated); fresh must bypass any cache and
// serves onboarding-status checks.
func NewProfileService(repo, fresh repository.ProfileRepository, fetcher *Fetcher, boot *Bootstrapper) *ProfileService {
	return &ProfileService{
		fetcher: fetcher,
		boot:    boot,
		repo:    repo,
		fresh:   fresh,
	}
}

// Resolve returns the user's profile, creating it when the backend
// confirms no row exists. Read failures other than "no row" are
// returned as-is and never cause an insert.
func (s *ProfileService) Resolve(ctx context.Context, user *Session) (*models.Profile, error) {
	p, err := s.fetcher.Fetch(ctx, user.UserID)
	if err == nil {
		return p, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return s.boot.Bootstrap(ctx, user)
	}
	return nil, err
}

// Get returns the user's profile with a single non-retrying read.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	return s.repo.GetByID(ctx, userID)
}

// OnboardingStatus performs a fresh, cache-bypassing read and reports
// whether onboarding is complete. A missing row reads as false rather
// than an error: this is a query, not a mutation.
func (s *ProfileService) OnboardingStatus(ctx context.Context, userID string) (bool, error) {
	p, err := s.fresh.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.OnboardingCompleted, nil
}

// Update applies a partial profile update and returns the stored row.
// A taken username surfaces as a structured USERNAME_TAKEN error so
// callers can render inline validation.
func (s *ProfileService) Update(ctx context.Context, userID string, patch models.Patch) (*models.Profile, error) {
	if patch.IsZero() {
		return nil, apperrors.NewValidationError("patch", "no fields to update")
	}
	if patch.Username != nil && *patch.Username == "" {
		return nil, apperrors.NewValidationError("username", "must not be empty")
	}

	p, err := s.repo.Update(ctx, userID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) && patch.Username != nil {
			return nil, apperrors.NewUsernameTakenError(*patch.Username)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "profile update failed")
	}
	return p, nil
}

// AddStars applies a star delta on top of the supplied current row and
// returns the stored result, flooring the counter at zero. This is a
// read-then-write, safe only under the app's single-writer-per-session
// assumption; concurrent multi-device writes would need a server-side
// atomic increment instead.
func (s *ProfileService) AddStars(ctx context.Context, current *models.Profile, delta int) (*models.Profile, error) {
	count := current.StarCount + delta
	if count < 0 {
		count = 0
	}
	p, err := s.repo.Update(ctx, current.ID, models.Patch{StarCount: &count})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "star update failed")
	}
	return p, nil
}
