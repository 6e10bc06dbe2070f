package session

import (
	"context"
	"errors"
	"time"

	"heard-backend/internal/common/logger"
	"heard-backend/internal/features/profile/models"
	"heard-backend/internal/features/profile/repository"
)

const (
	DefaultFetchMaxAttempts = 5
	DefaultFetchBaseDelay   = 750 * time.Millisecond

	backoffFactor = 1.5
)

// Fetcher retrieves a profile row by user id, retrying "no row"
// responses with geometric backoff: row creation on the backend can
// lag session creation, observed with magic-link sign-in.
//
// Only repository.ErrNotFound is retried. Any other read error is
// returned immediately so outages are never mistaken for a missing row
// and never trigger a bootstrap insert.
type Fetcher struct {
	repo        repository.ProfileRepository
	maxAttempts int
	baseDelay   time.Duration

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewFetcher(repo repository.ProfileRepository, maxAttempts int, baseDelay time.Duration) *Fetcher {
	if maxAttempts <= 0 {
		maxAttempts = DefaultFetchMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultFetchBaseDelay
	}
	return &Fetcher{
		repo:        repo,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       sleepCtx,
	}
}

// Fetch returns the profile, repository.ErrNotFound after the retry
// budget is exhausted on genuine "no row" responses, or the first
// non-retryable error. Safe for concurrent calls; each call holds its
// own attempt state.
func (f *Fetcher) Fetch(ctx context.Context, userID string) (*models.Profile, error) {
	delay := f.baseDelay
	for attempt := 1; ; attempt++ {
		p, err := f.repo.GetByID(ctx, userID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if attempt >= f.maxAttempts {
			logger.Debug().
				Str("user_id", userID).
				Int("attempts", attempt).
				Msg("profile fetch exhausted retries")
			return nil, err
		}

		logger.Debug().
			Str("user_id", userID).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("profile row not found yet, retrying")

		if err := f.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = time.Duration(float64(delay) * backoffFactor)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
