package repository

import (
	"context"

	"heard-backend/internal/common/logger"
	"heard-backend/internal/features/profile/models"
)

// Cache is the profile cache consumed by CachedRepository. Get reports
// a miss as (nil, nil).
type Cache interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	Set(ctx context.Context, p *models.Profile) error
	Invalidate(ctx context.Context, id string) error
}

// CachedRepository is a read-through decorator over a ProfileRepository.
// Cache failures degrade to the inner repository and are only logged.
type CachedRepository struct {
	inner ProfileRepository
	cache Cache
}

func NewCachedRepository(inner ProfileRepository, cache Cache) *CachedRepository {
	return &CachedRepository{inner: inner, cache: cache}
}

// Fresh returns the undecorated repository for reads that must bypass
// the cache, such as onboarding-status checks.
func (r *CachedRepository) Fresh() ProfileRepository {
	return r.inner
}

func (r *CachedRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	cached, err := r.cache.Get(ctx, id)
	if err != nil {
		logger.Warn().Err(err).Str("profile_id", id).Msg("profile cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	p, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, p); err != nil {
		logger.Warn().Err(err).Str("profile_id", id).Msg("profile cache write failed")
	}
	return p, nil
}

func (r *CachedRepository) Insert(ctx context.Context, profile *models.Profile) error {
	if err := r.inner.Insert(ctx, profile); err != nil {
		return err
	}
	// The stored row can differ from the submitted one through
	// server-assigned defaults and timestamps. Caching the submitted
	// struct would serve that stale shape to the post-insert read, so
	// drop any entry and let the next read fetch the canonical row.
	if err := r.cache.Invalidate(ctx, profile.ID); err != nil {
		logger.Warn().Err(err).Str("profile_id", profile.ID).Msg("profile cache invalidation failed")
	}
	return nil
}

func (r *CachedRepository) Update(ctx context.Context, id string, patch models.Patch) (*models.Profile, error) {
	p, err := r.inner.Update(ctx, id, patch)
	if err != nil {
		// The cached row may be stale relative to a partially applied
		// write; drop it and let the next read repopulate.
		if cerr := r.cache.Invalidate(ctx, id); cerr != nil {
			logger.Warn().Err(cerr).Str("profile_id", id).Msg("profile cache invalidation failed")
		}
		return nil, err
	}
	if err := r.cache.Set(ctx, p); err != nil {
		logger.Warn().Err(err).Str("profile_id", id).Msg("profile cache write failed")
	}
	return p, nil
}
