package repository

import (
	"context"
	"errors"

	"heard-backend/internal/features/profile/models"
)

var (
	// ErrNotFound is the distinguishable "no row" condition. The fetch
	// policy retries it; any other read error is never retried and
	// never triggers a bootstrap insert.
	ErrNotFound = errors.New("profile not found")

	// ErrConflict marks a write rejected by a uniqueness constraint
	// (duplicate id on insert, taken username on update).
	ErrConflict = errors.New("profile conflict")
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Insert(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, id string, patch models.Patch) (*models.Profile, error)
}
