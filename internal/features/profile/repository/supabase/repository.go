package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"heard-backend/internal/features/profile/models"
	"heard-backend/internal/features/profile/repository"
	"heard-backend/internal/platform/supabase"
)

const table = "user_profiles"

// ProfileRepository reads and writes profile rows through PostgREST.
type ProfileRepository struct {
	client *supabase.Client
}

func NewProfileRepository(client *supabase.Client) *ProfileRepository {
	return &ProfileRepository{client: client}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := "id=eq." + url.QueryEscape(id) + "&select=*"
	data, err := r.client.SelectOne(ctx, table, query)
	if err != nil {
		if errors.Is(err, supabase.ErrNoRows) {
			return nil, fmt.Errorf("get profile %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}

	var p models.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return &p, nil
}

func (r *ProfileRepository) Insert(ctx context.Context, profile *models.Profile) error {
	body, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", profile.ID, err)
	}
	if _, err := r.client.Insert(ctx, table, body); err != nil {
		if errors.Is(err, supabase.ErrUniqueViolation) {
			return fmt.Errorf("insert profile %s: %w", profile.ID, repository.ErrConflict)
		}
		return fmt.Errorf("insert profile %s: %w", profile.ID, err)
	}
	return nil
}

func (r *ProfileRepository) Update(ctx context.Context, id string, patch models.Patch) (*models.Profile, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch for %s: %w", id, err)
	}
	query := "id=eq." + url.QueryEscape(id)
	data, err := r.client.Update(ctx, table, query, body)
	if err != nil {
		if errors.Is(err, supabase.ErrUniqueViolation) {
			return nil, fmt.Errorf("update profile %s: %w", id, repository.ErrConflict)
		}
		return nil, fmt.Errorf("update profile %s: %w", id, err)
	}

	// PostgREST returns the updated rows as an array.
	var rows []models.Profile
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode updated profile %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("update profile %s: %w", id, repository.ErrNotFound)
	}
	return &rows[0], nil
}
