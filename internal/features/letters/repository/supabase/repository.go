package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"heard-backend/internal/features/letters/models"
	"heard-backend/internal/features/letters/repository"
	"heard-backend/internal/platform/supabase"
)

const (
	lettersTable    = "letters"
	categoriesTable = "categories"
)

// LetterRepository serves the letters and categories tables through
// PostgREST.
type LetterRepository struct {
	client *supabase.Client
}

func NewLetterRepository(client *supabase.Client) *LetterRepository {
	return &LetterRepository{client: client}
}

func (r *LetterRepository) List(ctx context.Context, filter models.ListFilter) ([]models.Letter, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	if filter.CategoryID != "" {
		q.Set("category_id", "eq."+filter.CategoryID)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q.Set("limit", strconv.Itoa(limit))
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	data, err := r.client.Select(ctx, lettersTable, q.Encode())
	if err != nil {
		return nil, fmt.Errorf("list letters: %w", err)
	}
	var letters []models.Letter
	if err := json.Unmarshal(data, &letters); err != nil {
		return nil, fmt.Errorf("decode letters: %w", err)
	}
	return letters, nil
}

func (r *LetterRepository) GetByID(ctx context.Context, id string) (*models.Letter, error) {
	query := "id=eq." + url.QueryEscape(id) + "&select=*"
	data, err := r.client.SelectOne(ctx, lettersTable, query)
	if err != nil {
		if errors.Is(err, supabase.ErrNoRows) {
			return nil, fmt.Errorf("get letter %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("get letter %s: %w", id, err)
	}
	var l models.Letter
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode letter %s: %w", id, err)
	}
	return &l, nil
}

func (r *LetterRepository) Insert(ctx context.Context, letter *models.Letter) error {
	body, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("encode letter %s: %w", letter.ID, err)
	}
	if _, err := r.client.Insert(ctx, lettersTable, body); err != nil {
		return fmt.Errorf("insert letter %s: %w", letter.ID, err)
	}
	return nil
}

func (r *LetterRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	data, err := r.client.Select(ctx, categoriesTable, "select=*&order=name.asc")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var categories []models.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return categories, nil
}
