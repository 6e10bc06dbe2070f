package repository

import (
	"context"
	"errors"

	"heard-backend/internal/features/letters/models"
)

var ErrNotFound = errors.New("letter not found")

type LetterRepository interface {
	List(ctx context.Context, filter models.ListFilter) ([]models.Letter, error)
	GetByID(ctx context.Context, id string) (*models.Letter, error)
	Insert(ctx context.Context, letter *models.Letter) error
	ListCategories(ctx context.Context) ([]models.Category, error)
}
