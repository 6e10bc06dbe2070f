package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"heard-backend/internal/common/apperrors"
	"heard-backend/internal/features/letters/models"
	"heard-backend/internal/features/letters/repository"
)

const (
	maxTitleLength   = 200
	maxContentLength = 10000

	defaultDisplayName = "Anonymous"
)

type LetterService interface {
	List(ctx context.Context, filter models.ListFilter) ([]*models.LetterResponse, error)
	Get(ctx context.Context, id string) (*models.LetterResponse, error)
	Create(ctx context.Context, authorID string, req models.CreateLetterRequest) (*models.LetterResponse, error)
	Categories(ctx context.Context) ([]models.Category, error)
}

type letterService struct {
	repo repository.LetterRepository
}

func NewLetterService(repo repository.LetterRepository) LetterService {
	return &letterService{repo: repo}
}

func (s *letterService) List(ctx context.Context, filter models.ListFilter) ([]*models.LetterResponse, error) {
	letters, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*models.LetterResponse, 0, len(letters))
	for i := range letters {
		out = append(out, letters[i].ToResponse())
	}
	return out, nil
}

func (s *letterService) Get(ctx context.Context, id string) (*models.LetterResponse, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("letter", id)
		}
		return nil, err
	}
	return l.ToResponse(), nil
}

func (s *letterService) Create(ctx context.Context, authorID string, req models.CreateLetterRequest) (*models.LetterResponse, error) {
	if authorID == "" {
		return nil, apperrors.NewPreconditionError("no authenticated user")
	}
	if err := validateLetter(req); err != nil {
		return nil, err
	}
	if err := s.validateCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = defaultDisplayName
	}

	now := time.Now().UTC()
	letter := &models.Letter{
		ID:          uuid.NewString(),
		AuthorID:    authorID,
		DisplayName: displayName,
		Title:       strings.TrimSpace(req.Title),
		Content:     strings.TrimSpace(req.Content),
		CategoryID:  req.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, letter); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "letter insert failed")
	}
	return letter.ToResponse(), nil
}

func (s *letterService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *letterService) validateCategory(ctx context.Context, id string) error {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if c.ID == id {
			return nil
		}
	}
	return apperrors.New(apperrors.ErrCodeCategoryNotFound, "Unknown category").WithDetail("category_id", id)
}

func validateLetter(req models.CreateLetterRequest) error {
	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)

	if title == "" {
		return apperrors.NewValidationError("title", "must not be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return apperrors.NewValidationError("title", "too long")
	}
	if content == "" {
		return apperrors.NewValidationError("content", "must not be empty")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return apperrors.NewValidationError("content", "too long")
	}
	return nil
}
