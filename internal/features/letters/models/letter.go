package models

import "time"

// Letter is an anonymous journal entry. AuthorID links to the author's
// profile but is never exposed in API responses; readers only see the
// chosen display name.
type Letter struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	DisplayName string    `json:"display_name"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	CategoryID  string    `json:"category_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category groups letters by topic.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateLetterRequest is the payload for publishing a letter.
type CreateLetterRequest struct {
	Title       string `json:"title" binding:"required"`
	Content     string `json:"content" binding:"required"`
	CategoryID  string `json:"category_id" binding:"required"`
	DisplayName string `json:"display_name"`
}

// LetterResponse is the public representation of a letter.
type LetterResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	CategoryID  string    `json:"category_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToResponse strips author identity from the letter.
func (l *Letter) ToResponse() *LetterResponse {
	return &LetterResponse{
		ID:          l.ID,
		DisplayName: l.DisplayName,
		Title:       l.Title,
		Content:     l.Content,
		CategoryID:  l.CategoryID,
		CreatedAt:   l.CreatedAt,
	}
}

// ListFilter narrows and pages a letter listing.
type ListFilter struct {
	CategoryID string
	Limit      int
	Offset     int
}
